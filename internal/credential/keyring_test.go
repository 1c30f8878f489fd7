package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(MailGWPasswordKey("a@b.c"), "secret"))
	got, err := s.Get("mailgw:a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.NoError(t, s.Delete("mailgw:a@b.c"))
	_, err = s.Get("mailgw:a@b.c")
	assert.ErrorIs(t, err, ErrNotFound)
}
