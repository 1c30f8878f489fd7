package history

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/testutil"
)

func TestHistoryListsRecords(t *testing.T) {
	s := testutil.NewTestStore(t)
	now := time.Now()
	require.NoError(t, s.RecordMailbox(context.Background(), &model.MailboxRecord{
		Address: "old@x.test", Provider: model.ProviderMailGW,
		CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-50 * time.Minute), MessageCount: 2,
	}))
	require.NoError(t, s.RecordMailbox(context.Background(), &model.MailboxRecord{
		Address: "new@x.test", Provider: model.ProviderOneSecMail,
		CreatedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	m := New(s, keys.DefaultKeyMap(), 120, 30)
	msg := m.Init()()
	m, _ = m.Update(msg)

	out := m.View()
	assert.Contains(t, out, "old@x.test")
	assert.Contains(t, out, "new@x.test")
	assert.Contains(t, out, "expired")
	assert.Contains(t, out, "active")
	assert.Equal(t, "2 mailboxes", m.Summary())
}

func TestHistoryDisabled(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 80, 20)
	m, _ = m.Update(m.Init()())
	assert.Contains(t, m.View(), "History is disabled")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
