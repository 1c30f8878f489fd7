package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/model"
)

func TestRegistryReusesAdapters(t *testing.T) {
	r := NewRegistry(model.ProvidersConfig{
		MailGW:            model.ProviderEndpoint{BaseURL: "http://mailgw.invalid"},
		OneSecMail:        model.ProviderEndpoint{BaseURL: "http://1secmail.invalid/api/v1/"},
		RateLimit:         4,
		RequestTimeoutSec: 5,
	}, credential.NewMemoryStore(), nil)

	gw, err := r.Get(model.ProviderMailGW)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderMailGW, gw.Type())

	again, err := r.Get(model.ProviderMailGW)
	require.NoError(t, err)
	assert.Same(t, gw, again)

	one, err := r.Get(model.ProviderOneSecMail)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOneSecMail, one.Type())

	_, err = r.Get("guerrilla")
	assert.Error(t, err)
}
