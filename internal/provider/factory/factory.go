package factory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/logger"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/provider"
	"github.com/nhle/tempmail/internal/provider/mailgw"
	"github.com/nhle/tempmail/internal/provider/onesecmail"
)

// Registry hands out one adapter per provider type. Adapters are built
// lazily and reused, so each keeps its record of issued addresses for the
// life of the process.
type Registry struct {
	cfg    model.ProvidersConfig
	creds  credential.Store
	logger *zap.Logger

	mu    sync.Mutex
	built map[model.ProviderType]provider.Provider
}

// NewRegistry creates a registry. creds may be nil.
func NewRegistry(cfg model.ProvidersConfig, creds credential.Store, l *zap.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		creds:  creds,
		logger: logger.OrNop(l),
		built:  make(map[model.ProviderType]provider.Provider),
	}
}

// Get returns the adapter for t, building it on first use.
func (r *Registry) Get(t model.ProviderType) (provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.built[t]; ok {
		return p, nil
	}

	var p provider.Provider
	switch t {
	case model.ProviderMailGW:
		p = mailgw.NewAdapter(r.client(r.cfg.MailGW.BaseURL), r.creds, r.logger)
	case model.ProviderOneSecMail:
		p = onesecmail.NewAdapter(r.client(r.cfg.OneSecMail.BaseURL))
	default:
		return nil, fmt.Errorf("unknown provider %q", t)
	}

	r.built[t] = p
	return p, nil
}

func (r *Registry) client(baseURL string) *provider.Client {
	var opts []provider.ClientOption
	if r.cfg.RequestTimeoutSec > 0 {
		opts = append(opts, provider.WithTimeout(r.cfg.RequestTimeout()))
	}
	if r.cfg.RateLimit > 0 {
		opts = append(opts, provider.WithRateLimit(r.cfg.RateLimit))
	}
	return provider.NewClient(baseURL, opts...)
}
