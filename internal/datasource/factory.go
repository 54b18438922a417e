package datasource

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/logger"
)

// Deps carries the collaborators NewProvider may need.
type Deps struct {
	Logger *logrus.Logger
	// DB is required for the postgres kind
	DB Querier
	// HTTPClient overrides the client built from configuration for the api kind
	HTTPClient *RateLimitedHTTPClient
}

// HTTPClientConfigFrom maps data source configuration onto HTTP client settings.
func HTTPClientConfigFrom(cfg config.DataSourceConfig) HTTPClientConfig {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout()
	httpCfg.MaxRetries = cfg.RetryAttempts
	if cfg.RateLimit > 0 {
		httpCfg.RateLimit = cfg.RateLimit
	}
	if cfg.CircuitBreakerMax > 0 {
		httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
	}
	return httpCfg
}

// NewProvider builds the provider selected by cfg.Kind, wrapped with the
// response cache and then the mock fallback when configured.
func NewProvider(cfg config.DataSourceConfig, deps Deps) (Provider, error) {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}

	mock := NewMockProvider(cfg.Seed, cfg.MockDelay())

	var provider Provider
	switch cfg.Kind {
	case config.ProviderMock, "":
		provider = mock

	case config.ProviderAPI:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("data source %q requires base_url", cfg.Kind)
		}
		httpClient := deps.HTTPClient
		if httpClient == nil {
			httpClient = NewRateLimitedHTTPClient(HTTPClientConfigFrom(cfg), log)
		}
		provider = NewAPIClient(httpClient, cfg.BaseURL, cfg.APIToken, log)

	case config.ProviderPostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("data source %q requires a database connection", cfg.Kind)
		}
		provider = NewPostgresProvider(deps.DB, log)

	default:
		return nil, fmt.Errorf("unknown data source kind: %s", cfg.Kind)
	}

	// The cache sits below the fallback so mock answers never land under the
	// primary's keys.
	if cfg.Cache.Enabled {
		provider = NewCachedProvider(provider, NewResponseCache(cfg.Cache.TTL(), cfg.Cache.MaxSize), log)
	}

	if cfg.FallbackToMock && cfg.Kind != config.ProviderMock && cfg.Kind != "" {
		provider = NewFallbackProvider(provider, mock, log)
	}

	log.WithFields(logrus.Fields{
		"kind":     cfg.Kind,
		"provider": provider.Name(),
		"fallback": cfg.FallbackToMock,
		"cache":    cfg.Cache.Enabled,
	}).Info("Data source configured")

	return provider, nil
}

// CacheLayer returns the CachedProvider inside p, looking through a mock
// fallback.
func CacheLayer(p Provider) (*CachedProvider, bool) {
	if f, ok := p.(*FallbackProvider); ok {
		p = f.Primary()
	}
	cached, ok := p.(*CachedProvider)
	return cached, ok
}
