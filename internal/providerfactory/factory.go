// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/bayesbatch/internal/appconfig"
	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/metrics"
	"github.com/mwiater/bayesbatch/internal/providers"
	"github.com/mwiater/bayesbatch/internal/providers/openai"
)

// NewBatchProvider configures the remote batch provider from the application
// configuration and wraps it with metrics collection if enabled.
func NewBatchProvider(cfg *appconfig.Config, apiKey string) (providers.BatchProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var provider providers.BatchProvider
	provider, err := openai.New(cfg, apiKey)
	if err != nil {
		return nil, err
	}
	logging.LogEvent("Batch provider ready: %s", cfg.BaseURL())

	if cfg.Metrics {
		provider = metrics.NewProvider(provider, metrics.NewAggregator())
	}
	return provider, nil
}

// SaveMetrics writes the provider's call metrics to path when the provider
// records them. It reports whether anything was written.
func SaveMetrics(provider providers.BatchProvider, path string) (bool, error) {
	mp, ok := provider.(*metrics.Provider)
	if !ok {
		return false, nil
	}
	if err := mp.Aggregator().Save(path); err != nil {
		return false, err
	}
	return true, nil
}
