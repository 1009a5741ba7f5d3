// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/providers"
)

// Provider is a decorator that wraps a BatchProvider to record call metrics.
type Provider struct {
	wrapped    providers.BatchProvider
	aggregator *Aggregator
	now        func() time.Time
}

// NewProvider creates a new metrics-enabled provider that wraps an existing BatchProvider.
func NewProvider(wrapped providers.BatchProvider, aggregator *Aggregator) *Provider {
	logging.LogDebug("[METRICS] Wrapping provider with metrics provider")
	return &Provider{wrapped: wrapped, aggregator: aggregator, now: time.Now}
}

// Aggregator returns the aggregator calls are recorded into.
func (p *Provider) Aggregator() *Aggregator { return p.aggregator }

func (p *Provider) record(op string, start time.Time, n int64, err error) {
	if p.aggregator != nil {
		p.aggregator.Record(op, p.now().Sub(start), n, err)
	}
}

// Upload records the size of the uploaded file.
func (p *Provider) Upload(ctx context.Context, filename string, content []byte, purpose string) (providers.FileRef, error) {
	start := p.now()
	ref, err := p.wrapped.Upload(ctx, filename, content, purpose)
	p.record(OpUpload, start, int64(len(content)), err)
	return ref, err
}

// SubmitBatch passes the call through to the wrapped provider.
func (p *Provider) SubmitBatch(ctx context.Context, inputFileID, endpoint, completionWindow string) (providers.Batch, error) {
	start := p.now()
	b, err := p.wrapped.SubmitBatch(ctx, inputFileID, endpoint, completionWindow)
	p.record(OpSubmitBatch, start, 0, err)
	return b, err
}

// BatchStatus passes the call through to the wrapped provider.
func (p *Provider) BatchStatus(ctx context.Context, batchID string) (providers.Batch, error) {
	start := p.now()
	b, err := p.wrapped.BatchStatus(ctx, batchID)
	p.record(OpBatchStatus, start, 0, err)
	return b, err
}

// FetchContent records the size of the downloaded file.
func (p *Provider) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	start := p.now()
	data, err := p.wrapped.FetchContent(ctx, fileID)
	p.record(OpFetchContent, start, int64(len(data)), err)
	return data, err
}
