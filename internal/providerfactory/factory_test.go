// internal/providerfactory/factory_test.go
package providerfactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mwiater/bayesbatch/internal/appconfig"
	"github.com/mwiater/bayesbatch/internal/metrics"
	"github.com/mwiater/bayesbatch/internal/providers/openai"
)

func TestNewBatchProviderErrorsOnNilConfig(t *testing.T) {
	if _, err := NewBatchProvider(nil, "key"); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewBatchProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewBatchProvider(&appconfig.Config{}, ""); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewBatchProviderDefaultsToOpenAI(t *testing.T) {
	provider, err := NewBatchProvider(&appconfig.Config{}, "key")
	if err != nil {
		t.Fatalf("NewBatchProvider returned error: %v", err)
	}
	if _, ok := provider.(*openai.Provider); !ok {
		t.Fatalf("expected openai.Provider, got %T", provider)
	}
	if saved, err := SaveMetrics(provider, filepath.Join(t.TempDir(), "m.json")); saved || err != nil {
		t.Fatalf("plain provider must not save metrics: %v %v", saved, err)
	}
}

func TestNewBatchProviderWrapsWithMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"batch_1","object":"batch","status":"in_progress"}`))
	}))
	defer srv.Close()

	cfg := &appconfig.Config{APIBaseURL: srv.URL, Metrics: true}
	provider, err := NewBatchProvider(cfg, "key")
	if err != nil {
		t.Fatalf("NewBatchProvider returned error: %v", err)
	}
	if _, ok := provider.(*metrics.Provider); !ok {
		t.Fatalf("expected metrics.Provider, got %T", provider)
	}
	if _, err := provider.BatchStatus(context.Background(), "batch_1"); err != nil {
		t.Fatalf("BatchStatus: %v", err)
	}

	path := filepath.Join(t.TempDir(), "api_metrics.json")
	saved, err := SaveMetrics(provider, path)
	if err != nil || !saved {
		t.Fatalf("expected metrics to be saved: %v %v", saved, err)
	}
	got, err := metrics.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Operation != metrics.OpBatchStatus || got[0].Calls != 1 {
		t.Fatalf("unexpected metrics %+v", got)
	}
}
