package metrics

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwiater/bayesbatch/internal/providers"
)

type stubProvider struct{ err error }

func (s stubProvider) Upload(ctx context.Context, filename string, content []byte, purpose string) (providers.FileRef, error) {
	return providers.FileRef{ID: "file-1"}, s.err
}

func (s stubProvider) SubmitBatch(ctx context.Context, inputFileID, endpoint, window string) (providers.Batch, error) {
	return providers.Batch{ID: "batch-1"}, s.err
}

func (s stubProvider) BatchStatus(ctx context.Context, id string) (providers.Batch, error) {
	return providers.Batch{ID: id, Status: providers.StatusInProgress}, s.err
}

func (s stubProvider) FetchContent(ctx context.Context, id string) ([]byte, error) {
	return []byte("0123456789"), s.err
}

func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestProviderRecordsCalls(t *testing.T) {
	agg := NewAggregator()
	p := NewProvider(stubProvider{}, agg)
	p.now = steppingClock(10 * time.Millisecond)
	ctx := context.Background()

	if _, err := p.Upload(ctx, "a.jsonl", []byte("abc"), providers.PurposeBatch); err != nil {
		t.Fatal(err)
	}
	if _, err := p.SubmitBatch(ctx, "file-1", "/v1/chat/completions", "24h"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := p.BatchStatus(ctx, "batch-1"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := p.FetchContent(ctx, "out"); err != nil {
		t.Fatal(err)
	}

	snap := agg.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 operations, got %d", len(snap))
	}
	byOp := map[string]OperationMetrics{}
	for _, m := range snap {
		byOp[m.Operation] = m
	}
	if byOp[OpBatchStatus].Calls != 2 {
		t.Fatalf("expected 2 status calls, got %d", byOp[OpBatchStatus].Calls)
	}
	if byOp[OpUpload].Bytes != 3 || byOp[OpFetchContent].Bytes != 10 {
		t.Fatalf("unexpected byte counts: %+v", byOp)
	}
	if byOp[OpUpload].DurationMillis.Mean != 10 {
		t.Fatalf("expected 10ms, got %v", byOp[OpUpload].DurationMillis.Mean)
	}
}

func TestProviderRecordsErrors(t *testing.T) {
	agg := NewAggregator()
	p := NewProvider(stubProvider{err: errors.New("boom")}, agg)
	if _, err := p.BatchStatus(context.Background(), "x"); err == nil {
		t.Fatal("expected error to pass through")
	}
	snap := agg.Snapshot()
	if len(snap) != 1 || snap[0].Errors != 1 || snap[0].Calls != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSaveMergesWithExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_metrics.json")

	first := NewAggregator()
	first.Record(OpUpload, 10*time.Millisecond, 5, nil)
	first.Record(OpUpload, 20*time.Millisecond, 5, nil)
	if err := first.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := NewAggregator()
	second.Record(OpUpload, 30*time.Millisecond, 5, errors.New("x"))
	second.Record(OpFetchContent, time.Millisecond, 1, nil)
	if err := second.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[1].Operation != OpUpload {
		t.Fatalf("unexpected metrics %+v", got)
	}
	up := got[1]
	if up.Calls != 3 || up.Errors != 1 || up.Bytes != 15 {
		t.Fatalf("unexpected totals %+v", up)
	}
	if up.DurationMillis.Mean != 20 || up.DurationMillis.Min != 10 || up.DurationMillis.Max != 30 {
		t.Fatalf("unexpected duration stats %+v", up.DurationMillis)
	}
	if math.Abs(up.DurationMillis.StdDev()-10) > 1e-9 {
		t.Fatalf("expected stddev 10, got %v", up.DurationMillis.StdDev())
	}
}
