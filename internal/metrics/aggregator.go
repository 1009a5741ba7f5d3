// internal/metrics/aggregator.go
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mwiater/bayesbatch/internal/logging"
	"github.com/mwiater/bayesbatch/internal/util"
)

// Operation names recorded by Provider.
const (
	OpUpload       = "upload"
	OpSubmitBatch  = "submit_batch"
	OpBatchStatus  = "batch_status"
	OpFetchContent = "fetch_content"
)

// Aggregator collects call statistics per remote operation.
type Aggregator struct {
	mutex   sync.Mutex
	metrics map[string]*OperationMetrics
	now     func() time.Time
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		metrics: make(map[string]*OperationMetrics),
		now:     time.Now,
	}
}

// Record adds one call of op that took d and moved n bytes.
func (a *Aggregator) Record(op string, d time.Duration, n int64, err error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	m, exists := a.metrics[op]
	if !exists {
		m = &OperationMetrics{Operation: op}
		a.metrics[op] = m
	}
	m.LastUpdatedUTC = a.now().UTC()
	m.Calls++
	if err != nil {
		m.Errors++
	}
	m.Bytes += n
	updateRunningStat(&m.DurationMillis, float64(d.Microseconds())/1000)
}

// Snapshot returns a copy of the collected metrics sorted by operation.
func (a *Aggregator) Snapshot() []OperationMetrics {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	out := make([]OperationMetrics, 0, len(a.metrics))
	for _, m := range a.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Save merges the collected metrics into the JSON file at path.
func (a *Aggregator) Save(path string) error {
	existing, err := Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	merged := make(map[string]OperationMetrics, len(existing))
	for _, m := range existing {
		merged[m.Operation] = m
	}
	for _, m := range a.Snapshot() {
		prev, ok := merged[m.Operation]
		if !ok {
			merged[m.Operation] = m
			continue
		}
		prev.Calls += m.Calls
		prev.Errors += m.Errors
		prev.Bytes += m.Bytes
		prev.LastUpdatedUTC = m.LastUpdatedUTC
		prev.DurationMillis = mergeRunningStats(prev.DurationMillis, m.DurationMillis)
		merged[m.Operation] = prev
	}

	out := make([]OperationMetrics, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	logging.LogEvent("[METRICS] Saving metrics to %s", path)
	return util.WriteFile(path, data)
}

// Load reads metrics previously written by Save.
func Load(path string) ([]OperationMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []OperationMetrics
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode metrics %s: %w", path, err)
	}
	return out, nil
}

// StdDev returns the sample standard deviation.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}

// mergeRunningStats combines two partial statistics (Chan et al.).
func mergeRunningStats(a, b RunningStat) RunningStat {
	if a.Count == 0 {
		return b
	}
	if b.Count == 0 {
		return a
	}
	n := a.Count + b.Count
	delta := b.Mean - a.Mean
	out := RunningStat{
		Count: n,
		Mean:  a.Mean + delta*float64(b.Count)/float64(n),
		M2:    a.M2 + b.M2 + delta*delta*float64(a.Count)*float64(b.Count)/float64(n),
		Min:   math.Min(a.Min, b.Min),
		Max:   math.Max(a.Max, b.Max),
	}
	return out
}
