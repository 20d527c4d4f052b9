package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"mongo-catalog/internal/database"
)

// Latencies are recorded in microseconds, up to a minute.
const maxLatencyMicros = 60_000_000

// Recorder collects operation latencies and failures from concurrent
// workers.
type Recorder struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	ops       int64
	errs      int64
	firstErr  error
	start     time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: hdrhistogram.New(1, maxLatencyMicros, 3),
		start:     time.Now(),
	}
}

// Observe records one operation that took d and ended with err.
func (r *Recorder) Observe(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs++
		if r.firstErr == nil {
			r.firstErr = err
		}
		return
	}
	r.ops++
	_ = r.histogram.RecordValue(d.Microseconds())
}

// FirstError is the first failure observed, if any.
func (r *Recorder) FirstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}

func (r *Recorder) Result() *database.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &database.Result{
		Operations: r.ops,
		Errors:     r.errs,
		TotalTime:  time.Since(r.start),
	}
	if total := r.ops + r.errs; total > 0 {
		result.ErrorRate = float64(r.errs) / float64(total)
	}
	if secs := result.TotalTime.Seconds(); secs > 0 {
		result.Throughput = float64(r.ops) / secs
	}
	result.AverageLatency = time.Duration(r.histogram.Mean()) * time.Microsecond
	result.P95Latency = time.Duration(r.histogram.ValueAtQuantile(95)) * time.Microsecond
	result.P99Latency = time.Duration(r.histogram.ValueAtQuantile(99)) * time.Microsecond
	result.DataIntegrity = r.errs == 0
	return result
}
