package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mongo-catalog/internal/database"
)

type fakeWorkload struct {
	calls    []string
	setupErr error
	runErr   error
}

func (f *fakeWorkload) Setup(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	f.calls = append(f.calls, "setup")
	return f.setupErr
}

func (f *fakeWorkload) Run(ctx context.Context, db database.DatabaseDriver, concurrency int, duration time.Duration, logger *zap.Logger) (*database.Result, error) {
	f.calls = append(f.calls, "run")
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &database.Result{Operations: int64(concurrency)}, nil
}

func (f *fakeWorkload) Teardown(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	f.calls = append(f.calls, "teardown")
	return errors.New("teardown errors are only logged")
}

func TestRun(t *testing.T) {
	w := &fakeWorkload{}
	result, err := Run(context.Background(), database.NewMemoryDriver(), w, 3, time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Operations)
	assert.Equal(t, []string{"setup", "run", "teardown"}, w.calls)
}

func TestRunFailures(t *testing.T) {
	boom := errors.New("boom")

	w := &fakeWorkload{setupErr: boom}
	_, err := Run(context.Background(), database.NewMemoryDriver(), w, 1, time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"setup"}, w.calls)

	w = &fakeWorkload{runErr: boom}
	_, err = Run(context.Background(), database.NewMemoryDriver(), w, 1, time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"setup", "run", "teardown"}, w.calls)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Observe(2*time.Millisecond, nil)
	rec.Observe(4*time.Millisecond, nil)
	rec.Observe(time.Millisecond, errors.New("first"))
	rec.Observe(time.Millisecond, errors.New("second"))

	result := rec.Result()
	assert.Equal(t, int64(2), result.Operations)
	assert.Equal(t, int64(2), result.Errors)
	assert.InDelta(t, 0.5, result.ErrorRate, 1e-9)
	assert.False(t, result.DataIntegrity)
	assert.InDelta(t, float64(3*time.Millisecond), float64(result.AverageLatency), float64(50*time.Microsecond))
	assert.GreaterOrEqual(t, result.P99Latency, result.P95Latency)
	assert.EqualError(t, rec.FirstError(), "first")
}
