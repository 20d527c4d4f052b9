package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/runner"
	"mongo-catalog/internal/workloads/ecommerce"
)

var ErrNoAggregations = errors.New("catalog has no aggregation queries")

// DashboardQueryTest cycles through every aggregation of the catalog, the
// way a reporting dashboard refreshes its panels.
type DashboardQueryTest struct {
	Catalog *catalog.Catalog
	Data    *ecommerce.Dataset
}

func (t *DashboardQueryTest) queries() []catalog.Query {
	if t.Catalog == nil {
		t.Catalog = catalog.Default()
	}
	return t.Catalog.BySection(catalog.SectionAggregations)
}

func (t *DashboardQueryTest) Setup(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	if t.Data == nil {
		t.Data = ecommerce.Generate(ecommerce.DefaultOptions())
	}
	logger.Info("setting up dashboard workload", zap.String("db", db.Name()), zap.Int("panels", len(t.queries())))
	if err := db.Reset(ctx); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return t.Data.Load(ctx, db)
}

func (t *DashboardQueryTest) Run(ctx context.Context, db database.DatabaseDriver, concurrency int, duration time.Duration, logger *zap.Logger) (*database.Result, error) {
	queries := t.queries()
	if len(queries) == 0 {
		return nil, ErrNoAggregations
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg   sync.WaitGroup
		next uint64
	)
	rec := runner.NewRecorder()
	deadline := time.Now().Add(duration)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && ctx.Err() == nil {
				q := queries[(atomic.AddUint64(&next, 1)-1)%uint64(len(queries))]
				start := time.Now()
				_, err := database.Execute(ctx, db, q, false)
				rec.Observe(time.Since(start), err)
			}
		}()
	}

	wg.Wait()

	result := rec.Result()
	if err := rec.FirstError(); err != nil {
		logger.Warn("dashboard workload had failures", zap.Int64("errors", result.Errors), zap.Error(err))
	}
	return result, nil
}

func (t *DashboardQueryTest) Teardown(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	logger.Info("tearing down dashboard workload")
	return db.Reset(ctx)
}
