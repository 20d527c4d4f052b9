package ecommerce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/runner"
)

// CatalogTest runs one catalog query repeatedly against a seeded store.
type CatalogTest struct {
	Query            catalog.Query
	Data             *Dataset
	AllowDestructive bool
}

func (t *CatalogTest) dataset() *Dataset {
	if t.Data == nil {
		t.Data = Generate(DefaultOptions())
	}
	return t.Data
}

func (t *CatalogTest) Setup(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	logger.Info("setting up catalog workload", zap.String("query", t.Query.Name), zap.String("db", db.Name()))
	if err := db.Reset(ctx); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return t.dataset().Load(ctx, db)
}

func (t *CatalogTest) Run(ctx context.Context, db database.DatabaseDriver, concurrency int, duration time.Duration, logger *zap.Logger) (*database.Result, error) {
	if t.Query.Destructive && !t.AllowDestructive {
		return nil, fmt.Errorf("%w: %s", database.ErrDestructive, t.Query.Name)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		docCounts = make(map[int]int64)
	)
	rec := runner.NewRecorder()
	deadline := time.Now().Add(duration)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && ctx.Err() == nil {
				opStart := time.Now()
				out, err := database.Execute(ctx, db, t.Query, t.AllowDestructive)
				rec.Observe(time.Since(opStart), err)
				if err != nil {
					continue
				}
				if t.Query.Kind == catalog.KindFind || t.Query.Kind == catalog.KindAggregate {
					mu.Lock()
					docCounts[len(out.Documents)]++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	result := rec.Result()
	// Concurrent reads of a store nobody writes must all see the same result size.
	result.DataIntegrity = result.DataIntegrity && len(docCounts) <= 1

	if err := rec.FirstError(); err != nil {
		logger.Warn("catalog workload had failures",
			zap.String("query", t.Query.Name),
			zap.Int64("errors", result.Errors),
			zap.Error(err))
	}
	logger.Debug("catalog workload finished",
		zap.String("query", t.Query.Name),
		zap.Int64("operations", result.Operations),
		zap.Duration("total", result.TotalTime))

	return result, nil
}

func (t *CatalogTest) Teardown(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	logger.Info("tearing down catalog workload", zap.String("query", t.Query.Name))
	return db.Reset(ctx)
}
