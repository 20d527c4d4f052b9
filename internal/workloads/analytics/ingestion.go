package analytics

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/runner"
	"mongo-catalog/internal/schema"
	"mongo-catalog/internal/workloads/ecommerce"
)

const DefaultBatchSize = 500

// reviewCount counts the reviews collection on every driver.
var reviewCount = catalog.Query{
	Name:       "review_count",
	Section:    catalog.SectionAggregations,
	Collection: schema.Reviews,
	Kind:       catalog.KindAggregate,
	Pipeline:   mongo.Pipeline{{{Key: "$count", Value: "n"}}},
	Relational: &catalog.Relational{SQL: "SELECT COUNT(*) AS n FROM reviews"},
}

// IngestionTest bulk-inserts generated reviews against the seeded products
// and users. Throughput is reported in reviews per second.
type IngestionTest struct {
	Data      *ecommerce.Dataset
	BatchSize int
}

func (t *IngestionTest) Setup(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	if t.Data == nil {
		t.Data = ecommerce.Generate(ecommerce.DefaultOptions())
	}
	if t.BatchSize <= 0 {
		t.BatchSize = DefaultBatchSize
	}
	logger.Info("setting up ingestion workload", zap.String("db", db.Name()), zap.Int("batch_size", t.BatchSize))
	if err := db.Reset(ctx); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	return db.ExecuteTx(ctx, func(ctx context.Context) error {
		for _, collection := range []string{schema.Categories, schema.Products, schema.Users} {
			if err := db.Insert(ctx, collection, t.Data.Documents(collection)...); err != nil {
				return fmt.Errorf("load %s: %w", collection, err)
			}
		}
		return nil
	})
}

func (t *IngestionTest) batch(rng *rand.Rand) []interface{} {
	docs := make([]interface{}, t.BatchSize)
	for i := range docs {
		p := t.Data.Products[rng.Intn(len(t.Data.Products))]
		u := t.Data.Users[rng.Intn(len(t.Data.Users))]
		docs[i] = schema.Review{
			ID:        "res_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
			ProductID: p.ID,
			UserID:    u.ID,
			Rating:    float64(1 + rng.Intn(5)),
			Text:      "Reseña de carga",
		}
	}
	return docs
}

func (t *IngestionTest) Run(ctx context.Context, db database.DatabaseDriver, concurrency int, duration time.Duration, logger *zap.Logger) (*database.Result, error) {
	if len(t.Data.Products) == 0 || len(t.Data.Users) == 0 {
		return nil, fmt.Errorf("ingestion needs products and users to review")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		wg       sync.WaitGroup
		ingested int64
	)
	rec := runner.NewRecorder()
	start := time.Now()
	deadline := start.Add(duration)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) && ctx.Err() == nil {
				docs := t.batch(rng)
				batchStart := time.Now()
				err := db.ExecuteTx(ctx, func(ctx context.Context) error {
					return db.Insert(ctx, schema.Reviews, docs...)
				})
				rec.Observe(time.Since(batchStart), err)
				if err == nil {
					atomic.AddInt64(&ingested, int64(len(docs)))
				}
			}
		}(int64(i) + 1)
	}

	wg.Wait()

	result := rec.Result()
	if secs := result.TotalTime.Seconds(); secs > 0 {
		result.Throughput = float64(ingested) / secs
	}

	stored, err := countReviews(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	result.DataIntegrity = result.DataIntegrity && stored == ingested

	if err := rec.FirstError(); err != nil {
		logger.Warn("ingestion had failures", zap.Int64("errors", result.Errors), zap.Error(err))
	}
	logger.Debug("ingestion finished",
		zap.Int64("ingested", ingested),
		zap.Int64("stored", stored),
		zap.Duration("total", time.Since(start)))

	return result, nil
}

func countReviews(ctx context.Context, db database.DatabaseDriver) (int64, error) {
	out, err := database.Execute(ctx, db, reviewCount, false)
	if err != nil {
		return 0, err
	}
	if len(out.Documents) == 0 {
		return 0, nil
	}
	switch n := out.Documents[0]["n"].(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected count %v (%T)", n, n)
	}
}

func (t *IngestionTest) Teardown(ctx context.Context, db database.DatabaseDriver, logger *zap.Logger) error {
	logger.Info("tearing down ingestion workload")
	return db.Reset(ctx)
}
