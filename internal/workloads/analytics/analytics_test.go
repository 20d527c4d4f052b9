package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/schema"
	"mongo-catalog/internal/workloads/ecommerce"
)

func smallDataset() *ecommerce.Dataset {
	return ecommerce.Generate(ecommerce.Options{Categories: 3, Products: 10, Users: 5, Orders: 12, Reviews: 30, Seed: 7})
}

func TestDashboardQueryRun(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDriver()
	logger := zap.NewNop()

	test := &DashboardQueryTest{Data: smallDataset()}
	require.NoError(t, test.Setup(ctx, db, logger))
	assert.Equal(t, 10, db.Store().Count(schema.Products))

	result, err := test.Run(ctx, db, 3, 50*time.Millisecond, logger)
	require.NoError(t, err)
	assert.Greater(t, result.Operations, int64(0))
	assert.Zero(t, result.Errors)
	assert.True(t, result.DataIntegrity)

	require.NoError(t, test.Teardown(ctx, db, logger))
	assert.Empty(t, db.Store().Collections())
}

func TestDashboardQueryNeedsAggregations(t *testing.T) {
	c := catalog.New()
	c.MustRegister(catalog.Query{
		Name:       "everything",
		Section:    catalog.SectionCRUD,
		Collection: schema.Products,
		Kind:       catalog.KindFind,
	})
	test := &DashboardQueryTest{Catalog: c}

	_, err := test.Run(context.Background(), database.NewMemoryDriver(), 1, time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoAggregations)
}

func TestIngestionRun(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemoryDriver()
	logger := zap.NewNop()

	test := &IngestionTest{Data: smallDataset(), BatchSize: 20}
	require.NoError(t, test.Setup(ctx, db, logger))
	assert.Zero(t, db.Store().Count(schema.Reviews))

	result, err := test.Run(ctx, db, 2, 30*time.Millisecond, logger)
	require.NoError(t, err)
	assert.Zero(t, result.Errors)
	assert.Greater(t, result.Throughput, 0.0)
	assert.True(t, result.DataIntegrity)

	stored := db.Store().Count(schema.Reviews)
	assert.Equal(t, 0, stored%20)
	assert.Equal(t, int64(stored), result.Operations*20)
}

func TestCountReviewsEmpty(t *testing.T) {
	n, err := countReviews(context.Background(), database.NewMemoryDriver())
	require.NoError(t, err)
	assert.Zero(t, n)
}
