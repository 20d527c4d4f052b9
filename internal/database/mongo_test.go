package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/workloads/ecommerce"
)

// MongoSuite runs the catalog against a live server. It is skipped unless
// CATALOG_TEST_MONGO_URI is set.
type MongoSuite struct {
	suite.Suite
	db   *database.MongoDriver
	data *ecommerce.Dataset
}

func TestMongoSuite(t *testing.T) {
	uri := os.Getenv("CATALOG_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CATALOG_TEST_MONGO_URI not set")
	}
	db := &database.MongoDriver{Database: "catalogo_test"}
	if err := db.Connect(uri); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	suite.Run(t, &MongoSuite{db: db})
}

func TestMongoNotConnected(t *testing.T) {
	ctx := context.Background()
	called := false
	fn := func(ctx context.Context) error {
		called = true
		return nil
	}

	for _, db := range []*database.MongoDriver{{}, {Transactions: true}} {
		assert.ErrorIs(t, db.ExecuteTx(ctx, fn), database.ErrNotConnected)
		assert.ErrorIs(t, db.Insert(ctx, "products", bson.M{"_id": "p1"}), database.ErrNotConnected)
		assert.ErrorIs(t, db.Reset(ctx), database.ErrNotConnected)
		assert.NoError(t, db.Close())
	}
	assert.False(t, called)
}

func (s *MongoSuite) SetupTest() {
	ctx := context.Background()
	s.data = ecommerce.Generate(ecommerce.DefaultOptions())
	s.Require().NoError(s.db.Reset(ctx))
	s.Require().NoError(s.db.Migrate(ctx))
	s.Require().NoError(s.data.Load(ctx, s.db))
}

func (s *MongoSuite) TearDownSuite() {
	s.NoError(s.db.Reset(context.Background()))
}

func (s *MongoSuite) execute(name string, allowDestructive bool) *database.Outcome {
	q, err := catalog.Default().Get(name)
	s.Require().NoError(err)
	out, err := database.Execute(context.Background(), s.db, q, allowDestructive)
	s.Require().NoError(err, name)
	return out
}

func (s *MongoSuite) TestReadQueries() {
	for _, q := range catalog.Default().All() {
		if q.Destructive || q.Kind == catalog.KindUpdateOne {
			continue
		}
		_, err := database.Execute(context.Background(), s.db, q, false)
		s.NoError(err, q.Name)
	}
}

func (s *MongoSuite) TestTopReviewedSorted() {
	out := s.execute("top_reviewed_products", false)
	s.LessOrEqual(len(out.Documents), 5)
	for i := 1; i < len(out.Documents); i++ {
		s.GreaterOrEqual(number(s.T(), out.Documents[i-1]["total_reviews"]), number(s.T(), out.Documents[i]["total_reviews"]))
	}
}

func (s *MongoSuite) TestUpdateCounts() {
	out := s.execute("update_user_contact", false)
	s.Equal(int64(1), out.MatchedCount)
	s.Equal(int64(1), out.ModifiedCount)

	out = s.execute("update_user_contact", false)
	s.Equal(int64(1), out.MatchedCount)
	s.Equal(int64(0), out.ModifiedCount)
}

func (s *MongoSuite) TestDeleteAndDrop() {
	out := s.execute("delete_products_by_ids", true)
	s.Equal(int64(2), out.DeletedCount)

	s.execute("drop_reviews", true)
	out = s.execute("list_collections", false)
	s.NotContains(out.Collections, "reviews")
	s.Contains(out.Collections, "products")
}
