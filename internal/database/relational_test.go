package database_test

import (
	"context"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/workloads/ecommerce"
)

// RelationalSuite runs the catalog's SQL forms against a live Postgres or
// MySQL server.
type RelationalSuite struct {
	suite.Suite
	db   database.DatabaseDriver
	data *ecommerce.Dataset
}

func (s *RelationalSuite) SetupTest() {
	ctx := context.Background()
	s.data = ecommerce.Generate(ecommerce.DefaultOptions())
	s.Require().NoError(s.db.Reset(ctx))
	s.Require().NoError(s.db.Migrate(ctx))
	s.Require().NoError(s.data.Load(ctx, s.db))
}

func (s *RelationalSuite) TearDownSuite() {
	s.NoError(s.db.Reset(context.Background()))
}

func (s *RelationalSuite) execute(q catalog.Query, allowDestructive bool) *database.Outcome {
	out, err := database.Execute(context.Background(), s.db, q, allowDestructive)
	s.Require().NoError(err, q.Name)
	return out
}

func (s *RelationalSuite) get(name string) catalog.Query {
	q, err := catalog.Default().Get(name)
	s.Require().NoError(err)
	return q
}

func (s *RelationalSuite) TestEveryQuery() {
	for _, q := range catalog.Default().All() {
		if q.Destructive {
			continue
		}
		out := s.execute(q, false)
		s.Equal(q.Name, out.Query)
	}
}

func (s *RelationalSuite) TestFindCounts() {
	out := s.execute(s.get("all_products"), false)
	s.Len(out.Documents, len(s.data.Products))

	out = s.execute(s.get("product_by_id"), false)
	s.Require().Len(out.Documents, 1)
	s.Equal(catalog.ProductID, out.Documents[0]["_id"])

	out = s.execute(s.get("list_collections"), false)
	s.Equal([]string{"categories", "order_items", "orders", "products", "reviews", "users"}, out.Collections)
}

func (s *RelationalSuite) TestRatingPerProduct() {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range s.data.Reviews {
		sums[r.ProductID] += r.Rating
		counts[r.ProductID]++
	}

	out := s.execute(s.get("rating_per_product"), false)
	s.Require().Len(out.Documents, len(counts))
	for _, doc := range out.Documents {
		id, ok := doc["_id"].(string)
		s.Require().True(ok, "%v", doc["_id"])
		s.InDelta(sums[id]/float64(counts[id]), number(s.T(), doc["avg_rating"]), 1e-6, id)
		s.Equal(float64(counts[id]), number(s.T(), doc["total_reviews"]), id)
	}
	assertDescending(s.T(), out.Documents, "avg_rating")
}

func (s *RelationalSuite) TestTopFive() {
	perProduct := map[string]int{}
	for _, r := range s.data.Reviews {
		perProduct[r.ProductID]++
	}
	most := 0
	for _, n := range perProduct {
		most = max(most, n)
	}

	out := s.execute(s.get("top_reviewed_products"), false)
	s.Require().NotEmpty(out.Documents)
	s.LessOrEqual(len(out.Documents), 5)
	assertDescending(s.T(), out.Documents, "total_reviews")
	s.Equal(float64(most), number(s.T(), out.Documents[0]["total_reviews"]))

	out = s.execute(s.get("top_selling_products"), false)
	s.LessOrEqual(len(out.Documents), 5)
	assertDescending(s.T(), out.Documents, "total_sold")
}

func (s *RelationalSuite) TestUpdateCounts() {
	q := s.get("update_user_contact")

	out := s.execute(q, false)
	s.Equal(int64(1), out.MatchedCount)
	s.Equal(int64(1), out.ModifiedCount)

	out = s.execute(q, false)
	s.Equal(int64(1), out.MatchedCount)
	s.Equal(int64(0), out.ModifiedCount)

	missing := q
	missing.Filter = bson.D{{Key: "_id", Value: "usr_missing"}}
	rel := *q.Relational
	rel.Args = append([]interface{}{"usr_missing"}, rel.Args[1:]...)
	missing.Relational = &rel
	out = s.execute(missing, false)
	s.Zero(out.MatchedCount)
	s.Zero(out.ModifiedCount)
}

func (s *RelationalSuite) TestUpdateInTransaction() {
	q := s.get("update_user_contact")
	err := s.db.ExecuteTx(context.Background(), func(ctx context.Context) error {
		out, err := database.Execute(ctx, s.db, q, false)
		if err != nil {
			return err
		}
		s.Equal(int64(1), out.MatchedCount)
		s.Equal(int64(1), out.ModifiedCount)
		return nil
	})
	s.Require().NoError(err)

	out := s.execute(q, false)
	s.Equal(int64(1), out.MatchedCount)
	s.Equal(int64(0), out.ModifiedCount)
}

func (s *RelationalSuite) TestDeleteAndDrop() {
	out := s.execute(s.get("delete_products_by_ids"), true)
	s.Equal(int64(2), out.DeletedCount)
	out = s.execute(s.get("delete_product"), true)
	s.Zero(out.DeletedCount)

	s.execute(s.get("drop_reviews"), true)
	out = s.execute(s.get("list_collections"), false)
	s.NotContains(out.Collections, "reviews")
	s.Contains(out.Collections, "products")
}
