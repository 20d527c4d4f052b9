package memdb

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func reviewStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Insert("reviews",
		bson.M{"product_id": "p1", "rating": 4},
		bson.M{"product_id": "p1", "rating": 2},
		bson.M{"product_id": "p2", "rating": 5},
	))
	return s
}

func TestAggregateAverageRatingPerProduct(t *testing.T) {
	s := reviewStore(t)

	out, err := s.Aggregate("reviews", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product_id"},
			{Key: "avg_rating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "total_reviews", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avg_rating", Value: -1}}}},
	})
	require.NoError(t, err)

	want := []bson.M{
		{"_id": "p2", "avg_rating": 5.0, "total_reviews": int64(1)},
		{"_id": "p1", "avg_rating": 3.0, "total_reviews": int64(2)},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateTopReviewed(t *testing.T) {
	s := reviewStore(t)

	out, err := s.Aggregate("reviews", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product_id"},
			{Key: "total_reviews", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_reviews", Value: -1}}}},
		{{Key: "$limit", Value: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"p1", "p2"}, ids(out))
}

func TestAggregateLimitCapsOutput(t *testing.T) {
	s := New()
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			require.NoError(t, s.Insert("reviews", bson.M{"product_id": fmt.Sprintf("p%02d", i), "rating": 3}))
		}
	}

	out, err := s.Aggregate("reviews", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product_id"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "n", Value: -1}}}},
		{{Key: "$limit", Value: 5}},
	})
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.Equal(t, []interface{}{"p11", "p10", "p09", "p08", "p07"}, ids(out))
}

func TestAggregateUnwindAndSum(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert("orders",
		bson.M{"_id": "o1", "items": bson.A{
			bson.M{"product_id": "a", "quantity": 2},
			bson.M{"product_id": "b", "quantity": 1},
		}},
		bson.M{"_id": "o2", "items": bson.A{
			bson.M{"product_id": "a", "quantity": 3},
		}},
		bson.M{"_id": "o3", "items": bson.A{}},
		bson.M{"_id": "o4"},
	))

	out, err := s.Aggregate("orders", mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.product_id"},
			{Key: "total_sold", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_sold", Value: -1}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bson.M{
		{"_id": "a", "total_sold": int64(5)},
		{"_id": "b", "total_sold": int64(1)},
	}, out)

	out, err = s.Aggregate("orders", mongo.Pipeline{
		{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$items"}, {Key: "preserveNullAndEmptyArrays", Value: true}}}},
		{{Key: "$count", Value: "rows"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bson.M{{"rows": int64(5)}}, out)
}

func TestAggregateMultiplyAndNullGroup(t *testing.T) {
	s := seedProducts(t)

	out, err := s.Aggregate("products", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$brand"},
			{Key: "inventory_value", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$multiply", Value: bson.A{"$price.value", "$stock"}},
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "inventory_value", Value: -1}}}},
	})
	require.NoError(t, err)
	// acme: 10*5 + 30*25 = 800; vista: 200*2 = 400, cable has no price.
	assert.Equal(t, []bson.M{
		{"_id": "acme", "inventory_value": 800.0},
		{"_id": "vista", "inventory_value": 400.0},
	}, out)

	out, err = s.Aggregate("products", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg_stock", Value: bson.D{{Key: "$avg", Value: "$stock"}}},
			{Key: "max_stock", Value: bson.D{{Key: "$max", Value: "$stock"}}},
			{Key: "min_stock", Value: bson.D{{Key: "$min", Value: "$stock"}}},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bson.M{{"_id": nil, "avg_stock": 18.0, "max_stock": int64(40), "min_stock": int64(2)}}, out)
}

func TestAggregateMatchProjectSkip(t *testing.T) {
	s := seedProducts(t)

	out, err := s.Aggregate("products", mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "active", Value: true}}}},
		{{Key: "$sort", Value: bson.D{{Key: "stock", Value: 1}}}},
		{{Key: "$skip", Value: 1}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "name", Value: 1}, {Key: "double", Value: bson.D{
			{Key: "$multiply", Value: bson.A{"$stock", 2}},
		}}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []bson.M{
		{"name": "mouse", "double": int64(10)},
		{"name": "cable", "double": int64(80)},
	}, out)
}

func TestAggregateEmptyCollection(t *testing.T) {
	s := New()
	out, err := s.Aggregate("reviews", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$product_id"}}}},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
}

func TestAggregateGroupNeedsID(t *testing.T) {
	s := reviewStore(t)
	_, err := s.Aggregate("reviews", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	})
	assert.Error(t, err)
}

func TestAggregateIntegerSumsStayExact(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert("orders",
		bson.M{"_id": "o1", "units": int64(1 << 53), "price": int64(3)},
		bson.M{"_id": "o2", "units": int64(1), "price": int64(3)},
	))

	out, err := s.Aggregate("orders", mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "units", Value: bson.D{{Key: "$sum", Value: "$units"}}},
			{Key: "next", Value: bson.D{{Key: "$max", Value: bson.D{{Key: "$add", Value: bson.A{"$units", 1}}}}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$multiply", Value: bson.A{"$units", "$price"}}}}}},
		}}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(9007199254740993), out[0]["units"])
	assert.Equal(t, int64(9007199254740993), out[0]["next"])
	assert.Equal(t, int64(27021597764222979), out[0]["revenue"])
}
