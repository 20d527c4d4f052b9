package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mongo-catalog/internal/schema"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 23, c.Len())

	counts := map[Section]int{}
	for _, q := range c.All() {
		require.NoError(t, Validate(q), q.Name)
		counts[q.Section]++

		if q.Kind.DatabaseScoped() {
			assert.Empty(t, q.Collection, q.Name)
		} else {
			assert.True(t, schema.IsCollection(q.Collection), q.Name)
		}
		if q.Kind == KindAggregate {
			for _, stage := range q.Pipeline {
				require.Len(t, stage, 1, q.Name)
				assert.True(t, StageOperators[stage[0].Key], q.Name)
			}
		}
		switch q.Kind {
		case KindDeleteOne, KindDeleteMany, KindDrop, KindDropDatabase:
			assert.True(t, q.Destructive, q.Name)
		default:
			assert.False(t, q.Destructive, q.Name)
		}
		if !q.Kind.DatabaseScoped() && q.Kind != KindDrop {
			assert.NotNil(t, q.Relational, "%s has no SQL form", q.Name)
		}
	}
	assert.Equal(t, map[Section]int{
		SectionDatabase:     1,
		SectionCRUD:         7,
		SectionFilters:      6,
		SectionAggregations: 9,
	}, counts)
}

func TestCatalogOrderAndLookup(t *testing.T) {
	c := Default()
	names := c.Names()
	assert.Equal(t, "list_collections", names[0])
	assert.Equal(t, "top_selling_products", names[len(names)-1])

	q, err := c.Get("update_user_contact")
	require.NoError(t, err)
	assert.Equal(t, KindUpdateOne, q.Kind)
	assert.Equal(t, schema.Users, q.Collection)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, q := range c.BySection(SectionFilters) {
		assert.Equal(t, SectionFilters, q.Section)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c := New()
	q := Query{Name: "q", Section: SectionCRUD, Collection: schema.Products, Kind: KindFind}
	require.NoError(t, c.Register(q))
	assert.ErrorIs(t, c.Register(q), ErrDuplicate)
	assert.Equal(t, 1, c.Len())

	assert.Panics(t, func() { c.MustRegister(q) })
}

func TestValidateRejects(t *testing.T) {
	match := bson.D{{Key: "$match", Value: bson.D{}}}
	tests := []struct {
		name string
		q    Query
	}{
		{"no name", Query{Collection: schema.Products, Kind: KindFind}},
		{"unknown collection", Query{Name: "x", Collection: "clientes", Kind: KindFind}},
		{"unknown kind", Query{Name: "x", Collection: schema.Products, Kind: "findAndModify"}},
		{"scoped with collection", Query{Name: "x", Collection: schema.Products, Kind: KindListCollections}},
		{"update without operator", Query{Name: "x", Collection: schema.Users, Kind: KindUpdateOne,
			Filter: bson.D{}, Update: bson.D{{Key: "name", Value: "a"}}}},
		{"update without filter", Query{Name: "x", Collection: schema.Users, Kind: KindUpdateOne,
			Update: bson.D{{Key: "$set", Value: bson.D{{Key: "name", Value: "a"}}}}}},
		{"delete without filter", Query{Name: "x", Collection: schema.Products, Kind: KindDeleteMany}},
		{"empty pipeline", Query{Name: "x", Collection: schema.Orders, Kind: KindAggregate}},
		{"unknown stage", Query{Name: "x", Collection: schema.Orders, Kind: KindAggregate,
			Pipeline: mongo.Pipeline{match, {{Key: "$explode", Value: 1}}}}},
		{"two keys in a stage", Query{Name: "x", Collection: schema.Orders, Kind: KindAggregate,
			Pipeline: mongo.Pipeline{{{Key: "$match", Value: bson.D{}}, {Key: "$limit", Value: 1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.q), ErrInvalidQuery)
		})
	}
}

func TestRender(t *testing.T) {
	c := Default()
	tests := []struct {
		name string
		want string
	}{
		{"list_collections", "show collections"},
		{"drop_database", "db.dropDatabase()"},
		{"drop_reviews", "db.reviews.drop()"},
		{"all_products", "db.products.find()"},
		{"product_by_id", `db.products.find({"_id":"prd_ukoa1nsr18"})`},
		{"low_stock_products", `db.products.find({"stock":{"$lt":20}}, {"name":1,"stock":1})`},
		{"delete_product", `db.products.deleteOne({"_id":"prd_b29co0vs85"})`},
		{"update_user_contact", `db.users.updateOne({"_id":"usr_rcgb7361qu"}, {"$set":{"name":"Gabriela Gómez R.","phone":"3005552211"}})`},
		{"top_reviewed_products", `db.reviews.aggregate([{"$group":{"_id":"$product_id","total_reviews":{"$sum":1}}}, {"$sort":{"total_reviews":-1}}, {"$limit":5}])`},
		{"avg_order_value", `db.orders.aggregate([{"$group":{"_id":null,"avg_order_value":{"$avg":"$summary.total.value"}}}])`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Get(tt.name)
			require.NoError(t, err)
			got, err := Render(q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScript(t *testing.T) {
	script, err := Script(Default(), DatabaseName)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "use catalogo_comercio_electronico\n"))
	last := -1
	for _, s := range Sections {
		i := strings.Index(script, "// ==== "+string(s)+" ====")
		require.GreaterOrEqual(t, i, 0, s)
		assert.Greater(t, i, last, "section %s out of order", s)
		last = i
	}
	assert.Contains(t, script, "// drop_database: Drop the entire database. Careful!\ndb.dropDatabase()\n")
	assert.Equal(t, 23, strings.Count(script, "\n// ")-len(Sections))
}
