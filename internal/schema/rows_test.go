package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRowsFlattensOrderItems(t *testing.T) {
	order := Order{
		ID:     "ped_1",
		UserID: "usr_1",
		Status: StatusPagado,
		Items: []OrderItem{
			{ProductID: "prd_1", Quantity: 2, UnitPrice: 10.5},
			{ProductID: "prd_2", Quantity: 1, UnitPrice: 99},
		},
		Summary: OrderSummary{Total: Money{Value: 120, Currency: "COP"}},
	}

	rows, err := Rows(Orders, order)
	require.NoError(t, err)

	want := []Row{
		{Table: "orders", Columns: []string{"id", "user_id", "status", "total_value", "total_currency"},
			Values: []interface{}{"ped_1", "usr_1", "pagado", 120.0, "COP"}},
		{Table: "order_items", Columns: []string{"order_id", "line_no", "product_id", "quantity", "unit_price"},
			Values: []interface{}{"ped_1", 0, "prd_1", 2, 10.5}},
		{Table: "order_items", Columns: []string{"order_id", "line_no", "product_id", "quantity", "unit_price"},
			Values: []interface{}{"ped_1", 1, "prd_2", 1, 99.0}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
}

func TestRowsAcceptsLooseDocuments(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: "prd_x"},
		{Key: "name", Value: "Mouse"},
		{Key: "brand", Value: "Logitech"},
		{Key: "stock", Value: int32(4)},
		{Key: "price", Value: bson.D{{Key: "value", Value: int32(5000)}, {Key: "currency", Value: "COP"}}},
		{Key: "categoria_id", Value: "cat_x"},
		{Key: "active", Value: true},
		{Key: "extra", Value: "ignored"},
	}
	rows, err := Rows(Products, doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"prd_x", "Mouse", "Logitech", 4, 5000.0, "COP", "cat_x", true}, rows[0].Values)
}

func TestRowsUnknownCollection(t *testing.T) {
	_, err := Rows("clientes", bson.M{"_id": "x"})
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestTablesAndDDL(t *testing.T) {
	assert.Equal(t, []string{"order_items", "orders"}, Tables(Orders))
	assert.Equal(t, []string{"reviews"}, Tables(Reviews))
	assert.Len(t, DDL(), 6)
	for _, c := range Collections {
		assert.True(t, IsCollection(c))
	}
	assert.False(t, IsCollection("order_items"))
}
