package catalog

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mongo-catalog/internal/schema"
)

// DatabaseName is the database the queries run against.
const DatabaseName = "catalogo_comercio_electronico"

// Ids referenced by the queries.
const (
	ProductID       = "prd_ukoa1nsr18"
	DeletedProduct  = "prd_b29co0vs85"
	DeletedProduct2 = "prd_u8f32xpuai"
	ContactUserID   = "usr_rcgb7361qu"
	CategoryA       = "cat_a7pf17yp91"
	CategoryB       = "cat_wblre8nf3e"
)

// Default returns the catalog of the e-commerce reference queries.
func Default() *Catalog {
	c := New()
	c.MustRegister(databaseQueries()...)
	c.MustRegister(crudQueries()...)
	c.MustRegister(filterQueries()...)
	c.MustRegister(aggregationQueries()...)
	return c
}

func databaseQueries() []Query {
	return []Query{
		{
			Name:    "list_collections",
			Section: SectionDatabase,
			Kind:    KindListCollections,
			Comment: "Show the collections of the selected database.",
		},
	}
}

func crudQueries() []Query {
	return []Query{
		{
			Name:       "all_products",
			Section:    SectionCRUD,
			Collection: schema.Products,
			Kind:       KindFind,
			Filter:     bson.D{},
			Comment:    "Every product document.",
			Relational: &Relational{SQL: "SELECT * FROM products"},
		},
		{
			Name:       "product_by_id",
			Section:    SectionCRUD,
			Collection: schema.Products,
			Kind:       KindFind,
			Filter:     bson.D{{Key: "_id", Value: ProductID}},
			Comment:    "A single product looked up by id.",
			Relational: &Relational{SQL: "SELECT * FROM products WHERE id = $1", Args: []interface{}{ProductID}},
		},
		{
			Name:       "update_user_contact",
			Section:    SectionCRUD,
			Collection: schema.Users,
			Kind:       KindUpdateOne,
			Filter:     bson.D{{Key: "_id", Value: ContactUserID}},
			Update: bson.D{{Key: "$set", Value: bson.D{
				{Key: "name", Value: "Gabriela Gómez R."},
				{Key: "phone", Value: "3005552211"},
			}}},
			Comment: "Change a user's name and phone. matchedCount=1, modifiedCount=1 if the id exists.",
			Relational: &Relational{
				SQL: "UPDATE users SET name = $2, phone = $3 WHERE id = $1" +
					" AND (name IS NULL OR name <> $2 OR phone IS NULL OR phone <> $3)",
				Matched: "SELECT COUNT(*) FROM users WHERE id = $1",
				Args:    []interface{}{ContactUserID, "Gabriela Gómez R.", "3005552211"},
			},
		},
		{
			Name:        "delete_product",
			Section:     SectionCRUD,
			Collection:  schema.Products,
			Kind:        KindDeleteOne,
			Filter:      bson.D{{Key: "_id", Value: DeletedProduct}},
			Comment:     "Delete one product by id.",
			Destructive: true,
			Relational:  &Relational{SQL: "DELETE FROM products WHERE id = $1", Args: []interface{}{DeletedProduct}},
		},
		{
			Name:       "delete_products_by_ids",
			Section:    SectionCRUD,
			Collection: schema.Products,
			Kind:       KindDeleteMany,
			Filter: bson.D{{Key: "_id", Value: bson.D{
				{Key: "$in", Value: bson.A{DeletedProduct, DeletedProduct2}},
			}}},
			Comment:     "Delete several products by id.",
			Destructive: true,
			Relational: &Relational{
				SQL:  "DELETE FROM products WHERE id IN ($1, $2)",
				Args: []interface{}{DeletedProduct, DeletedProduct2},
			},
		},
		{
			Name:        "drop_reviews",
			Section:     SectionCRUD,
			Collection:  schema.Reviews,
			Kind:        KindDrop,
			Comment:     "Drop the whole reviews collection.",
			Destructive: true,
		},
		{
			Name:        "drop_database",
			Section:     SectionCRUD,
			Kind:        KindDropDatabase,
			Comment:     "Drop the entire database. Careful!",
			Destructive: true,
		},
	}
}

func filterQueries() []Query {
	return []Query{
		{
			Name:       "low_stock_products",
			Section:    SectionFilters,
			Collection: schema.Products,
			Kind:       KindFind,
			Filter:     bson.D{{Key: "stock", Value: bson.D{{Key: "$lt", Value: 20}}}},
			Projection: bson.D{{Key: "name", Value: 1}, {Key: "stock", Value: 1}},
			Comment:    "Products with few units left, projected to name and stock.",
			Relational: &Relational{SQL: "SELECT id, name, stock FROM products WHERE stock < $1", Args: []interface{}{20}},
		},
		{
			Name:       "users_registered_since_2024",
			Section:    SectionFilters,
			Collection: schema.Users,
			Kind:       KindFind,
			Filter:     bson.D{{Key: "registration_date", Value: bson.D{{Key: "$gte", Value: "2024-01-01"}}}},
			Projection: bson.D{{Key: "name", Value: 1}, {Key: "registration_date", Value: 1}},
			Comment:    "Users registered from 2024 onwards.",
			Relational: &Relational{
				SQL:  "SELECT id, name, registration_date FROM users WHERE registration_date >= $1",
				Args: []interface{}{"2024-01-01"},
			},
		},
		{
			Name:       "products_in_categories",
			Section:    SectionFilters,
			Collection: schema.Products,
			Kind:       KindFind,
			Filter: bson.D{{Key: "categoria_id", Value: bson.D{
				{Key: "$in", Value: bson.A{CategoryA, CategoryB}},
			}}},
			Comment: "Products belonging to any of several categories.",
			Relational: &Relational{
				SQL:  "SELECT * FROM products WHERE categoria_id IN ($1, $2)",
				Args: []interface{}{CategoryA, CategoryB},
			},
		},
		{
			Name:       "active_products_in_stock",
			Section:    SectionFilters,
			Collection: schema.Products,
			Kind:       KindFind,
			Filter: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "active", Value: true}},
				bson.D{{Key: "stock", Value: bson.D{{Key: "$gt", Value: 3}}}},
			}}},
			Comment: "Active products with more than 3 units.",
			Relational: &Relational{
				SQL:  "SELECT * FROM products WHERE active = $1 AND stock > $2",
				Args: []interface{}{true, 3},
			},
		},
		{
			Name:       "client_or_premium_users",
			Section:    SectionFilters,
			Collection: schema.Users,
			Kind:       KindFind,
			Filter: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "role", Value: schema.RoleCliente}},
				bson.D{{Key: "role", Value: schema.RolePremium}},
			}}},
			Comment: "Users whose role is cliente or premium.",
			Relational: &Relational{
				SQL:  "SELECT * FROM users WHERE role = $1 OR role = $2",
				Args: []interface{}{schema.RoleCliente, schema.RolePremium},
			},
		},
		{
			Name:       "undelivered_orders",
			Section:    SectionFilters,
			Collection: schema.Orders,
			Kind:       KindFind,
			Filter:     bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: schema.StatusEntregado}}}},
			Comment:    "Orders not yet delivered: pending, paid or in progress.",
			Relational: &Relational{
				SQL:  "SELECT * FROM orders WHERE status <> $1",
				Args: []interface{}{schema.StatusEntregado},
			},
		},
	}
}

func group(id interface{}, fields ...bson.E) bson.D {
	doc := bson.D{{Key: "_id", Value: id}}
	return bson.D{{Key: "$group", Value: append(doc, fields...)}}
}

func sortDesc(field string) bson.D {
	return bson.D{{Key: "$sort", Value: bson.D{{Key: field, Value: -1}}}}
}

func limit(n int) bson.D {
	return bson.D{{Key: "$limit", Value: n}}
}

func sum(field string, value interface{}) bson.E {
	return bson.E{Key: field, Value: bson.D{{Key: "$sum", Value: value}}}
}

func avg(field string, value interface{}) bson.E {
	return bson.E{Key: field, Value: bson.D{{Key: "$avg", Value: value}}}
}

func aggregationQueries() []Query {
	return []Query{
		{
			Name:       "products_per_category",
			Section:    SectionAggregations,
			Collection: schema.Products,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$categoria_id", sum("total_products", 1)),
			},
			Comment: "Number of products in each category.",
			Relational: &Relational{
				SQL: "SELECT categoria_id AS _id, COUNT(*) AS total_products FROM products GROUP BY categoria_id",
			},
		},
		{
			Name:       "avg_stock_per_brand",
			Section:    SectionAggregations,
			Collection: schema.Products,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$brand", avg("avg_stock", "$stock")),
			},
			Comment: "Average stock of each brand.",
			Relational: &Relational{
				SQL: "SELECT brand AS _id, AVG(stock) AS avg_stock FROM products GROUP BY brand",
			},
		},
		{
			Name:       "spend_per_user",
			Section:    SectionAggregations,
			Collection: schema.Orders,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$user_id", sum("total_spent", "$summary.total.value"), sum("orders_placed", 1)),
				sortDesc("total_spent"),
			},
			Comment: "Total spend and number of orders per user, biggest spenders first.",
			Relational: &Relational{
				SQL: "SELECT user_id AS _id, SUM(total_value) AS total_spent, COUNT(*) AS orders_placed " +
					"FROM orders GROUP BY user_id ORDER BY total_spent DESC",
			},
		},
		{
			Name:       "rating_per_product",
			Section:    SectionAggregations,
			Collection: schema.Reviews,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$product_id", avg("avg_rating", "$rating"), sum("total_reviews", 1)),
				sortDesc("avg_rating"),
			},
			Comment: "Average rating and review count per product, best rated first.",
			Relational: &Relational{
				SQL: "SELECT product_id AS _id, AVG(rating) AS avg_rating, COUNT(*) AS total_reviews " +
					"FROM reviews GROUP BY product_id ORDER BY avg_rating DESC",
			},
		},
		{
			Name:       "top_reviewed_products",
			Section:    SectionAggregations,
			Collection: schema.Reviews,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$product_id", sum("total_reviews", 1)),
				sortDesc("total_reviews"),
				limit(5),
			},
			Comment: "Top 5 products with the most reviews.",
			Relational: &Relational{
				SQL: "SELECT product_id AS _id, COUNT(*) AS total_reviews " +
					"FROM reviews GROUP BY product_id ORDER BY total_reviews DESC LIMIT 5",
			},
		},
		{
			Name:       "stock_per_category",
			Section:    SectionAggregations,
			Collection: schema.Products,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$categoria_id", sum("total_stock", "$stock")),
			},
			Comment: "Total stock held in each category.",
			Relational: &Relational{
				SQL: "SELECT categoria_id AS _id, SUM(stock) AS total_stock FROM products GROUP BY categoria_id",
			},
		},
		{
			Name:       "inventory_value_per_brand",
			Section:    SectionAggregations,
			Collection: schema.Products,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group("$brand", sum("inventory_value", bson.D{
					{Key: "$multiply", Value: bson.A{"$price.value", "$stock"}},
				})),
				sortDesc("inventory_value"),
			},
			Comment: "Inventory value (price.value * stock) accumulated per brand.",
			Relational: &Relational{
				SQL: "SELECT brand AS _id, SUM(price_value * stock) AS inventory_value " +
					"FROM products GROUP BY brand ORDER BY inventory_value DESC",
			},
		},
		{
			Name:       "avg_order_value",
			Section:    SectionAggregations,
			Collection: schema.Orders,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				group(nil, avg("avg_order_value", "$summary.total.value")),
			},
			Comment: "Average value over all orders.",
			Relational: &Relational{
				SQL: "SELECT NULL AS _id, AVG(total_value) AS avg_order_value FROM orders",
			},
		},
		{
			Name:       "top_selling_products",
			Section:    SectionAggregations,
			Collection: schema.Orders,
			Kind:       KindAggregate,
			Pipeline: mongo.Pipeline{
				{{Key: "$unwind", Value: "$items"}},
				group("$items.product_id", sum("total_sold", "$items.quantity")),
				sortDesc("total_sold"),
				limit(5),
			},
			Comment: "Top 5 best selling products, summing item quantities.",
			Relational: &Relational{
				SQL: "SELECT product_id AS _id, SUM(quantity) AS total_sold " +
					"FROM order_items GROUP BY product_id ORDER BY total_sold DESC LIMIT 5",
			},
		},
	}
}
