package schema

const (
	Categories = "categories"
	Products   = "products"
	Users      = "users"
	Orders     = "orders"
	Reviews    = "reviews"
)

// Collections lists the collections of the store in load order.
var Collections = []string{Categories, Products, Users, Orders, Reviews}

// IsCollection reports whether name is one of the store's collections.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

type Money struct {
	Value    float64 `bson:"value" json:"value"`
	Currency string  `bson:"currency,omitempty" json:"currency,omitempty"`
}

type Category struct {
	ID          string `bson:"_id" json:"_id"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

type Product struct {
	ID         string `bson:"_id" json:"_id"`
	Name       string `bson:"name" json:"name"`
	Brand      string `bson:"brand" json:"brand"`
	Stock      int    `bson:"stock" json:"stock"`
	Price      Money  `bson:"price" json:"price"`
	CategoryID string `bson:"categoria_id" json:"categoria_id"`
	Active     bool   `bson:"active" json:"active"`
}

const (
	RoleCliente = "cliente"
	RolePremium = "premium"
	RoleAdmin   = "admin"
)

type User struct {
	ID               string `bson:"_id" json:"_id"`
	Name             string `bson:"name" json:"name"`
	Email            string `bson:"email,omitempty" json:"email,omitempty"`
	Phone            string `bson:"phone" json:"phone"`
	Role             string `bson:"role" json:"role"`
	RegistrationDate string `bson:"registration_date" json:"registration_date"`
}

const (
	StatusPendiente = "pendiente"
	StatusPagado    = "pagado"
	StatusEnviado   = "enviado"
	StatusEntregado = "entregado"
	StatusCancelado = "cancelado"
)

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
}

type OrderSummary struct {
	Total Money `bson:"total" json:"total"`
}

type Order struct {
	ID      string       `bson:"_id" json:"_id"`
	UserID  string       `bson:"user_id" json:"user_id"`
	Status  string       `bson:"status" json:"status"`
	Items   []OrderItem  `bson:"items" json:"items"`
	Summary OrderSummary `bson:"summary" json:"summary"`
}

type Review struct {
	ID        string  `bson:"_id" json:"_id"`
	ProductID string  `bson:"product_id" json:"product_id"`
	UserID    string  `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Rating    float64 `bson:"rating" json:"rating"`
	Text      string  `bson:"text" json:"text"`
}

/*
MongoDB document structure:

categories: { _id, name, description }

products: {
  _id: <string>,
  name: <string>,
  brand: <string>,
  stock: <int>,
  price: { value: <number>, currency: <string> },
  categoria_id: <string>,
  active: <bool>
}

users: { _id, name, email, phone, role, registration_date: "YYYY-MM-DD" }

orders: {
  _id: <string>,
  user_id: <string>,
  status: <string>,
  items: [ { product_id: <string>, quantity: <int>, unit_price: <number> } ],
  summary: { total: { value: <number>, currency: <string> } }
}

reviews: { _id, product_id, user_id, rating: <number>, text }

*/
