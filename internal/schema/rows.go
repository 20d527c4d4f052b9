package schema

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrUnknownCollection = errors.New("unknown collection")

// Row is one INSERT into the relational mirror.
type Row struct {
	Table   string
	Columns []string
	Values  []interface{}
}

// Rows flattens a document of the given collection into table rows.
// Documents go through a bson round trip so bson.M, bson.D and the typed
// structs of this package are all accepted.
func Rows(collection string, doc interface{}) ([]Row, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s document: %w", collection, err)
	}

	switch collection {
	case Categories:
		var c Category
		if err := bson.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return []Row{{
			Table:   Categories,
			Columns: []string{"id", "name", "description"},
			Values:  []interface{}{c.ID, c.Name, c.Description},
		}}, nil
	case Products:
		var p Product
		if err := bson.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return []Row{{
			Table:   Products,
			Columns: []string{"id", "name", "brand", "stock", "price_value", "price_currency", "categoria_id", "active"},
			Values:  []interface{}{p.ID, p.Name, p.Brand, p.Stock, p.Price.Value, p.Price.Currency, p.CategoryID, p.Active},
		}}, nil
	case Users:
		var u User
		if err := bson.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		return []Row{{
			Table:   Users,
			Columns: []string{"id", "name", "email", "phone", "role", "registration_date"},
			Values:  []interface{}{u.ID, u.Name, u.Email, u.Phone, u.Role, u.RegistrationDate},
		}}, nil
	case Orders:
		var o Order
		if err := bson.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
		rows := []Row{{
			Table:   Orders,
			Columns: []string{"id", "user_id", "status", "total_value", "total_currency"},
			Values:  []interface{}{o.ID, o.UserID, o.Status, o.Summary.Total.Value, o.Summary.Total.Currency},
		}}
		for i, item := range o.Items {
			rows = append(rows, Row{
				Table:   "order_items",
				Columns: []string{"order_id", "line_no", "product_id", "quantity", "unit_price"},
				Values:  []interface{}{o.ID, i, item.ProductID, item.Quantity, item.UnitPrice},
			})
		}
		return rows, nil
	case Reviews:
		var r Review
		if err := bson.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return []Row{{
			Table:   Reviews,
			Columns: []string{"id", "product_id", "user_id", "rating", "text"},
			Values:  []interface{}{r.ID, r.ProductID, r.UserID, r.Rating, r.Text},
		}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
}
