package ecommerce

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/database"
	"mongo-catalog/internal/schema"
)

const Currency = "COP"

type Options struct {
	Categories int   `yaml:"categories"`
	Products   int   `yaml:"products"`
	Users      int   `yaml:"users"`
	Orders     int   `yaml:"orders"`
	Reviews    int   `yaml:"reviews"`
	Seed       int64 `yaml:"seed"`
}

func DefaultOptions() Options {
	return Options{
		Categories: 8,
		Products:   60,
		Users:      40,
		Orders:     120,
		Reviews:    200,
		Seed:       1,
	}
}

// Dataset is a generated store that every catalog query has something to
// work on.
type Dataset struct {
	Categories []schema.Category
	Products   []schema.Product
	Users      []schema.User
	Orders     []schema.Order
	Reviews    []schema.Review
}

var (
	brands       = []string{"Samsung", "Lenovo", "Logitech", "Xiaomi", "Sony", "HP"}
	productNames = []string{"Mouse", "Teclado", "Monitor", "Audífonos", "Cargador", "Parlante", "Cámara", "Tablet"}
	categoryName = []string{"Periféricos", "Audio", "Computadores", "Accesorios", "Video", "Hogar", "Gaming", "Oficina"}
	firstNames   = []string{"Gabriela", "Andrés", "Camila", "Julián", "Valentina", "Santiago", "Laura", "Mateo"}
	lastNames    = []string{"Gómez", "Rodríguez", "Pinzón", "Martínez", "López", "García"}
	statuses     = []string{schema.StatusPendiente, schema.StatusPagado, schema.StatusEnviado, schema.StatusEntregado, schema.StatusCancelado}
	reviewTexts  = []string{"Excelente producto", "Cumple lo prometido", "Llegó tarde", "Buena relación calidad-precio", "No lo recomiendo"}
)

type generator struct {
	rng *rand.Rand
}

func (g *generator) id(prefix string) string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		u = uuid.New()
	}
	return prefix + "_" + strings.ReplaceAll(u.String(), "-", "")[:10]
}

func (g *generator) pick(list []string) string {
	return list[g.rng.Intn(len(list))]
}

func (g *generator) price() decimal.Decimal {
	return decimal.NewFromFloat(5000 + g.rng.Float64()*995000).Round(2)
}

// Generate builds a dataset. The ids the catalog queries reference always
// exist; the rest is drawn from a generator seeded with opts.Seed.
func Generate(opts Options) *Dataset {
	g := &generator{rng: rand.New(rand.NewSource(opts.Seed))}
	d := &Dataset{}

	categoryIDs := []string{catalog.CategoryA, catalog.CategoryB}
	for len(categoryIDs) < opts.Categories {
		categoryIDs = append(categoryIDs, g.id("cat"))
	}
	for i, id := range categoryIDs {
		d.Categories = append(d.Categories, schema.Category{
			ID:          id,
			Name:        categoryName[i%len(categoryName)],
			Description: fmt.Sprintf("Categoría %d", i+1),
		})
	}

	productIDs := []string{catalog.ProductID, catalog.DeletedProduct, catalog.DeletedProduct2}
	for len(productIDs) < opts.Products {
		productIDs = append(productIDs, g.id("prd"))
	}
	prices := make(map[string]decimal.Decimal, len(productIDs))
	for i, id := range productIDs {
		brand := g.pick(brands)
		price := g.price()
		prices[id] = price
		d.Products = append(d.Products, schema.Product{
			ID:         id,
			Name:       fmt.Sprintf("%s %s %d", g.pick(productNames), brand, i+1),
			Brand:      brand,
			Stock:      g.rng.Intn(60),
			Price:      schema.Money{Value: price.InexactFloat64(), Currency: Currency},
			CategoryID: d.Categories[g.rng.Intn(len(d.Categories))].ID,
			Active:     g.rng.Intn(5) != 0,
		})
	}

	userIDs := []string{catalog.ContactUserID}
	for len(userIDs) < opts.Users {
		userIDs = append(userIDs, g.id("usr"))
	}
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range userIDs {
		role := schema.RoleCliente
		switch n := g.rng.Intn(10); {
		case n < 3:
			role = schema.RolePremium
		case n == 9:
			role = schema.RoleAdmin
		}
		name := g.pick(firstNames) + " " + g.pick(lastNames)
		d.Users = append(d.Users, schema.User{
			ID:               id,
			Name:             name,
			Email:            strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@correo.co",
			Phone:            fmt.Sprintf("300%07d", g.rng.Intn(10000000)),
			Role:             role,
			RegistrationDate: start.AddDate(0, 0, g.rng.Intn(1277)).Format("2006-01-02"),
		})
	}

	if len(d.Products) > 0 && len(d.Users) > 0 {
		for i := 0; i < opts.Orders; i++ {
			order := schema.Order{
				ID:     g.id("ped"),
				UserID: d.Users[g.rng.Intn(len(d.Users))].ID,
				Status: g.pick(statuses),
			}
			total := decimal.Zero
			for n := 1 + g.rng.Intn(4); n > 0; n-- {
				p := d.Products[g.rng.Intn(len(d.Products))]
				qty := 1 + g.rng.Intn(5)
				order.Items = append(order.Items, schema.OrderItem{
					ProductID: p.ID,
					Quantity:  qty,
					UnitPrice: p.Price.Value,
				})
				total = total.Add(prices[p.ID].Mul(decimal.NewFromInt(int64(qty))))
			}
			order.Summary.Total = schema.Money{Value: total.Round(2).InexactFloat64(), Currency: Currency}
			d.Orders = append(d.Orders, order)
		}
	}

	if len(d.Products) > 0 {
		for i := 0; i < opts.Reviews; i++ {
			// Skewed towards the first products so review counts differ.
			p := d.Products[g.rng.Intn(g.rng.Intn(len(d.Products))+1)]
			review := schema.Review{
				ID:        g.id("res"),
				ProductID: p.ID,
				Rating:    float64(1 + g.rng.Intn(5)),
				Text:      g.pick(reviewTexts),
			}
			if len(d.Users) > 0 {
				review.UserID = d.Users[g.rng.Intn(len(d.Users))].ID
			}
			d.Reviews = append(d.Reviews, review)
		}
	}

	return d
}

// Documents returns the documents of one collection ready for Insert.
func (d *Dataset) Documents(collection string) []interface{} {
	var docs []interface{}
	switch collection {
	case schema.Categories:
		for _, c := range d.Categories {
			docs = append(docs, c)
		}
	case schema.Products:
		for _, p := range d.Products {
			docs = append(docs, p)
		}
	case schema.Users:
		for _, u := range d.Users {
			docs = append(docs, u)
		}
	case schema.Orders:
		for _, o := range d.Orders {
			docs = append(docs, o)
		}
	case schema.Reviews:
		for _, r := range d.Reviews {
			docs = append(docs, r)
		}
	}
	return docs
}

// Load inserts the dataset into db, one transaction for the whole load.
func (d *Dataset) Load(ctx context.Context, db database.DatabaseDriver) error {
	return db.ExecuteTx(ctx, func(ctx context.Context) error {
		for _, collection := range schema.Collections {
			if err := db.Insert(ctx, collection, d.Documents(collection)...); err != nil {
				return fmt.Errorf("load %s: %w", collection, err)
			}
		}
		return nil
	})
}
