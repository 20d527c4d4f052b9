package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/schema"
)

type MongoDriver struct {
	// Database defaults to catalog.DatabaseName.
	Database string
	// Transactions needs a replica set or mongos.
	Transactions bool

	client *mongo.Client
	db     *mongo.Database
}

func (md *MongoDriver) Name() string { return "mongo" }

func (md *MongoDriver) Connect(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}
	name := md.Database
	if name == "" {
		name = catalog.DatabaseName
	}
	md.client = client
	md.db = client.Database(name)
	return nil
}

func (md *MongoDriver) Close() error {
	if md.client == nil {
		return nil
	}
	return md.client.Disconnect(context.Background())
}

func (md *MongoDriver) Reset(ctx context.Context) error {
	if md.db == nil {
		return ErrNotConnected
	}
	return md.db.Drop(ctx)
}

// mongoIndexes backs the fields the catalog filters and groups on.
var mongoIndexes = map[string][]string{
	schema.Products: {"categoria_id", "brand", "stock"},
	schema.Users:    {"role", "registration_date"},
	schema.Orders:   {"user_id", "status"},
	schema.Reviews:  {"product_id"},
}

func (md *MongoDriver) Migrate(ctx context.Context) error {
	if md.db == nil {
		return ErrNotConnected
	}
	for _, collection := range schema.Collections {
		fields := mongoIndexes[collection]
		if len(fields) == 0 {
			continue
		}
		models := make([]mongo.IndexModel, 0, len(fields))
		for _, f := range fields {
			models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}})
		}
		if _, err := md.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (md *MongoDriver) ExecuteTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if md.client == nil {
		return ErrNotConnected
	}
	if !md.Transactions {
		return fn(ctx)
	}
	session, err := md.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (md *MongoDriver) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	if md.db == nil {
		return ErrNotConnected
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := md.db.Collection(collection).InsertMany(ctx, docs)
	return err
}

func (md *MongoDriver) Execute(ctx context.Context, q catalog.Query) (*Outcome, error) {
	if md.db == nil {
		return nil, ErrNotConnected
	}
	out := &Outcome{}
	collection := md.db.Collection(q.Collection)

	switch q.Kind {
	case catalog.KindListCollections:
		names, err := md.db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return nil, err
		}
		sort.Strings(names)
		out.Collections = names
	case catalog.KindFind:
		opts := options.Find()
		if len(q.Projection) > 0 {
			opts.SetProjection(q.Projection)
		}
		cursor, err := collection.Find(ctx, filterOrEmpty(q.Filter), opts)
		if err != nil {
			return nil, err
		}
		docs := []bson.M{}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		out.Documents = docs
	case catalog.KindUpdateOne:
		res, err := collection.UpdateOne(ctx, filterOrEmpty(q.Filter), q.Update)
		if err != nil {
			return nil, err
		}
		out.MatchedCount = res.MatchedCount
		out.ModifiedCount = res.ModifiedCount
	case catalog.KindDeleteOne:
		res, err := collection.DeleteOne(ctx, filterOrEmpty(q.Filter))
		if err != nil {
			return nil, err
		}
		out.DeletedCount = res.DeletedCount
	case catalog.KindDeleteMany:
		res, err := collection.DeleteMany(ctx, filterOrEmpty(q.Filter))
		if err != nil {
			return nil, err
		}
		out.DeletedCount = res.DeletedCount
	case catalog.KindAggregate:
		cursor, err := collection.Aggregate(ctx, q.Pipeline)
		if err != nil {
			return nil, err
		}
		docs := []bson.M{}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		out.Documents = docs
	case catalog.KindDrop:
		if err := collection.Drop(ctx); err != nil {
			return nil, err
		}
	case catalog.KindDropDatabase:
		if err := md.db.Drop(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported kind %q", q.Kind)
	}
	return out, nil
}
