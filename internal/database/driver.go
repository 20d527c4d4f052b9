package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"mongo-catalog/internal/catalog"
)

var (
	ErrDestructive      = errors.New("destructive query refused")
	ErrNoRelationalForm = errors.New("query has no relational form")
	ErrNotConnected     = errors.New("driver is not connected")
)

type Workload interface {
	Setup(ctx context.Context, db DatabaseDriver, logger *zap.Logger) error
	Run(ctx context.Context, db DatabaseDriver, concurrency int, duration time.Duration, logger *zap.Logger) (*Result, error)
	Teardown(ctx context.Context, db DatabaseDriver, logger *zap.Logger) error
}

type Result struct {
	Operations     int64         `json:"operations"`
	Errors         int64         `json:"errors"`
	Throughput     float64       `json:"throughput"`
	P95Latency     time.Duration `json:"p95_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	AverageLatency time.Duration `json:"average_latency"`
	ErrorRate      float64       `json:"error_rate"`
	TotalTime      time.Duration `json:"total_time"`
	DataIntegrity  bool          `json:"data_integrity"`
}

// Outcome is what executing one catalog query produced.
type Outcome struct {
	Query         string
	Kind          catalog.Kind
	Documents     []bson.M
	MatchedCount  int64
	ModifiedCount int64
	DeletedCount  int64
	Collections   []string
}

// JSON renders the outcome as relaxed Extended JSON.
func (o *Outcome) JSON() ([]byte, error) {
	doc := bson.D{
		{Key: "query", Value: o.Query},
		{Key: "kind", Value: string(o.Kind)},
	}
	switch o.Kind {
	case catalog.KindFind, catalog.KindAggregate:
		docs := o.Documents
		if docs == nil {
			docs = []bson.M{}
		}
		doc = append(doc, bson.E{Key: "count", Value: len(docs)}, bson.E{Key: "documents", Value: docs})
	case catalog.KindUpdateOne:
		doc = append(doc, bson.E{Key: "matchedCount", Value: o.MatchedCount}, bson.E{Key: "modifiedCount", Value: o.ModifiedCount})
	case catalog.KindDeleteOne, catalog.KindDeleteMany:
		doc = append(doc, bson.E{Key: "deletedCount", Value: o.DeletedCount})
	case catalog.KindListCollections:
		doc = append(doc, bson.E{Key: "collections", Value: o.Collections})
	}
	return bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
}

type DatabaseDriver interface {
	Name() string
	Connect(dsn string) error
	Close() error
	// Reset drops everything the driver created.
	Reset(ctx context.Context) error
	// Migrate prepares tables or indexes for the five collections.
	Migrate(ctx context.Context) error
	// ExecuteTx runs fn in a transaction where the engine supports one.
	ExecuteTx(ctx context.Context, fn func(ctx context.Context) error) error
	Insert(ctx context.Context, collection string, docs ...interface{}) error
	Execute(ctx context.Context, q catalog.Query) (*Outcome, error)
}

// Execute validates q, applies the destructive guard and runs it on db.
func Execute(ctx context.Context, db DatabaseDriver, q catalog.Query, allowDestructive bool) (*Outcome, error) {
	if err := catalog.Validate(q); err != nil {
		return nil, err
	}
	if q.Destructive && !allowDestructive {
		return nil, fmt.Errorf("%w: %s", ErrDestructive, q.Name)
	}
	out, err := db.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", q.Name, db.Name(), err)
	}
	out.Query = q.Name
	out.Kind = q.Kind
	return out, nil
}

type txKey struct{}

func withTx(ctx context.Context, tx interface{}) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func filterOrEmpty(f bson.D) bson.D {
	if f == nil {
		return bson.D{}
	}
	return f
}
