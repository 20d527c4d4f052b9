package database

import (
	"context"
	"fmt"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/memdb"
)

// MemoryDriver evaluates queries against an in-process memdb.Store. The dsn
// passed to Connect is ignored.
type MemoryDriver struct {
	store *memdb.Store
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{store: memdb.New()}
}

func (m *MemoryDriver) Name() string { return "memory" }

func (m *MemoryDriver) Connect(dsn string) error {
	if m.store == nil {
		m.store = memdb.New()
	}
	return nil
}

func (m *MemoryDriver) Close() error { return nil }

func (m *MemoryDriver) Store() *memdb.Store { return m.store }

func (m *MemoryDriver) Reset(ctx context.Context) error {
	if m.store == nil {
		return ErrNotConnected
	}
	m.store.DropAll()
	return nil
}

func (m *MemoryDriver) Migrate(ctx context.Context) error { return nil }

func (m *MemoryDriver) ExecuteTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MemoryDriver) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	if m.store == nil {
		return ErrNotConnected
	}
	return m.store.Insert(collection, docs...)
}

func (m *MemoryDriver) Execute(ctx context.Context, q catalog.Query) (*Outcome, error) {
	if m.store == nil {
		return nil, ErrNotConnected
	}
	out := &Outcome{}
	var err error

	switch q.Kind {
	case catalog.KindListCollections:
		out.Collections = m.store.Collections()
	case catalog.KindFind:
		out.Documents, err = m.store.Find(q.Collection, q.Filter, q.Projection)
	case catalog.KindUpdateOne:
		var res memdb.UpdateResult
		res, err = m.store.UpdateOne(q.Collection, q.Filter, q.Update)
		out.MatchedCount, out.ModifiedCount = res.MatchedCount, res.ModifiedCount
	case catalog.KindDeleteOne:
		out.DeletedCount, err = m.store.DeleteOne(q.Collection, q.Filter)
	case catalog.KindDeleteMany:
		out.DeletedCount, err = m.store.DeleteMany(q.Collection, q.Filter)
	case catalog.KindAggregate:
		out.Documents, err = m.store.Aggregate(q.Collection, q.Pipeline)
	case catalog.KindDrop:
		m.store.Drop(q.Collection)
	case catalog.KindDropDatabase:
		m.store.DropAll()
	default:
		err = fmt.Errorf("unsupported kind %q", q.Kind)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
