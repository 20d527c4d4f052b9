package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/schema"
)

type PostgresDriver struct {
	pool *pgxpool.Pool
}

// pgQuerier is satisfied by both the pool and a transaction.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (pd *PostgresDriver) Name() string { return "postgres" }

func (pd *PostgresDriver) Connect(dsn string) error {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return err
	}
	pd.pool = pool
	return nil
}

func (pd *PostgresDriver) Close() error {
	if pd.pool != nil {
		pd.pool.Close()
	}
	return nil
}

func (pd *PostgresDriver) querier(ctx context.Context) (pgQuerier, error) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, nil
	}
	if pd.pool == nil {
		return nil, ErrNotConnected
	}
	return pd.pool, nil
}

func (pd *PostgresDriver) tables(ctx context.Context, q pgQuerier) ([]string, error) {
	rows, err := q.Query(ctx, "SELECT tablename FROM pg_tables WHERE schemaname = 'public'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		names = append(names, tableName)
	}
	sort.Strings(names)
	return names, rows.Err()
}

func (pd *PostgresDriver) Reset(ctx context.Context) error {
	q, err := pd.querier(ctx)
	if err != nil {
		return err
	}
	names, err := pd.tables(ctx, q)
	if err != nil {
		return err
	}
	for _, tableName := range names {
		if _, err := q.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tableName}.Sanitize())); err != nil {
			return err
		}
	}
	return nil
}

func (pd *PostgresDriver) Migrate(ctx context.Context) error {
	q, err := pd.querier(ctx)
	if err != nil {
		return err
	}
	for _, ddl := range schema.DDL() {
		if _, err := q.Exec(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (pd *PostgresDriver) ExecuteTx(ctx context.Context, txFunc func(ctx context.Context) error) (err error) {
	if pd.pool == nil {
		return ErrNotConnected
	}
	tx, err := pd.pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p) // re-panic after rollback
		} else if err != nil {
			_ = tx.Rollback(ctx) // err is non-nil; don't change it
		} else {
			err = tx.Commit(ctx) // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(withTx(ctx, tx))
	return err
}

func (pd *PostgresDriver) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	q, err := pd.querier(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		rows, err := schema.Rows(collection, doc)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := q.Exec(ctx, insertStatement(row), row.Values...); err != nil {
				return fmt.Errorf("insert into %s: %w", row.Table, err)
			}
		}
	}
	return nil
}

func (pd *PostgresDriver) Execute(ctx context.Context, q catalog.Query) (*Outcome, error) {
	db, err := pd.querier(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}

	switch q.Kind {
	case catalog.KindListCollections:
		out.Collections, err = pd.tables(ctx, db)
		return out, err
	case catalog.KindDrop:
		for _, stmt := range dropStatements(q.Collection) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return nil, err
			}
		}
		return out, nil
	case catalog.KindDropDatabase:
		return out, pd.Reset(ctx)
	}

	rel, err := relationalForm(q)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case catalog.KindFind, catalog.KindAggregate:
		rows, err := db.Query(ctx, rel.SQL, rel.Args...)
		if err != nil {
			return nil, err
		}
		out.Documents, err = pgRowsToDocs(rows)
		if err != nil {
			return nil, err
		}
	case catalog.KindUpdateOne, catalog.KindDeleteOne, catalog.KindDeleteMany:
		var matched int64 = -1
		if q.Kind == catalog.KindUpdateOne && rel.Matched != "" {
			stmt, args, err := compact(rel.Matched, rel.Args)
			if err != nil {
				return nil, err
			}
			if err := db.QueryRow(ctx, stmt, args...).Scan(&matched); err != nil {
				return nil, err
			}
		}
		tag, err := db.Exec(ctx, rel.SQL, rel.Args...)
		if err != nil {
			return nil, err
		}
		if q.Kind == catalog.KindUpdateOne {
			out.MatchedCount, out.ModifiedCount = updateCounts(matched, tag.RowsAffected())
		} else {
			out.DeletedCount = tag.RowsAffected()
		}
	default:
		return nil, fmt.Errorf("unsupported kind %q", q.Kind)
	}
	return out, nil
}

func pgRowsToDocs(rows pgx.Rows) ([]bson.M, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	docs := []bson.M{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		doc := make(bson.M, len(fields))
		for i, f := range fields {
			doc[columnKey(f.Name)] = pgValue(values[i])
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// pgValue converts pgx result values into bson-friendly ones.
func pgValue(v interface{}) interface{} {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	}
	return v
}
