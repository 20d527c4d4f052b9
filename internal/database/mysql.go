package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/bson"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/schema"
)

type MySQLDriver struct {
	db *sql.DB
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (md *MySQLDriver) Name() string { return "mysql" }

func (md *MySQLDriver) Connect(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return err
	}
	md.db = db
	return nil
}

func (md *MySQLDriver) Close() error {
	if md.db == nil {
		return nil
	}
	return md.db.Close()
}

func (md *MySQLDriver) querier(ctx context.Context) (sqlQuerier, error) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx, nil
	}
	if md.db == nil {
		return nil, ErrNotConnected
	}
	return md.db, nil
}

func (md *MySQLDriver) ExecuteTx(ctx context.Context, txFunc func(ctx context.Context) error) error {
	if md.db == nil {
		return ErrNotConnected
	}
	tx, err := md.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := txFunc(withTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (md *MySQLDriver) tables(ctx context.Context, q sqlQuerier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

func (md *MySQLDriver) Reset(ctx context.Context) error {
	q, err := md.querier(ctx)
	if err != nil {
		return err
	}
	names, err := md.tables(ctx, q)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := q.ExecContext(ctx, "DROP TABLE IF EXISTS `"+strings.ReplaceAll(name, "`", "``")+"`"); err != nil {
			return err
		}
	}
	return nil
}

func (md *MySQLDriver) Migrate(ctx context.Context) error {
	q, err := md.querier(ctx)
	if err != nil {
		return err
	}
	for _, ddl := range schema.DDL() {
		if _, err := q.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (md *MySQLDriver) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	q, err := md.querier(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		rows, err := schema.Rows(collection, doc)
		if err != nil {
			return err
		}
		for _, row := range rows {
			stmt, args, err := rebind(insertStatement(row), row.Values)
			if err != nil {
				return err
			}
			if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("insert into %s: %w", row.Table, err)
			}
		}
	}
	return nil
}

func (md *MySQLDriver) Execute(ctx context.Context, q catalog.Query) (*Outcome, error) {
	db, err := md.querier(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{}

	switch q.Kind {
	case catalog.KindListCollections:
		out.Collections, err = md.tables(ctx, db)
		return out, err
	case catalog.KindDrop:
		for _, stmt := range dropStatements(q.Collection) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return nil, err
			}
		}
		return out, nil
	case catalog.KindDropDatabase:
		return out, md.Reset(ctx)
	}

	rel, err := relationalForm(q)
	if err != nil {
		return nil, err
	}
	stmt, args, err := rebind(rel.SQL, rel.Args)
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case catalog.KindFind, catalog.KindAggregate:
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		out.Documents, err = sqlRowsToDocs(rows)
		if err != nil {
			return nil, err
		}
	case catalog.KindUpdateOne, catalog.KindDeleteOne, catalog.KindDeleteMany:
		var matched int64 = -1
		if q.Kind == catalog.KindUpdateOne && rel.Matched != "" {
			if matched, err = md.count(ctx, db, rel.Matched, rel.Args); err != nil {
				return nil, err
			}
		}
		res, err := db.ExecContext(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if q.Kind == catalog.KindUpdateOne {
			out.MatchedCount, out.ModifiedCount = updateCounts(matched, n)
		} else {
			out.DeletedCount = n
		}
	default:
		return nil, fmt.Errorf("unsupported kind %q", q.Kind)
	}
	return out, nil
}

func (md *MySQLDriver) count(ctx context.Context, db sqlQuerier, query string, args []interface{}) (int64, error) {
	stmt, args, err := rebind(query, args)
	if err != nil {
		return 0, err
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func sqlRowsToDocs(rows *sql.Rows) ([]bson.M, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	docs := []bson.M{}
	for rows.Next() {
		values := make([]interface{}, len(types))
		ptrs := make([]interface{}, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		doc := make(bson.M, len(types))
		for i, ct := range types {
			doc[columnKey(ct.Name())] = mysqlValue(ct.DatabaseTypeName(), values[i])
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// mysqlValue converts the raw bytes of the text protocol using the column's
// declared type.
func mysqlValue(dbType string, v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "DECIMAL", "DOUBLE", "FLOAT":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
