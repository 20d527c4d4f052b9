package database

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mongo-catalog/internal/catalog"
	"mongo-catalog/internal/schema"
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $n placeholders to ? and orders args to match the
// rewritten statement.
func rebind(query string, args []interface{}) (string, []interface{}, error) {
	var (
		out     []interface{}
		bindErr error
	)
	rewritten := placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		if n < 1 || n > len(args) {
			bindErr = fmt.Errorf("placeholder %s has no argument (%d given)", m, len(args))
			return m
		}
		out = append(out, args[n-1])
		return "?"
	})
	if bindErr != nil {
		return "", nil, bindErr
	}
	return rewritten, out, nil
}

// compact renumbers the $n placeholders of query to $1..$k in order of first
// use and keeps only the args it references.
func compact(query string, args []interface{}) (string, []interface{}, error) {
	var (
		out     []interface{}
		bindErr error
	)
	seen := map[int]int{}
	rewritten := placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		if n < 1 || n > len(args) {
			bindErr = fmt.Errorf("placeholder %s has no argument (%d given)", m, len(args))
			return m
		}
		idx, ok := seen[n]
		if !ok {
			out = append(out, args[n-1])
			idx = len(out)
			seen[n] = idx
		}
		return "$" + strconv.Itoa(idx)
	})
	if bindErr != nil {
		return "", nil, bindErr
	}
	return rewritten, out, nil
}

func dollarPlaceholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ph, ", ")
}

func insertStatement(row schema.Row) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		row.Table, strings.Join(row.Columns, ", "), dollarPlaceholders(len(row.Columns)))
}

func relationalForm(q catalog.Query) (*catalog.Relational, error) {
	if q.Relational == nil || q.Relational.SQL == "" {
		return nil, ErrNoRelationalForm
	}
	return q.Relational, nil
}

// updateCounts turns a matched count (-1 when the query has none) and the
// changed row count into updateOne's matched and modified counts.
func updateCounts(matched, changed int64) (int64, int64) {
	if matched < 0 {
		matched = changed
	}
	return min(matched, 1), min(changed, 1)
}

// columnKey maps a result column to its document field.
func columnKey(column string) string {
	if column == "id" {
		return "_id"
	}
	return column
}

func dropStatements(collection string) []string {
	tables := schema.Tables(collection)
	stmts := make([]string, len(tables))
	for i, t := range tables {
		stmts[i] = "DROP TABLE IF EXISTS " + t
	}
	return stmts
}
