package catalog

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

func extJSON(doc bson.D) (string, error) {
	if doc == nil {
		doc = bson.D{}
	}
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Render returns the mongosh statement for q.
func Render(q Query) (string, error) {
	switch q.Kind {
	case KindListCollections:
		return "show collections", nil
	case KindDropDatabase:
		return "db.dropDatabase()", nil
	case KindDrop:
		return fmt.Sprintf("db.%s.drop()", q.Collection), nil
	}

	var args []string
	add := func(doc bson.D) error {
		s, err := extJSON(doc)
		if err != nil {
			return fmt.Errorf("render %s: %w", q.Name, err)
		}
		args = append(args, s)
		return nil
	}

	switch q.Kind {
	case KindFind:
		if len(q.Filter) > 0 || len(q.Projection) > 0 {
			if err := add(q.Filter); err != nil {
				return "", err
			}
		}
		if len(q.Projection) > 0 {
			if err := add(q.Projection); err != nil {
				return "", err
			}
		}
	case KindUpdateOne:
		if err := add(q.Filter); err != nil {
			return "", err
		}
		if err := add(q.Update); err != nil {
			return "", err
		}
	case KindDeleteOne, KindDeleteMany:
		if err := add(q.Filter); err != nil {
			return "", err
		}
	case KindAggregate:
		stages := make([]string, 0, len(q.Pipeline))
		for _, stage := range q.Pipeline {
			s, err := extJSON(stage)
			if err != nil {
				return "", fmt.Errorf("render %s: %w", q.Name, err)
			}
			stages = append(stages, s)
		}
		args = append(args, "["+strings.Join(stages, ", ")+"]")
	default:
		return "", fmt.Errorf("%w %q: unknown kind %q", ErrInvalidQuery, q.Name, q.Kind)
	}

	return fmt.Sprintf("db.%s.%s(%s)", q.Collection, q.Kind, strings.Join(args, ", ")), nil
}

// Script renders the whole catalog as a mongosh script, grouped by section.
func Script(c *Catalog, database string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "use %s\n", database)
	for _, section := range Sections {
		queries := c.BySection(section)
		if len(queries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n// ==== %s ====\n", section)
		for _, q := range queries {
			stmt, err := Render(q)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "\n// %s: %s\n%s\n", q.Name, q.Comment, stmt)
		}
	}
	return b.String(), nil
}
