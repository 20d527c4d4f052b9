package catalog

import (
	"errors"
	"fmt"
	"strings"

	"mongo-catalog/internal/schema"
)

var (
	ErrInvalidQuery = errors.New("invalid query")
	ErrDuplicate    = errors.New("duplicate query name")
	ErrNotFound     = errors.New("query not found")
)

// StageOperators is the set of aggregation stage names a pipeline may use.
var StageOperators = map[string]bool{
	"$addFields":   true,
	"$bucket":      true,
	"$count":       true,
	"$facet":       true,
	"$group":       true,
	"$limit":       true,
	"$lookup":      true,
	"$match":       true,
	"$project":     true,
	"$replaceRoot": true,
	"$sample":      true,
	"$set":         true,
	"$skip":        true,
	"$sort":        true,
	"$sortByCount": true,
	"$unset":       true,
	"$unwind":      true,
}

// Validate checks the structural well-formedness of a query.
func Validate(q Query) error {
	if q.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidQuery)
	}
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidQuery, q.Name, fmt.Sprintf(format, args...))
	}

	switch q.Kind {
	case KindListCollections, KindDropDatabase:
		if q.Collection != "" {
			return invalid("%s does not take a collection", q.Kind)
		}
		return nil
	case KindFind, KindUpdateOne, KindDeleteOne, KindDeleteMany, KindAggregate, KindDrop:
	default:
		return invalid("unknown kind %q", q.Kind)
	}

	if !schema.IsCollection(q.Collection) {
		return invalid("collection %q is not one of %s", q.Collection, strings.Join(schema.Collections, ", "))
	}

	switch q.Kind {
	case KindUpdateOne:
		if len(q.Update) == 0 {
			return invalid("updateOne needs an update document")
		}
		for _, e := range q.Update {
			if !strings.HasPrefix(e.Key, "$") {
				return invalid("update key %q is not an operator", e.Key)
			}
		}
		if q.Filter == nil {
			return invalid("updateOne needs a filter")
		}
	case KindDeleteOne, KindDeleteMany:
		if q.Filter == nil {
			return invalid("%s needs a filter", q.Kind)
		}
	case KindAggregate:
		if err := validatePipeline(q); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func validatePipeline(q Query) error {
	if len(q.Pipeline) == 0 {
		return errors.New("pipeline is empty")
	}
	for i, stage := range q.Pipeline {
		if len(stage) != 1 {
			return fmt.Errorf("stage %d has %d keys, want 1", i, len(stage))
		}
		if !StageOperators[stage[0].Key] {
			return fmt.Errorf("stage %d: unknown operator %q", i, stage[0].Key)
		}
	}
	return nil
}
