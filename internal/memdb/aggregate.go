package memdb

import (
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// runPipeline feeds docs through each stage in order. docs are owned by the
// pipeline and may be modified.
func runPipeline(docs []bson.M, pipeline mongo.Pipeline) ([]bson.M, error) {
	for i, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("stage %d must have exactly one key, has %d", i, len(stage))
		}
		var err error
		op, arg := stage[0].Key, stage[0].Value
		switch op {
		case "$match":
			docs, err = stageMatch(docs, arg)
		case "$group":
			docs, err = stageGroup(docs, arg)
		case "$sort":
			docs, err = stageSort(docs, arg)
		case "$limit":
			docs, err = stageLimit(docs, arg)
		case "$skip":
			docs, err = stageSkip(docs, arg)
		case "$unwind":
			docs, err = stageUnwind(docs, arg)
		case "$project":
			docs, err = stageProject(docs, arg)
		case "$count":
			docs, err = stageCount(docs, arg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedStage, op)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return docs, nil
}

func stageMatch(docs []bson.M, arg interface{}) ([]bson.M, error) {
	filter, ok := toD(arg)
	if !ok {
		return nil, fmt.Errorf("filter must be a document, got %T", arg)
	}
	out := docs[:0]
	for _, doc := range docs {
		ok, err := Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func stageGroup(docs []bson.M, arg interface{}) ([]bson.M, error) {
	spec, ok := toD(arg)
	if !ok {
		return nil, fmt.Errorf("specification must be a document, got %T", arg)
	}

	var idExpr interface{}
	hasID := false
	var fields []string
	for _, e := range spec {
		if e.Key == "_id" {
			idExpr, hasID = e.Value, true
			continue
		}
		if _, err := newAccumulator(e.Key, e.Value); err != nil {
			return nil, err
		}
		fields = append(fields, e.Key)
	}
	if !hasID {
		return nil, fmt.Errorf("a group specification must include an _id")
	}

	type bucket struct {
		id   interface{}
		accs map[string]*accumulator
	}
	var order []string
	buckets := make(map[string]*bucket)

	for _, doc := range docs {
		id, err := eval(doc, idExpr)
		if err != nil {
			return nil, err
		}
		key := groupKey(id)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{id: id, accs: make(map[string]*accumulator, len(fields))}
			for _, e := range spec {
				if e.Key == "_id" {
					continue
				}
				b.accs[e.Key], _ = newAccumulator(e.Key, e.Value)
			}
			buckets[key] = b
			order = append(order, key)
		}
		for _, f := range fields {
			if err := b.accs[f].add(doc); err != nil {
				return nil, err
			}
		}
	}

	out := make([]bson.M, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		doc := bson.M{"_id": b.id}
		for _, f := range fields {
			doc[f] = b.accs[f].result()
		}
		out = append(out, doc)
	}
	return out, nil
}

func stageSort(docs []bson.M, arg interface{}) ([]bson.M, error) {
	keys, ok := toD(arg)
	if !ok || len(keys) == 0 {
		return nil, fmt.Errorf("sort specification must be a non-empty document")
	}
	dirs := make([]int, len(keys))
	for i, k := range keys {
		dir, ok := toInt(k.Value)
		if !ok || (dir != 1 && dir != -1) {
			return nil, fmt.Errorf("sort direction for %s must be 1 or -1", k.Key)
		}
		dirs[i] = dir
	}
	sortDocs(docs, keys, dirs)
	return docs, nil
}

func sortDocs(docs []bson.M, keys bson.D, dirs []int) {
	sort.SliceStable(docs, func(i, j int) bool {
		for n, k := range keys {
			a, _ := getPath(docs[i], k.Key)
			b, _ := getPath(docs[j], k.Key)
			if c := sortCompare(a, b); c != 0 {
				return c*dirs[n] < 0
			}
		}
		return false
	})
}

func stageLimit(docs []bson.M, arg interface{}) ([]bson.M, error) {
	n, ok := toInt(arg)
	if !ok || n <= 0 {
		return nil, fmt.Errorf("the limit must be positive, got %v", arg)
	}
	if n < len(docs) {
		docs = docs[:n]
	}
	return docs, nil
}

func stageSkip(docs []bson.M, arg interface{}) ([]bson.M, error) {
	n, ok := toInt(arg)
	if !ok || n < 0 {
		return nil, fmt.Errorf("the skip must be non-negative, got %v", arg)
	}
	if n >= len(docs) {
		return []bson.M{}, nil
	}
	return docs[n:], nil
}

func stageUnwind(docs []bson.M, arg interface{}) ([]bson.M, error) {
	var path string
	preserve := false
	switch t := arg.(type) {
	case string:
		path = t
	default:
		spec, ok := toD(arg)
		if !ok {
			return nil, fmt.Errorf("expected a string or a document, got %T", arg)
		}
		for _, e := range spec {
			switch e.Key {
			case "path":
				path, _ = e.Value.(string)
			case "preserveNullAndEmptyArrays":
				preserve = truthy(e.Value)
			}
		}
	}
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("path %q must be prefixed with $", path)
	}
	path = path[1:]

	var out []bson.M
	for _, doc := range docs {
		v, found := getPath(doc, path)
		arr, isArr := v.([]interface{})
		switch {
		case isArr && len(arr) > 0:
			for _, e := range arr {
				cp := copyDoc(doc)
				setPath(cp, path, copyValue(e))
				out = append(out, cp)
			}
		case !found || v == nil || isArr:
			if preserve {
				if isArr {
					doc = copyDoc(doc)
					unsetPath(doc, path)
				}
				out = append(out, doc)
			}
		default:
			out = append(out, doc)
		}
	}
	return out, nil
}

func stageProject(docs []bson.M, arg interface{}) ([]bson.M, error) {
	spec, ok := toD(arg)
	if !ok || len(spec) == 0 {
		return nil, fmt.Errorf("specification must be a non-empty document")
	}
	for i, doc := range docs {
		p, err := project(doc, spec)
		if err != nil {
			return nil, err
		}
		docs[i] = p
	}
	return docs, nil
}

func stageCount(docs []bson.M, arg interface{}) ([]bson.M, error) {
	field, ok := arg.(string)
	if !ok || field == "" || strings.HasPrefix(field, "$") || strings.Contains(field, ".") {
		return nil, fmt.Errorf("invalid count field %v", arg)
	}
	if len(docs) == 0 {
		return []bson.M{}, nil
	}
	return []bson.M{{field: int64(len(docs))}}, nil
}
