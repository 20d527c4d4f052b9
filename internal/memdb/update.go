package memdb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// applyUpdate applies update operators to doc in place and reports whether
// any field changed.
func applyUpdate(doc bson.M, update bson.D) (bool, error) {
	before := copyDoc(doc)
	for _, op := range update {
		fields, ok := toD(op.Value)
		if !ok {
			return false, fmt.Errorf("%s needs a document, got %T", op.Key, op.Value)
		}
		for _, f := range fields {
			if f.Key == "_id" {
				return false, ErrImmutableID
			}
			switch op.Key {
			case "$set":
				setPath(doc, f.Key, normalize(f.Value))
			case "$unset":
				unsetPath(doc, f.Key)
			case "$inc":
				delta := normalize(f.Value)
				if _, ok := toFloat(delta); !ok {
					return false, fmt.Errorf("$inc %s: non-numeric amount %v", f.Key, f.Value)
				}
				cur, found := getPath(doc, f.Key)
				if !found {
					setPath(doc, f.Key, delta)
					continue
				}
				sum, err := arith("$add", []interface{}{cur, delta})
				if err != nil {
					return false, fmt.Errorf("$inc %s: %w", f.Key, err)
				}
				setPath(doc, f.Key, sum)
			default:
				return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op.Key)
			}
		}
	}
	return !equal(before, doc), nil
}

// project applies an inclusion or exclusion projection. Values other than
// 0/1/true/false are evaluated as expressions.
func project(doc bson.M, projection bson.D) (bson.M, error) {
	if len(projection) == 0 {
		return doc, nil
	}

	includeID := true
	inclusion := false
	for _, f := range projection {
		v := normalize(f.Value)
		if f.Key == "_id" {
			if isFlag(v) {
				includeID = truthy(v)
			}
			continue
		}
		if !isFlag(v) || truthy(v) {
			inclusion = true
		}
	}

	var out bson.M
	if inclusion {
		out = bson.M{}
		for _, f := range projection {
			v := normalize(f.Value)
			if f.Key == "_id" && isFlag(v) {
				continue
			}
			if isFlag(v) {
				if !truthy(v) {
					return nil, fmt.Errorf("cannot exclude %s in an inclusion projection", f.Key)
				}
				if val, ok := getPath(doc, f.Key); ok {
					setPath(out, f.Key, copyValue(val))
				}
				continue
			}
			val, err := eval(doc, f.Value)
			if err != nil {
				return nil, err
			}
			setPath(out, f.Key, val)
		}
		if includeID {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		return out, nil
	}

	out = copyDoc(doc)
	for _, f := range projection {
		if f.Key == "_id" {
			continue
		}
		unsetPath(out, f.Key)
	}
	if !includeID {
		delete(out, "_id")
	}
	return out, nil
}

func isFlag(v interface{}) bool {
	if _, ok := v.(bool); ok {
		return true
	}
	f, ok := toFloat(v)
	return ok && (f == 0 || f == 1)
}
