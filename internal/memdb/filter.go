package memdb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Match reports whether doc satisfies filter. A nil or empty filter matches
// every document.
func Match(doc bson.M, filter bson.D) (bool, error) {
	for _, e := range filter {
		var (
			ok  bool
			err error
		)
		switch e.Key {
		case "$and", "$or", "$nor":
			ok, err = matchLogical(doc, e.Key, e.Value)
		default:
			if strings.HasPrefix(e.Key, "$") {
				return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, e.Key)
			}
			ok, err = matchField(doc, e.Key, e.Value)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc bson.M, op string, value interface{}) (bool, error) {
	list, ok := toList(value)
	if !ok || len(list) == 0 {
		return false, fmt.Errorf("%s needs a non-empty array", op)
	}
	for _, item := range list {
		clause, ok := toD(item)
		if !ok {
			return false, fmt.Errorf("%s clause must be a document, got %T", op, item)
		}
		matched, err := Match(doc, clause)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !matched:
			return false, nil
		case op == "$or" && matched:
			return true, nil
		case op == "$nor" && matched:
			return false, nil
		}
	}
	return op != "$or", nil
}

// candidates lists the values a field condition is tested against: the
// value at path and, for arrays, each element as well.
func candidates(doc bson.M, path string) ([]interface{}, bool) {
	v, found := getPath(doc, path)
	if !found {
		return nil, false
	}
	out := []interface{}{v}
	if arr, ok := v.([]interface{}); ok {
		out = append(out, arr...)
	}
	return out, true
}

func operatorDoc(cond interface{}) (bson.D, bool) {
	d, ok := toD(cond)
	if !ok || len(d) == 0 || !strings.HasPrefix(d[0].Key, "$") {
		return nil, false
	}
	return d, true
}

func matchField(doc bson.M, path string, cond interface{}) (bool, error) {
	cands, found := candidates(doc, path)
	missing := pathMissing(doc, strings.Split(path, "."))

	ops, isOps := operatorDoc(cond)
	if !isOps {
		return matchEq(cands, missing, normalize(cond)), nil
	}

	for _, op := range ops {
		arg := normalize(op.Value)
		var ok bool
		switch op.Key {
		case "$eq":
			ok = matchEq(cands, missing, arg)
		case "$ne":
			ok = !matchEq(cands, missing, arg)
		case "$gt", "$gte", "$lt", "$lte":
			ok = matchCmp(cands, op.Key, arg)
		case "$in", "$nin":
			list, isList := toList(arg)
			if !isList {
				return false, fmt.Errorf("%s needs an array", op.Key)
			}
			in := false
			for _, want := range list {
				if matchEq(cands, missing, want) {
					in = true
					break
				}
			}
			ok = in == (op.Key == "$in")
		case "$exists":
			ok = found == truthy(arg)
		default:
			return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op.Key)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchEq treats a missing field, or an array element lacking it, as null.
func matchEq(cands []interface{}, missing bool, want interface{}) bool {
	if want == nil && missing {
		return true
	}
	for _, c := range cands {
		if equal(c, want) {
			return true
		}
	}
	return false
}

func matchCmp(cands []interface{}, op string, arg interface{}) bool {
	for _, c := range cands {
		cmp, ok := compare(c, arg)
		if !ok {
			continue
		}
		switch op {
		case "$gt":
			ok = cmp > 0
		case "$gte":
			ok = cmp >= 0
		case "$lt":
			ok = cmp < 0
		case "$lte":
			ok = cmp <= 0
		}
		if ok {
			return true
		}
	}
	return false
}
