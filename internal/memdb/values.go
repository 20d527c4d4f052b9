package memdb

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// normalizeDoc turns any bson-encodable document into a bson.M whose nested
// documents are bson.M and whose arrays are []interface{}.
func normalizeDoc(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return normalize(m).(bson.M), nil
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(bson.M, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[string]interface{}:
		return normalize(bson.M(t))
	case bson.D:
		out := make(bson.M, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		return normalize([]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []bson.D:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []bson.M:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(bson.M, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}

func copyDoc(doc bson.M) bson.M {
	return copyValue(doc).(bson.M)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	}
	return 0, false
}

func toInt(v interface{}) (int, bool) {
	f, ok := toFloat(normalize(v))
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// typeRank orders values of different types the way the server sorts them.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64:
		return 1
	case string:
		return 2
	case bson.M:
		return 3
	case []interface{}:
		return 4
	case primitive.ObjectID:
		return 5
	case bool:
		return 6
	case primitive.DateTime:
		return 7
	}
	return 8
}

// compare reports the ordering of a and b when both share a comparable type.
func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch ta := a.(type) {
	case string:
		tb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(ta, tb), true
	case bool:
		tb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ta == tb:
			return 0, true
		case !ta:
			return -1, true
		}
		return 1, true
	case primitive.DateTime:
		tb, ok := b.(primitive.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case ta < tb:
			return -1, true
		case ta > tb:
			return 1, true
		}
		return 0, true
	case primitive.ObjectID:
		tb, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(ta.Hex(), tb.Hex()), true
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

// sortCompare totally orders values for $sort, $min and $max.
func sortCompare(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return strings.Compare(groupKey(a), groupKey(b))
}

func equal(a, b interface{}) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	switch ta := a.(type) {
	case bson.M:
		tb, ok := b.(bson.M)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, v := range ta {
			w, ok := tb[k]
			if !ok || !equal(v, w) {
				return false
			}
		}
		return true
	case []interface{}:
		tb, ok := b.([]interface{})
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// groupKey is a canonical string for a value, numbers of any width mapping
// to the same key.
func groupKey(v interface{}) string {
	if f, ok := toFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + strconv.Quote(t)
	case bool:
		return "b:" + strconv.FormatBool(t)
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + groupKey(t[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = groupKey(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

// getPath walks nested documents along a dotted path. Crossing an array
// maps the rest of the path over its elements.
func getPath(v interface{}, path string) (interface{}, bool) {
	return walk(v, strings.Split(path, "."))
}

func walk(v interface{}, parts []string) (interface{}, bool) {
	if len(parts) == 0 {
		return v, true
	}
	switch t := v.(type) {
	case bson.M:
		child, ok := t[parts[0]]
		if !ok {
			return nil, false
		}
		return walk(child, parts[1:])
	case []interface{}:
		if idx, err := strconv.Atoi(parts[0]); err == nil {
			if idx < 0 || idx >= len(t) {
				return nil, false
			}
			return walk(t[idx], parts[1:])
		}
		var out []interface{}
		for _, e := range t {
			if r, ok := walk(e, parts); ok {
				out = append(out, r)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// pathMissing reports whether any branch of a dotted path ends without a
// value, so that an array with one element lacking the field still matches
// null.
func pathMissing(v interface{}, parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	switch t := v.(type) {
	case bson.M:
		child, ok := t[parts[0]]
		if !ok {
			return true
		}
		return pathMissing(child, parts[1:])
	case []interface{}:
		if idx, err := strconv.Atoi(parts[0]); err == nil {
			if idx < 0 || idx >= len(t) {
				return true
			}
			return pathMissing(t[idx], parts[1:])
		}
		if len(t) == 0 {
			return true
		}
		for _, e := range t {
			if pathMissing(e, parts) {
				return true
			}
		}
		return false
	}
	return true
}

func setPath(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(bson.M)
		if !ok {
			next = bson.M{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func unsetPath(doc bson.M, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(bson.M)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// toD accepts the document shapes a caller may author a sub-document in.
func toD(v interface{}) (bson.D, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		return mapToD(t), true
	case map[string]interface{}:
		return mapToD(t), true
	}
	return nil, false
}

func mapToD(m map[string]interface{}) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}

func toList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case bson.A:
		return []interface{}(t), true
	case []interface{}:
		return t, true
	case []string:
		return normalize(t).([]interface{}), true
	case []bson.D:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}
