package memdb

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// eval evaluates an aggregation expression against doc.
func eval(doc bson.M, expr interface{}) (interface{}, error) {
	if s, ok := expr.(string); ok && strings.HasPrefix(s, "$") {
		v, found := getPath(doc, s[1:])
		if !found {
			return nil, nil
		}
		return copyValue(v), nil
	}

	if d, ok := toD(expr); ok {
		if len(d) == 1 && strings.HasPrefix(d[0].Key, "$") {
			args, ok := toList(d[0].Value)
			if !ok {
				args = []interface{}{d[0].Value}
			}
			vals := make([]interface{}, len(args))
			for i, a := range args {
				v, err := eval(doc, a)
				if err != nil {
					return nil, err
				}
				vals[i] = v
			}
			return arith(d[0].Key, vals)
		}
		out := bson.M{}
		for _, e := range d {
			v, err := eval(doc, e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = v
		}
		return out, nil
	}

	if list, ok := toList(expr); ok {
		out := make([]interface{}, len(list))
		for i, e := range list {
			v, err := eval(doc, e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	return normalize(expr), nil
}

var errDivideByZero = errors.New("can't $divide by zero")

// arith applies an arithmetic operator. A null operand yields null; integer
// operands keep an integer result except for $divide.
func arith(op string, vals []interface{}) (interface{}, error) {
	switch op {
	case "$multiply", "$add":
	case "$subtract", "$divide":
		if len(vals) != 2 {
			return nil, fmt.Errorf("%s takes exactly 2 arguments, got %d", op, len(vals))
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}

	allInt := op != "$divide"
	nums := make([]float64, len(vals))
	ints := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			return nil, nil
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%s only supports numeric types, got %T", op, v)
		}
		nums[i] = f
		n, isN := toInt64(v)
		ints[i] = n
		allInt = allInt && isN
	}
	if allInt {
		return intArith(op, ints), nil
	}

	var res float64
	switch op {
	case "$multiply":
		res = 1
		for _, n := range nums {
			res *= n
		}
	case "$add":
		for _, n := range nums {
			res += n
		}
	case "$subtract":
		res = nums[0] - nums[1]
	case "$divide":
		if nums[1] == 0 {
			return nil, errDivideByZero
		}
		res = nums[0] / nums[1]
	}
	return res, nil
}

func intArith(op string, ints []int64) int64 {
	var res int64
	switch op {
	case "$multiply":
		res = 1
		for _, n := range ints {
			res *= n
		}
	case "$add":
		for _, n := range ints {
			res += n
		}
	case "$subtract":
		res = ints[0] - ints[1]
	}
	return res
}

// accumulator folds one $group output field.
type accumulator struct {
	op   string
	expr interface{}

	sum    float64
	isum   int64
	allInt bool
	count  int64
	best   interface{}
	seen   bool
	values []interface{}
}

func newAccumulator(field string, spec interface{}) (*accumulator, error) {
	d, ok := toD(spec)
	if !ok || len(d) != 1 {
		return nil, fmt.Errorf("$group field %s must be a single accumulator document", field)
	}
	switch d[0].Key {
	case "$sum", "$avg", "$min", "$max", "$first", "$last", "$push":
		return &accumulator{op: d[0].Key, expr: d[0].Value, allInt: true}, nil
	case "$count":
		return &accumulator{op: "$sum", expr: 1, allInt: true}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, d[0].Key)
}

func (a *accumulator) add(doc bson.M) error {
	v, err := eval(doc, a.expr)
	if err != nil {
		return err
	}
	switch a.op {
	case "$sum", "$avg":
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		a.sum += f
		a.count++
		if n, ok := toInt64(v); ok {
			a.isum += n
		} else {
			a.allInt = false
		}
	case "$min", "$max":
		if v == nil {
			return nil
		}
		if !a.seen {
			a.best, a.seen = v, true
			return nil
		}
		c := sortCompare(v, a.best)
		if (a.op == "$min" && c < 0) || (a.op == "$max" && c > 0) {
			a.best = v
		}
	case "$first":
		if !a.seen {
			a.best, a.seen = v, true
		}
	case "$last":
		a.best, a.seen = v, true
	case "$push":
		a.values = append(a.values, v)
	}
	return nil
}

func (a *accumulator) result() interface{} {
	switch a.op {
	case "$sum":
		if a.allInt {
			return a.isum
		}
		return a.sum
	case "$avg":
		if a.count == 0 {
			return nil
		}
		return a.sum / float64(a.count)
	case "$push":
		if a.values == nil {
			return []interface{}{}
		}
		return a.values
	}
	return a.best
}
