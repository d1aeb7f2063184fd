package criteria

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Sentinel string values turning an entry into a null check.
const (
	NullValue    = "isNull"
	NotNullValue = "isNotNull"
)

// Criteria maps field paths (e.g. "user.username") to filter values.
type Criteria map[string]any

// Range is the structured {from, to} filter value.
type Range struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Parse translates c into predicates against s. Value shapes:
//
//	scalar (non-string)   Equals
//	string without %      EqualsFold
//	string with %         Like
//	slice                 In
//	Range / {from, to}    Between, dropped when the bounds are not comparable
//	"isNull"/"isNotNull"  IsNull / IsNotNull
//
// Any path that does not resolve fails the whole parse.
func (s *Schema) Parse(c Criteria) ([]Predicate, error) {
	if len(c) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		field, err := s.Resolve(key)
		if err != nil {
			return nil, err
		}
		if p, ok := predicateFor(field, c[key]); ok {
			preds = append(preds, p)
		}
	}
	return preds, nil
}

func predicateFor(field Field, value any) (Predicate, bool) {
	switch v := value.(type) {
	case nil:
		return IsNull{Field: field}, true
	case Range:
		return between(field, v.From, v.To)
	case *Range:
		if v == nil {
			return nil, false
		}
		return between(field, v.From, v.To)
	case string:
		switch {
		case v == NullValue:
			return IsNull{Field: field}, true
		case v == NotNullValue:
			return IsNotNull{Field: field}, true
		case strings.Contains(v, "%"):
			return Like{Field: field, Pattern: v}, true
		default:
			return EqualsFold{Field: field, Value: v}, true
		}
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return IsNull{Field: field}, true
		}
		return predicateFor(field, rv.Elem().Interface())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return In{Field: field, Values: values}, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		from := rv.MapIndex(reflect.ValueOf("from").Convert(rv.Type().Key()))
		to := rv.MapIndex(reflect.ValueOf("to").Convert(rv.Type().Key()))
		if !from.IsValid() || !to.IsValid() {
			return nil, false
		}
		return between(field, from.Interface(), to.Interface())
	}

	return Equals{Field: field, Value: value}, true
}

func between(field Field, from, to any) (Predicate, bool) {
	if !Comparable(from, to) {
		return nil, false
	}
	return Between{Field: field, From: from, To: to}, true
}

// Comparable reports whether a and b can bound a range: both numbers, both
// strings or both times.
func Comparable(a, b any) bool {
	ca, cb := classOf(a), classOf(b)
	return ca != classNone && ca == cb
}

type class int

const (
	classNone class = iota
	classNumber
	classString
	classTime
)

func classOf(v any) class {
	switch v.(type) {
	case time.Time:
		return classTime
	case *time.Time:
		if v.(*time.Time) == nil {
			return classNone
		}
		return classTime
	}
	if v == nil {
		return classNone
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return classNumber
	case reflect.String:
		return classString
	}
	return classNone
}

// OrderBy is a resolvable ordering path.
type OrderBy struct {
	Path string
	Desc bool
}

// Order resolves an ordering clause. Like Parse it fails on unknown paths.
func (s *Schema) Order(o OrderBy) (Field, string, error) {
	field, err := s.Resolve(o.Path)
	if err != nil {
		return Field{}, "", err
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return field, fmt.Sprintf("%s %s", field.Column, dir), nil
}
