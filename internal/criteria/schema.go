// Package criteria turns loosely typed filter maps into typed predicates and
// applies them to gorm queries.
package criteria

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownField is returned when a path does not resolve against a schema.
var ErrUnknownField = errors.New("unknown field path")

// Kind is the storage class of a column. It decides how string filters are
// compared and which range bounds are acceptable.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
	KindBool
	KindID
)

type column struct {
	name string
	kind Kind
}

type relation struct {
	foreignKey string
	target     *Schema
}

// Schema describes one table: the columns a criteria path may end on and the
// belongs-to relations it may navigate through.
type Schema struct {
	Table      string
	PrimaryKey string
	columns    map[string]column
	relations  map[string]relation
}

// NewSchema creates a schema for table whose primary key column is "id".
func NewSchema(table string) *Schema {
	return &Schema{
		Table:      table,
		PrimaryKey: "id",
		columns:    map[string]column{"id": {name: "id", kind: KindID}},
		relations:  make(map[string]relation),
	}
}

// Column registers a column under the given path token.
func (s *Schema) Column(token, name string, kind Kind) *Schema {
	s.columns[token] = column{name: name, kind: kind}
	return s
}

// BelongsTo registers an N:1 navigation named token through foreignKey.
func (s *Schema) BelongsTo(token, foreignKey string, target *Schema) *Schema {
	s.relations[token] = relation{foreignKey: foreignKey, target: target}
	return s
}

// Join is a LEFT JOIN required to reach a navigated column.
type Join struct {
	Table string
	Alias string
	On    string
}

// SQL renders the join clause.
func (j Join) SQL() string {
	return fmt.Sprintf("LEFT JOIN %s AS %s ON %s", j.Table, j.Alias, j.On)
}

// Field is a resolved column reference: the qualified column, its kind and
// the joins needed to reach it from the schema root.
type Field struct {
	Path   string
	Column string
	Kind   Kind
	Joins  []Join
}

// Resolve walks a dot-separated path from the schema root. Every segment but
// the last must name a relation; the last must name a column of the schema
// reached so far. "rel.id" resolves to the foreign key without a join.
func (s *Schema) Resolve(path string) (Field, error) {
	if path == "" {
		return Field{}, fmt.Errorf("%w: empty path", ErrUnknownField)
	}
	segments := strings.Split(path, ".")

	current := s
	alias := s.Table
	var joins []Join

	for i, segment := range segments[:len(segments)-1] {
		rel, ok := current.relations[segment]
		if !ok {
			return Field{}, fmt.Errorf("%w: %q has no relation %q", ErrUnknownField, path, segment)
		}

		// rel.id needs no join: the foreign key already holds it.
		if i == len(segments)-2 && segments[i+1] == rel.target.PrimaryKey {
			return Field{
				Path:   path,
				Column: alias + "." + rel.foreignKey,
				Kind:   KindID,
				Joins:  joins,
			}, nil
		}

		next := "j_" + strings.Join(segments[:i+1], "_")
		joins = append(joins, Join{
			Table: rel.target.Table,
			Alias: next,
			On:    fmt.Sprintf("%s.%s = %s.%s", next, rel.target.PrimaryKey, alias, rel.foreignKey),
		})
		current = rel.target
		alias = next
	}

	last := segments[len(segments)-1]
	col, ok := current.columns[last]
	if !ok {
		return Field{}, fmt.Errorf("%w: %q has no column %q", ErrUnknownField, path, last)
	}

	return Field{
		Path:   path,
		Column: alias + "." + col.name,
		Kind:   col.kind,
		Joins:  joins,
	}, nil
}

// Paths lists the column paths directly on the schema, sorted.
func (s *Schema) Paths() []string {
	paths := make([]string, 0, len(s.columns))
	for token := range s.columns {
		paths = append(paths, token)
	}
	sort.Strings(paths)
	return paths
}
