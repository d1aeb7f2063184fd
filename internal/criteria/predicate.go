package criteria

import (
	"fmt"
	"strings"
)

// Predicate is a closed set of filter expressions over one resolved field.
type Predicate interface {
	Target() Field
	clause() (string, []any)
}

// Equals matches field = value.
type Equals struct {
	Field Field
	Value any
}

// EqualsFold matches a case-insensitive string equality.
type EqualsFold struct {
	Field Field
	Value string
}

// Like matches a case-insensitive pattern where % is the wildcard. The
// pattern is used as supplied.
type Like struct {
	Field   Field
	Pattern string
}

// In matches membership in Values.
type In struct {
	Field  Field
	Values []any
}

// Between matches From <= field <= To.
type Between struct {
	Field    Field
	From, To any
}

// IsNull matches a NULL field.
type IsNull struct {
	Field Field
}

// IsNotNull matches a non-NULL field.
type IsNotNull struct {
	Field Field
}

func (p Equals) Target() Field     { return p.Field }
func (p EqualsFold) Target() Field { return p.Field }
func (p Like) Target() Field       { return p.Field }
func (p In) Target() Field         { return p.Field }
func (p Between) Target() Field    { return p.Field }
func (p IsNull) Target() Field     { return p.Field }
func (p IsNotNull) Target() Field  { return p.Field }

func (p Equals) clause() (string, []any) {
	return p.Field.Column + " = ?", []any{p.Value}
}

func (p EqualsFold) clause() (string, []any) {
	return lowered(p.Field) + " = LOWER(?)", []any{p.Value}
}

func (p Like) clause() (string, []any) {
	return lowered(p.Field) + " LIKE LOWER(?)", []any{p.Pattern}
}

func (p In) clause() (string, []any) {
	if len(p.Values) == 0 {
		// IN () is not valid SQL; an empty set matches nothing.
		return "1 = 0", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
	return fmt.Sprintf("%s IN (%s)", p.Field.Column, placeholders), p.Values
}

func (p Between) clause() (string, []any) {
	return p.Field.Column + " BETWEEN ? AND ?", []any{p.From, p.To}
}

func (p IsNull) clause() (string, []any) {
	return p.Field.Column + " IS NULL", nil
}

func (p IsNotNull) clause() (string, []any) {
	return p.Field.Column + " IS NOT NULL", nil
}

// lowered folds the column with the store's LOWER so both sides of a
// comparison fold by the same rules. SQLite folds ASCII only.
func lowered(f Field) string {
	if f.Kind == KindText {
		return "LOWER(" + f.Column + ")"
	}
	return "LOWER(CAST(" + f.Column + " AS TEXT))"
}

// Build combines predicates with AND. It returns the de-duplicated joins, the
// WHERE expression (empty when preds is empty) and its arguments.
func Build(preds []Predicate) ([]Join, string, []any) {
	var (
		joins []Join
		parts []string
		args  []any
	)
	seen := make(map[string]struct{})

	for _, p := range preds {
		for _, j := range p.Target().Joins {
			if _, ok := seen[j.Alias]; ok {
				continue
			}
			seen[j.Alias] = struct{}{}
			joins = append(joins, j)
		}
		sql, a := p.clause()
		parts = append(parts, sql)
		args = append(args, a...)
	}

	return joins, strings.Join(parts, " AND "), args
}
