package criteria

import (
	"gorm.io/gorm"

	"anoa.com/pharmatrade/pkg/apperror"
)

// Scope applies preds to a gorm query rooted at the schema table. gorm
// qualifies the selected columns with the root table once joins are present.
func Scope(preds []Predicate) func(*gorm.DB) *gorm.DB {
	joins, where, args := Build(preds)
	return func(db *gorm.DB) *gorm.DB {
		for _, j := range joins {
			db = db.Joins(j.SQL())
		}
		if where != "" {
			db = db.Where(where, args...)
		}
		return db
	}
}

// OrderScope appends an ORDER BY for each resolved ordering, adding whatever
// joins they need that preds did not already bring in.
func (s *Schema) OrderScope(preds []Predicate, orders ...OrderBy) (func(*gorm.DB) *gorm.DB, error) {
	seen := make(map[string]struct{})
	for _, p := range preds {
		for _, j := range p.Target().Joins {
			seen[j.Alias] = struct{}{}
		}
	}

	var (
		extra   []Join
		clauses []string
	)
	for _, o := range orders {
		field, clause, err := s.Order(o)
		if err != nil {
			return nil, err
		}
		for _, j := range field.Joins {
			if _, ok := seen[j.Alias]; ok {
				continue
			}
			seen[j.Alias] = struct{}{}
			extra = append(extra, j)
		}
		clauses = append(clauses, clause)
	}

	return func(db *gorm.DB) *gorm.DB {
		for _, j := range extra {
			db = db.Joins(j.SQL())
		}
		for _, c := range clauses {
			db = db.Order(c)
		}
		return db
	}, nil
}

// Paginate returns a scope selecting the page-th slice of size rows.
func Paginate(page, size int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(page * size).Limit(size)
	}
}

// ValidatePage rejects negative pages and non-positive sizes.
func ValidatePage(page, size int) error {
	if page < 0 {
		return apperror.InvalidArgument("Page", "page must not be negative, got %d", page)
	}
	if size <= 0 {
		return apperror.InvalidArgument("Page", "size must be positive, got %d", size)
	}
	return nil
}
