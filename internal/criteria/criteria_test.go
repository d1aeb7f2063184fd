package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchemas() (*Schema, *Schema) {
	users := NewSchema("users").
		Column("username", "username", KindText).
		Column("email", "email", KindText)
	pharmacies := NewSchema("pharmacies").
		Column("name", "name", KindText).
		Column("created_at", "created_at", KindTime).
		BelongsTo("user", "user_id", users)
	return users, pharmacies
}

func TestResolve(t *testing.T) {
	_, pharmacies := testSchemas()

	tests := []struct {
		name      string
		path      string
		column    string
		kind      Kind
		joinCount int
		wantErr   bool
	}{
		{"root column", "name", "pharmacies.name", KindText, 0, false},
		{"root id", "id", "pharmacies.id", KindID, 0, false},
		{"navigated column", "user.username", "j_user.username", KindText, 1, false},
		{"relation id uses foreign key", "user.id", "pharmacies.user_id", KindID, 0, false},
		{"unknown column", "colour", "", 0, 0, true},
		{"unknown relation", "owner.username", "", 0, 0, true},
		{"unknown nested column", "user.password", "", 0, 0, true},
		{"empty", "", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := pharmacies.Resolve(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.column, field.Column)
			assert.Equal(t, tt.kind, field.Kind)
			assert.Len(t, field.Joins, tt.joinCount)
		})
	}
}

func TestResolveJoin(t *testing.T) {
	_, pharmacies := testSchemas()

	field, err := pharmacies.Resolve("user.username")
	require.NoError(t, err)
	require.Len(t, field.Joins, 1)
	assert.Equal(t, "LEFT JOIN users AS j_user ON j_user.id = pharmacies.user_id", field.Joins[0].SQL())
}

func TestParse(t *testing.T) {
	_, pharmacies := testSchemas()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	tests := []struct {
		name string
		in   Criteria
		want []Predicate
	}{
		{
			name: "plain string is case-insensitive equality",
			in:   Criteria{"name": "Central"},
			want: []Predicate{EqualsFold{Value: "Central"}},
		},
		{
			name: "percent makes a pattern",
			in:   Criteria{"name": "%cent%"},
			want: []Predicate{Like{Pattern: "%cent%"}},
		},
		{
			name: "slice becomes membership",
			in:   Criteria{"id": []uint{1, 2}},
			want: []Predicate{In{Values: []any{uint(1), uint(2)}}},
		},
		{
			name: "null sentinels",
			in:   Criteria{"name": NullValue, "user.id": NotNullValue},
			want: []Predicate{IsNull{}, IsNotNull{}},
		},
		{
			name: "range struct",
			in:   Criteria{"created_at": Range{From: from, To: to}},
			want: []Predicate{Between{From: from, To: to}},
		},
		{
			name: "range map",
			in:   Criteria{"id": map[string]any{"from": 1, "to": 9}},
			want: []Predicate{Between{From: 1, To: 9}},
		},
		{
			name: "incomparable range is dropped",
			in:   Criteria{"created_at": Range{From: from, To: 3}},
			want: []Predicate{},
		},
		{
			name: "map without bounds is dropped",
			in:   Criteria{"id": map[string]any{"from": 1}},
			want: []Predicate{},
		},
		{
			name: "scalar equality",
			in:   Criteria{"id": uint(4)},
			want: []Predicate{Equals{Value: uint(4)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pharmacies.Parse(tt.in)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i, p := range got {
				assert.IsType(t, tt.want[i], p)
				assert.Equal(t, stripField(tt.want[i]), stripField(p))
			}
		})
	}
}

func TestParseUnknownPath(t *testing.T) {
	_, pharmacies := testSchemas()

	preds, err := pharmacies.Parse(Criteria{"name": "x", "nope": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Nil(t, preds)
}

func TestParseEmpty(t *testing.T) {
	_, pharmacies := testSchemas()

	preds, err := pharmacies.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestBuild(t *testing.T) {
	_, pharmacies := testSchemas()

	preds, err := pharmacies.Parse(Criteria{
		"name":          "%north%",
		"user.username": "Alice",
		"user.email":    NotNullValue,
	})
	require.NoError(t, err)

	joins, where, args := Build(preds)

	require.Len(t, joins, 1, "both user paths share one join")
	assert.Equal(t, "j_user", joins[0].Alias)
	assert.Equal(t,
		"LOWER(pharmacies.name) LIKE LOWER(?) AND j_user.email IS NOT NULL AND LOWER(j_user.username) = LOWER(?)",
		where)
	assert.Equal(t, []any{"%north%", "Alice"}, args)
}

func TestBuildEmptyIn(t *testing.T) {
	_, pharmacies := testSchemas()

	preds, err := pharmacies.Parse(Criteria{"id": []int{}})
	require.NoError(t, err)

	_, where, args := Build(preds)
	assert.Equal(t, "1 = 0", where)
	assert.Empty(t, args)
}

func TestComparable(t *testing.T) {
	now := time.Now()

	assert.True(t, Comparable(1, 2.5))
	assert.True(t, Comparable("a", "b"))
	assert.True(t, Comparable(now, now))
	assert.True(t, Comparable(&now, now))
	assert.False(t, Comparable(now, "b"))
	assert.False(t, Comparable(nil, 1))
	assert.False(t, Comparable([]int{1}, []int{2}))
}

func TestOrder(t *testing.T) {
	_, pharmacies := testSchemas()

	_, clause, err := pharmacies.Order(OrderBy{Path: "user.username", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, "j_user.username DESC", clause)

	_, _, err = pharmacies.Order(OrderBy{Path: "missing"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestValidatePage(t *testing.T) {
	assert.NoError(t, ValidatePage(0, 10))
	assert.Error(t, ValidatePage(-1, 10))
	assert.Error(t, ValidatePage(0, 0))
}

// stripField zeroes the resolved field so cases compare only the values.
func stripField(p Predicate) Predicate {
	switch v := p.(type) {
	case Equals:
		v.Field = Field{}
		return v
	case EqualsFold:
		v.Field = Field{}
		return v
	case Like:
		v.Field = Field{}
		return v
	case In:
		v.Field = Field{}
		return v
	case Between:
		v.Field = Field{}
		return v
	case IsNull:
		return IsNull{}
	case IsNotNull:
		return IsNotNull{}
	}
	return p
}
