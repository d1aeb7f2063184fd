package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationMeta(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		size      int
		total     int64
		wantPages int
	}{
		{"empty", 0, 10, 0, 0},
		{"exact", 1, 10, 20, 2},
		{"remainder", 0, 10, 21, 3},
		{"single", 0, 5, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewPaginationMeta(tt.page, tt.size, tt.total)
			assert.Equal(t, tt.wantPages, meta.TotalPages)
			assert.Equal(t, tt.page, meta.CurrentPage)
			assert.Equal(t, tt.total, meta.TotalItems)
			assert.Equal(t, tt.size, meta.Limit)
		})
	}
}

func TestPageQuerySizeOrDefault(t *testing.T) {
	assert.Equal(t, DefaultPageSize, PageQuery{}.SizeOrDefault())
	assert.Equal(t, 7, PageQuery{Size: 7}.SizeOrDefault())
}
