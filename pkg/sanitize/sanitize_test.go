package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "North Care", "North Care"},
		{"tags removed", "<b>North</b> Care", "North Care"},
		{"script dropped", "Care<script>alert(1)</script>", "Care"},
		{"entities decoded", "Smith &amp; Sons", "Smith & Sons"},
		{"ampersand kept", "Smith & Sons", "Smith & Sons"},
		{"blocks separated", "<p>first</p><p>second</p>", "first second"},
		{"whitespace collapsed", "  a \n\t b  ", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
