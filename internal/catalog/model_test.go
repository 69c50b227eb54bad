package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fishshop/storefront-bot/internal/catalog"
)

func TestTotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []catalog.CartLine
		want  float64
	}{
		{
			name: "Empty cart",
			want: 0,
		},
		{
			name: "Single line",
			lines: []catalog.CartLine{
				{ID: "l1", Quantity: 5, Product: catalog.Product{ID: "p1", Price: 12.5}},
			},
			want: 62.5,
		},
		{
			name: "Several lines",
			lines: []catalog.CartLine{
				{ID: "l1", Quantity: 2, Product: catalog.Product{ID: "p1", Price: 100}},
				{ID: "l2", Quantity: 3, Product: catalog.Product{ID: "p2", Price: 50}},
			},
			want: 350,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, catalog.Total(tt.lines), 1e-9)
		})
	}
}
