package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Limit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page Page
		want int
	}{
		{name: "zero size falls back to default", page: Page{}, want: DefaultPageSize},
		{name: "negative size falls back to default", page: Page{Size: -5}, want: DefaultPageSize},
		{name: "size within bounds kept", page: Page{Size: 50}, want: 50},
		{name: "oversized window capped", page: Page{Size: 5000}, want: MaxPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.page.Limit())
		})
	}
}

func TestPage_Offset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page Page
		want int
	}{
		{name: "first page starts at zero", page: Page{Number: 1, Size: 10}, want: 0},
		{name: "unset page starts at zero", page: Page{Size: 10}, want: 0},
		{name: "negative page starts at zero", page: Page{Number: -2, Size: 10}, want: 0},
		{name: "later page skips earlier windows", page: Page{Number: 3, Size: 10}, want: 20},
		{name: "offset uses the clamped size", page: Page{Number: 2, Size: 5000}, want: MaxPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.page.Offset())
		})
	}
}
