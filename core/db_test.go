package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name string
		ords []DBOrdering
		want string
	}{
		{name: "none", want: ""},
		{name: "desc", ords: []DBOrdering{{Field: "created_at"}}, want: " ORDER BY created_at DESC"},
		{
			name: "many",
			ords: []DBOrdering{{Field: "date_submitted"}, {Field: "name", Ascending: true}},
			want: " ORDER BY date_submitted DESC, name ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderBy(tt.ords...))
		})
	}
}
