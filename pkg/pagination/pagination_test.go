package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative page floors at one", -5, 10, 1, 10},
		{"per page capped", 2, 5000, 2, 100},
		{"in range untouched", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, New(1, 20).Offset())
	assert.Equal(t, 40, New(3, 20).Offset())
}

func TestNewResult(t *testing.T) {
	res := NewResult([]string{"a", "b"}, 41, New(1, 20))
	assert.Equal(t, int64(41), res.Total)
	assert.Equal(t, 3, res.TotalPages)

	empty := NewResult[string](nil, 0, New(1, 20))
	assert.NotNil(t, empty.Data, "nil data must serialize as an empty array")
	assert.Equal(t, 0, empty.TotalPages)
}

func TestSortOption_Parse(t *testing.T) {
	allowed := map[string]string{
		"last_seen":  "last_seen",
		"first_seen": "first_seen",
		"title":      "title",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single ascending", "title", "title ASC"},
		{"descending prefix", "-last_seen", "last_seen DESC"},
		{"multiple fields", "-last_seen,title", "last_seen DESC, title ASC"},
		{"unknown fields dropped", "severity,-last_seen", "last_seen DESC"},
		{"whitespace tolerated", " -last_seen , title ", "last_seen DESC, title ASC"},
		{"all unknown", "secret_column", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSortOption(allowed).Parse(tt.in)
			assert.Equal(t, tt.want, s.SQL())
		})
	}
}

func TestSortOption_SQLWithDefault(t *testing.T) {
	allowed := map[string]string{"title": "title"}

	s := NewSortOption(allowed).Parse("nope")
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "last_seen DESC", s.SQLWithDefault("last_seen DESC"))

	s = NewSortOption(allowed).Parse("-title")
	assert.Equal(t, "title DESC", s.SQLWithDefault("last_seen DESC"))
}
