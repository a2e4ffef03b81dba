// Package pagination provides page/offset parameters, paginated result
// envelopes and allow-listed sort parsing for list endpoints.
package pagination

import "strings"

// Pagination holds a clamped page request.
type Pagination struct {
	Page    int
	PerPage int
}

// New creates a Pagination with defaults applied: page floors at 1,
// per-page defaults to 20 and caps at 100.
func New(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset returns the row offset for database queries.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit returns the row limit for database queries.
func (p Pagination) Limit() int {
	return p.PerPage
}

// Result is the envelope list endpoints return.
type Result[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// NewResult wraps a page of data. A nil slice serializes as an empty array.
func NewResult[T any](data []T, total int64, p Pagination) Result[T] {
	if data == nil {
		data = make([]T, 0)
	}

	totalPages := int(total) / p.PerPage
	if int(total)%p.PerPage > 0 {
		totalPages++
	}

	return Result[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
	}
}

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Sort pairs a database column with a direction.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOption parses user-supplied sort strings against an allow list, so
// request fields never reach SQL unchecked.
type SortOption struct {
	sorts         []Sort
	allowedFields map[string]string
}

// NewSortOption creates a SortOption. allowedFields maps request field
// names to database columns; anything else is silently dropped by Parse.
func NewSortOption(allowedFields map[string]string) *SortOption {
	return &SortOption{allowedFields: allowedFields}
}

// Parse reads a comma-separated sort string. A "-" prefix means descending,
// so "-last_seen,severity" orders by last_seen DESC then severity ASC.
// Unknown fields are ignored.
func (s *SortOption) Parse(sortStr string) *SortOption {
	for _, part := range strings.Split(sortStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		order := SortAsc
		field := part
		if rest, ok := strings.CutPrefix(part, "-"); ok {
			order = SortDesc
			field = rest
		}

		if column, ok := s.allowedFields[field]; ok {
			s.sorts = append(s.sorts, Sort{Field: column, Order: order})
		}
	}
	return s
}

// IsEmpty reports whether nothing valid was parsed.
func (s *SortOption) IsEmpty() bool {
	return len(s.sorts) == 0
}

// SQL renders the ORDER BY clause body, empty when nothing was parsed.
func (s *SortOption) SQL() string {
	parts := make([]string, 0, len(s.sorts))
	for _, sort := range s.sorts {
		parts = append(parts, sort.Field+" "+string(sort.Order))
	}
	return strings.Join(parts, ", ")
}

// SQLWithDefault renders the ORDER BY clause body, falling back to
// defaultSort when nothing was parsed.
func (s *SortOption) SQLWithDefault(defaultSort string) string {
	if sql := s.SQL(); sql != "" {
		return sql
	}
	return defaultSort
}
