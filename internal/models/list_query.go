package models

import (
	"strings"

	"github.com/noah-isme/hse-api/internal/risk"
)

// ListQuery is the filter and paging input shared by every tenant list endpoint.
// Selections hold category filters keyed by field name; "all" or "" means no filter.
type ListQuery struct {
	Search     string            `json:"search,omitempty"`
	Selections map[string]string `json:"selections,omitempty"`
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Page       int               `json:"-"`
	PageSize   int               `json:"-"`
}

// Criteria converts the query into filter criteria.
func (q ListQuery) Criteria() risk.Criteria {
	c := risk.Criteria{
		Search:    strings.TrimSpace(q.Search),
		DateRange: risk.DateRange{From: strings.TrimSpace(q.From), To: strings.TrimSpace(q.To)},
	}
	for field, value := range q.Selections {
		c = c.Select(field, strings.TrimSpace(value))
	}
	return c
}
