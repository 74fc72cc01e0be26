package risk

import (
	"strings"
	"time"
)

// Wildcard is the selection value that disables a categorical predicate.
const Wildcard = "all"

// DateLayout is the ISO date format used for range comparisons.
const DateLayout = "2006-01-02"

// DateRange bounds a date field inclusively. Empty bounds are open.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Active reports whether either bound is set.
func (r DateRange) Active() bool {
	return r.From != "" || r.To != ""
}

// Criteria is the transient filter state of a list view.
type Criteria struct {
	Search     string            `json:"search,omitempty"`
	Selections map[string]string `json:"selections,omitempty"`
	DateRange  DateRange         `json:"dateRange,omitempty"`
}

// Select returns a copy of c with the named selection set.
func (c Criteria) Select(field, value string) Criteria {
	selections := make(map[string]string, len(c.Selections)+1)
	for k, v := range c.Selections {
		selections[k] = v
	}
	selections[field] = value
	c.Selections = selections
	return c
}

// Empty reports whether every predicate would pass all records.
func (c Criteria) Empty() bool {
	if strings.TrimSpace(c.Search) != "" || c.DateRange.Active() {
		return false
	}
	for _, v := range c.Selections {
		if !isWildcard(v) {
			return false
		}
	}
	return true
}

// Accessors tells Filter how to read fields of T.
type Accessors[T any] struct {
	// Search fields are matched case-insensitively; any field may match.
	Search []func(T) string
	// Categories are matched by exact equality, keyed by selection name.
	Categories map[string]func(T) string
	// Date returns the ISO date of the record, or nil when absent.
	Date func(T) *string
}

// Filter keeps the records that satisfy every active predicate, in input order.
// Selections naming a field without an accessor are ignored.
func Filter[T any](records []T, c Criteria, a Accessors[T]) []T {
	if c.Empty() {
		return records
	}
	term := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]T, 0, len(records))
	for _, record := range records {
		if term != "" && !matchesSearch(record, term, a.Search) {
			continue
		}
		if !matchesSelections(record, c.Selections, a.Categories) {
			continue
		}
		if c.DateRange.Active() && !withinRange(record, c.DateRange, a.Date) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func matchesSearch[T any](record T, term string, fields []func(T) string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field(record)), term) {
			return true
		}
	}
	return false
}

func matchesSelections[T any](record T, selections map[string]string, categories map[string]func(T) string) bool {
	for name, want := range selections {
		if isWildcard(want) {
			continue
		}
		get, ok := categories[name]
		if !ok {
			continue
		}
		if get(record) != want {
			return false
		}
	}
	return true
}

// withinRange treats a record without a date as outside any non-empty range.
func withinRange[T any](record T, r DateRange, date func(T) *string) bool {
	if date == nil {
		return false
	}
	value := date(record)
	if value == nil || *value == "" {
		return false
	}
	if r.From != "" && *value < r.From {
		return false
	}
	if r.To != "" && *value > r.To {
		return false
	}
	return true
}

func isWildcard(v string) bool {
	return v == "" || v == Wildcard
}

// Group is one bucket produced by GroupBy.
type Group[K comparable, T any] struct {
	Key   K   `json:"key"`
	Items []T `json:"items"`
}

// GroupBy buckets records by key, ordering groups by first appearance.
// Keys without records never appear.
func GroupBy[T any, K comparable](records []T, key func(T) K) []Group[K, T] {
	index := make(map[K]int)
	groups := make([]Group[K, T], 0)
	for _, record := range records {
		k := key(record)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, record)
	}
	return groups
}

// JoinKeys returns one group per key in keys, in that order, attaching the matching
// bucket from groups or an empty slice.
func JoinKeys[K comparable, T any](keys []K, groups []Group[K, T]) []Group[K, T] {
	byKey := make(map[K][]T, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g.Items
	}
	out := make([]Group[K, T], 0, len(keys))
	for _, k := range keys {
		items := byKey[k]
		if items == nil {
			items = []T{}
		}
		out = append(out, Group[K, T]{Key: k, Items: items})
	}
	return out
}

// DateOf renders an optional timestamp as an ISO date for Accessors.Date.
func DateOf(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
