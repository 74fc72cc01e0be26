package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type row struct {
	Title      string
	Assignee   string
	Status     string
	Department string
	Date       *string
}

func strPtr(s string) *string { return &s }

var rowAccessors = Accessors[row]{
	Search: []func(row) string{
		func(r row) string { return r.Title },
		func(r row) string { return r.Assignee },
	},
	Categories: map[string]func(row) string{
		"status":     func(r row) string { return r.Status },
		"department": func(r row) string { return r.Department },
	},
	Date: func(r row) *string { return r.Date },
}

func sampleRows() []row {
	return []row{
		{Title: "Forklift traffic", Assignee: "Ana", Status: "open", Department: "Logistics", Date: strPtr("2024-03-01")},
		{Title: "Solvent storage", Assignee: "Ben", Status: "closed", Department: "Production", Date: strPtr("2024-03-15")},
		{Title: "Noise exposure", Assignee: "Cleo", Status: "open", Department: "Production", Date: nil},
		{Title: "Ladder use", Assignee: "forklift team", Status: "open", Department: "Logistics", Date: strPtr("2024-04-02")},
	}
}

func TestFilterWildcardReturnsInputUnchanged(t *testing.T) {
	rows := sampleRows()
	criteria := Criteria{Selections: map[string]string{"status": Wildcard, "department": ""}}

	assert.Equal(t, rows, Filter(rows, criteria, rowAccessors))
	assert.Equal(t, rows, Filter(rows, Criteria{}, rowAccessors))
}

func TestFilterSearchMatchesAnyField(t *testing.T) {
	got := Filter(sampleRows(), Criteria{Search: "FORKLIFT"}, rowAccessors)

	assert.Len(t, got, 2)
	assert.Equal(t, "Forklift traffic", got[0].Title)
	assert.Equal(t, "Ladder use", got[1].Title)
}

func TestFilterConjunction(t *testing.T) {
	criteria := Criteria{Search: "o"}.Select("status", "open").Select("department", "Production")
	got := Filter(sampleRows(), criteria, rowAccessors)

	assert.Len(t, got, 1)
	assert.Equal(t, "Noise exposure", got[0].Title)
}

func TestFilterUnknownSelectionIgnored(t *testing.T) {
	got := Filter(sampleRows(), Criteria{}.Select("location", "Plant 2"), rowAccessors)
	assert.Len(t, got, 4)
}

func TestFilterDateRange(t *testing.T) {
	rows := sampleRows()

	fromOnly := Filter(rows, Criteria{DateRange: DateRange{From: "2024-03-15"}}, rowAccessors)
	assert.Equal(t, []string{"Solvent storage", "Ladder use"}, titles(fromOnly))

	toOnly := Filter(rows, Criteria{DateRange: DateRange{To: "2024-03-15"}}, rowAccessors)
	assert.Equal(t, []string{"Forklift traffic", "Solvent storage"}, titles(toOnly))

	both := Filter(rows, Criteria{DateRange: DateRange{From: "2024-03-01", To: "2024-03-01"}}, rowAccessors)
	assert.Equal(t, []string{"Forklift traffic"}, titles(both))
}

func TestFilterUndatedRecords(t *testing.T) {
	undated := []row{{Title: "Noise exposure", Status: "open"}}

	assert.Empty(t, Filter(undated, Criteria{DateRange: DateRange{From: "2024-01-01"}}, rowAccessors))
	assert.Empty(t, Filter(undated, Criteria{DateRange: DateRange{To: "2024-12-31"}}, rowAccessors))
	assert.Len(t, Filter(undated, Criteria{}, rowAccessors), 1)

	noDateAccessor := Accessors[row]{}
	assert.Empty(t, Filter(undated, Criteria{DateRange: DateRange{From: "2024-01-01"}}, noDateAccessor))
}

func TestGroupByFirstSeenOrder(t *testing.T) {
	groups := GroupBy(sampleRows(), func(r row) string { return r.Department })

	assert.Len(t, groups, 2)
	assert.Equal(t, "Logistics", groups[0].Key)
	assert.Equal(t, "Production", groups[1].Key)
	assert.Equal(t, []string{"Forklift traffic", "Ladder use"}, titles(groups[0].Items))

	reordered := []row{sampleRows()[1], sampleRows()[0], sampleRows()[2], sampleRows()[3]}
	groups = GroupBy(reordered, func(r row) string { return r.Department })
	assert.Equal(t, "Production", groups[0].Key)
	assert.Equal(t, "Logistics", groups[1].Key)
}

func TestGroupByNeverEmitsEmptyGroups(t *testing.T) {
	filtered := Filter(sampleRows(), Criteria{}.Select("department", "Logistics"), rowAccessors)
	groups := GroupBy(filtered, func(r row) string { return r.Department })

	assert.Len(t, groups, 1)
	for _, g := range groups {
		assert.NotEmpty(t, g.Items)
	}
	assert.Empty(t, GroupBy([]row{}, func(r row) string { return r.Department }))
}

func TestJoinKeysIncludesEveryKey(t *testing.T) {
	groups := GroupBy(sampleRows(), func(r row) string { return r.Department })
	joined := JoinKeys([]string{"Maintenance", "Production", "Logistics"}, groups)

	assert.Len(t, joined, 3)
	assert.Equal(t, "Maintenance", joined[0].Key)
	assert.NotNil(t, joined[0].Items)
	assert.Empty(t, joined[0].Items)
	assert.Len(t, joined[1].Items, 2)
	assert.Len(t, joined[2].Items, 2)
}

func TestDateOf(t *testing.T) {
	assert.Nil(t, DateOf(nil))
	assert.Nil(t, DateOf(&time.Time{}))

	ts := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-05", *DateOf(&ts))
}

func titles(rows []row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Title)
	}
	return out
}
