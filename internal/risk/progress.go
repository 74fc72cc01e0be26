package risk

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MeasureStatus is the progress state of a mitigation measure.
type MeasureStatus string

const (
	StatusNotStarted MeasureStatus = "not_started"
	StatusOpen       MeasureStatus = "open"
	StatusPending    MeasureStatus = "pending"
	StatusInProgress MeasureStatus = "in_progress"
	StatusBlocked    MeasureStatus = "blocked"
	StatusCompleted  MeasureStatus = "completed"
)

var statusSynonyms = map[string]MeasureStatus{
	"not_started": StatusNotStarted,
	"notstarted":  StatusNotStarted,
	"open":        StatusOpen,
	"pending":     StatusPending,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"blocked":     StatusBlocked,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
}

// NormalizeStatus folds the status spellings seen across screens into one vocabulary.
// Unknown values are kept verbatim (trimmed) so they still display.
func NormalizeStatus(raw string) MeasureStatus {
	trimmed := strings.TrimSpace(raw)
	key := strings.ReplaceAll(strings.ToLower(trimmed), "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if status, ok := statusSynonyms[key]; ok {
		return status
	}
	return MeasureStatus(trimmed)
}

// Known reports whether the status is part of the canonical vocabulary.
func (s MeasureStatus) Known() bool {
	switch s {
	case StatusNotStarted, StatusOpen, StatusPending, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the measure counts as done.
func (s MeasureStatus) Terminal() bool {
	return NormalizeStatus(string(s)) == StatusCompleted
}

// Scan normalizes statuses read from the database.
func (s *MeasureStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StatusNotStarted
	case string:
		*s = NormalizeStatus(v)
	case []byte:
		*s = NormalizeStatus(string(v))
	default:
		return fmt.Errorf("unsupported type %T for MeasureStatus", value)
	}
	return nil
}

// Value writes the canonical spelling.
func (s MeasureStatus) Value() (driver.Value, error) {
	return string(NormalizeStatus(string(s))), nil
}

// UnmarshalJSON normalizes statuses arriving from clients.
func (s *MeasureStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode measure status: %w", err)
	}
	*s = NormalizeStatus(raw)
	return nil
}

// ProgressPercent returns the share of terminal statuses as an integer percentage,
// rounded half up. An empty list yields 0.
func ProgressPercent(statuses []MeasureStatus) int {
	if len(statuses) == 0 {
		return 0
	}
	done := 0
	for _, status := range statuses {
		if status.Terminal() {
			done++
		}
	}
	return int(math.Floor(100*float64(done)/float64(len(statuses)) + 0.5))
}

// ProgressOf extracts statuses with fn and returns their progress percentage.
func ProgressOf[T any](items []T, fn func(T) MeasureStatus) int {
	statuses := make([]MeasureStatus, len(items))
	for i, item := range items {
		statuses[i] = fn(item)
	}
	return ProgressPercent(statuses)
}
