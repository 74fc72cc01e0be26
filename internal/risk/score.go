// Package risk holds the hazard scoring rules shared by every risk-assessment view:
// the probability × severity score, its four-band classification, measure progress,
// and the generic filter/group helpers used by list and report endpoints.
//
// Everything in this package is pure. Callers own persistence and rendering.
package risk

// Level is the risk band derived from a score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists the bands from least to most severe.
var Levels = []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}

// Rating bounds for probability and severity inputs on the 5-point matrix.
const (
	MinRating = 1
	MaxRating = 5
)

// Band thresholds of the regulatory 5×5 matrix.
const (
	criticalThreshold = 20
	highThreshold     = 15
	mediumThreshold   = 8
)

// Score multiplies probability by severity. Inputs are not range-checked.
func Score(probability, severity int) int {
	return probability * severity
}

// Classify maps a score to its band. Missing scores should be passed as 0.
func Classify(score int) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Rating is one probability/severity pair with its derived score and band.
type Rating struct {
	Probability int   `json:"probability"`
	Severity    int   `json:"severity"`
	Score       int   `json:"score"`
	Level       Level `json:"level"`
}

// Rate computes the score and band for a probability/severity pair.
func Rate(probability, severity int) Rating {
	score := Score(probability, severity)
	return Rating{
		Probability: probability,
		Severity:    severity,
		Score:       score,
		Level:       Classify(score),
	}
}

// InRange reports whether v is a valid matrix rating.
func InRange(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// Valid reports whether the level is one of the four bands.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	default:
		return false
	}
}

// Rank orders bands from 0 (low) to 3 (critical); unknown levels rank -1.
func (l Level) Rank() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

// MatrixCell is one cell of the probability × severity grid.
type MatrixCell struct {
	Rating
	Before int `json:"before"`
	After  int `json:"after"`
}

// Matrix returns the full grid ordered by probability then severity, each cell rated.
func Matrix() [][]MatrixCell {
	grid := make([][]MatrixCell, 0, MaxRating)
	for p := MinRating; p <= MaxRating; p++ {
		row := make([]MatrixCell, 0, MaxRating)
		for s := MinRating; s <= MaxRating; s++ {
			row = append(row, MatrixCell{Rating: Rate(p, s)})
		}
		grid = append(grid, row)
	}
	return grid
}

// Thresholds returns the lowest score of each band above low.
func Thresholds() map[Level]int {
	return map[Level]int{
		LevelMedium:   mediumThreshold,
		LevelHigh:     highThreshold,
		LevelCritical: criticalThreshold,
	}
}
