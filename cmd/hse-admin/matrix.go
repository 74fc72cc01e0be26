package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/hse-api/internal/risk"
)

var (
	success = color.New(color.FgGreen)

	levelColors = map[risk.Level]*color.Color{
		risk.LevelLow:      color.New(color.FgGreen),
		risk.LevelMedium:   color.New(color.FgYellow),
		risk.LevelHigh:     color.New(color.FgHiRed),
		risk.LevelCritical: color.New(color.FgWhite, color.BgRed, color.Bold),
	}
)

func paint(level risk.Level, text string) string {
	if c, ok := levelColors[level]; ok {
		return c.Sprint(text)
	}
	return text
}

func matrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Print the 5x5 risk matrix",
		Long: `Print every probability x severity score colored by its band.

Rows are probability (1-5), columns are severity (1-5).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderMatrix(cmd.OutOrStdout())
			return nil
		},
	}
}

func renderMatrix(w io.Writer) {
	fmt.Fprint(w, "P\\S ")
	for s := risk.MinRating; s <= risk.MaxRating; s++ {
		fmt.Fprintf(w, "%4d", s)
	}
	fmt.Fprintln(w)

	for _, row := range risk.Matrix() {
		fmt.Fprintf(w, "%3d ", row[0].Probability)
		for _, cell := range row {
			fmt.Fprint(w, paint(cell.Level, fmt.Sprintf("%4d", cell.Score)))
		}
		fmt.Fprintln(w)
	}

	thresholds := risk.Thresholds()
	legend := make([]string, 0, len(risk.Levels))
	for _, level := range risk.Levels {
		from := 1
		if t, ok := thresholds[level]; ok {
			from = t
		}
		legend = append(legend, paint(level, fmt.Sprintf("%s >= %d", level, from)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Join(legend, "  "))
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <probability> <severity>",
		Short: "Score a probability/severity pair",
		Long: `Print the risk score and band for one pair of ratings.

Examples:
  hse-admin classify 4 5
  hse-admin classify 2 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := parseRating(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "score %d: %s\n", rating.Score, paint(rating.Level, string(rating.Level)))
			return nil
		},
	}
}

func parseRating(probability, severity string) (risk.Rating, error) {
	p, err := strconv.Atoi(probability)
	if err != nil || !risk.InRange(p) {
		return risk.Rating{}, fmt.Errorf("probability must be between %d and %d", risk.MinRating, risk.MaxRating)
	}
	s, err := strconv.Atoi(severity)
	if err != nil || !risk.InRange(s) {
		return risk.Rating{}, fmt.Errorf("severity must be between %d and %d", risk.MinRating, risk.MaxRating)
	}
	return risk.Rate(p, s), nil
}
