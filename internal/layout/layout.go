package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// MeasureFunc reports the rendered width of a candidate line.
type MeasureFunc func(line string) float64

// Result is an ordered list of display lines.
type Result struct {
	Lines []string
}

func (r Result) LineCount() int {
	return len(r.Lines)
}

// Wrap greedily packs the whitespace separated words of text into lines
// whose measured width does not exceed maxWidth. A single word wider than
// maxWidth is kept on its own line. Empty input yields one empty line.
func Wrap(text string, measure MeasureFunc, maxWidth float64) Result {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Result{Lines: []string{""}}
	}

	lines := make([]string, 0, len(words))
	current := words[0]

	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}

		lines = append(lines, current)
		current = word
	}

	lines = append(lines, current)

	return Result{Lines: lines}
}

// RuneCount measures one unit per rune.
func RuneCount(line string) float64 {
	return float64(utf8.RuneCountInString(line))
}

// Columns measures terminal cells, counting wide East Asian runes twice.
func Columns(line string) float64 {
	return float64(runewidth.StringWidth(line))
}

// Scaled returns an oracle reporting measure(line) * factor.
func Scaled(measure MeasureFunc, factor float64) MeasureFunc {
	return func(line string) float64 {
		return measure(line) * factor
	}
}
