package main

import (
	"math"
	"strings"

	"github.com/muesli/reflow/wrap"
)

// SizeCategory is a named board-dimension preset for a sheet.
type SizeCategory string

const (
	SizeSmall   SizeCategory = "small"
	SizeMedium  SizeCategory = "medium"
	SizeLarge   SizeCategory = "large"
	SizeBiggest SizeCategory = "biggest"
	SizeExcel   SizeCategory = "excel"
)

var sizeCategories = []SizeCategory{SizeSmall, SizeMedium, SizeLarge, SizeBiggest, SizeExcel}

var sizeAliases = map[string]SizeCategory{
	"damn big": SizeExcel,
	"giant":    SizeExcel,
	"excel":    SizeExcel,
}

// NormalizeSize maps user input onto a size category. Unknown input falls back to biggest.
func NormalizeSize(raw string) SizeCategory {
	s := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := sizeAliases[s]; ok {
		return alias
	}
	for _, c := range sizeCategories {
		if string(c) == s {
			return c
		}
	}
	return SizeBiggest
}

// orDefault is the size used for display and layout when a sheet has none stored.
func (s SizeCategory) orDefault() SizeCategory {
	if s == "" {
		return SizeMedium
	}
	return s
}

// Dimensions returns the board size in pixels.
func (s SizeCategory) Dimensions() (float64, float64) {
	switch s.orDefault() {
	case SizeSmall:
		return 800, 600
	case SizeLarge:
		return 1600, 1200
	case SizeBiggest:
		return 2400, 1600
	case SizeExcel:
		return 4000, 3000
	default:
		return 1200, 800
	}
}

// textColumns is how many characters fit on one line of a note of width w.
func textColumns(w float64) int {
	cols := int((w - 2*notePadding) / charWidth)
	if cols < 1 {
		cols = 1
	}
	return cols
}

// wrapText splits content into display lines at most width terminal columns
// wide. Overlong lines are broken hard; a space landing on a forced break is
// dropped. Double-width runes never straddle a line end.
func wrapText(content string, width int) []string {
	width = max(width, 2)
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		raw = strings.ReplaceAll(raw, "\t", "    ")
		lines = append(lines, strings.Split(wrap.String(raw, width), "\n")...)
	}
	return lines
}

// autoGrowHeight is the note height needed to show all of content at width w.
func autoGrowHeight(content string, w float64) float64 {
	lines := len(wrapText(content, textColumns(w)))
	body := math.Max(minBodyHeight, float64(lines)*lineHeight)
	return math.Max(minNoteHeight, headerHeight+body+notePadding)
}

func clampSize(w, h float64) (float64, float64) {
	return math.Max(minNoteWidth, w), math.Max(minNoteHeight, h)
}

func clampPosition(x, y float64) (float64, float64) {
	return math.Max(dragMargin, x), math.Max(dragMargin, y)
}
