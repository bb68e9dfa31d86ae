package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// point is a 1-based line and byte column, as the reader reports them.
// The protocol counts 0-based lines and UTF-16 code units instead.
type point struct {
	Line int
	Col  int
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// units is the width of s in UTF-16 code units. Invalid runes count as one.
func units(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}

// pointAt maps a protocol position to a point in text.
func pointAt(text string, pos protocol.Position) (point, bool) {
	lines := splitLines(text)
	if int(pos.Line) >= len(lines) {
		return point{}, false
	}
	line := lines[pos.Line]
	seen := 0
	for i, r := range line {
		w := len(utf16.Encode([]rune{r}))
		if seen+w > int(pos.Character) {
			return point{Line: int(pos.Line) + 1, Col: i + 1}, true
		}
		seen += w
	}
	return point{Line: int(pos.Line) + 1, Col: len(line) + 1}, true
}

// positionOf maps a point back to a protocol position, clamping columns
// past the end of the line.
func positionOf(text string, p point) protocol.Position {
	lines := splitLines(text)
	if p.Line <= 0 || p.Line > len(lines) {
		return protocol.Position{}
	}
	line := lines[p.Line-1]
	col := min(max(p.Col-1, 0), len(line))
	return protocol.Position{Line: uint32(p.Line - 1), Character: uint32(units(line[:col]))}
}

// spanRange covers word starting at p. Empty words still get one unit so
// editors have something to underline.
func spanRange(text string, p point, word string) protocol.Range {
	start := positionOf(text, p)
	end := start
	end.Character += uint32(max(1, units(word)))
	return protocol.Range{Start: start, End: end}
}
