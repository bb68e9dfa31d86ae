package lsp

import (
	"fmt"
	"strings"

	"secd/internal/object"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const hoverValueWidth = 80

func DocumentSymbols(an *Analysis, text string) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(an.Definitions))
	for _, d := range an.Definitions {
		r := spanRange(text, point{Line: d.Line, Col: d.Col}, d.Name)
		kind := protocol.SymbolKindVariable
		detail := "value"
		if k, ok := an.Kind(d.Name); ok {
			detail = k
		} else if d.Syntax {
			detail = "macro"
		}
		switch detail {
		case "procedure", "builtin", "continuation", "macro":
			kind = protocol.SymbolKindFunction
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           d.Name,
			Detail:         ptrString(detail),
			Kind:           kind,
			Range:          r,
			SelectionRange: r,
		})
	}
	return out
}

// HoverAt shows what the global under the cursor is bound to.
func HoverAt(an *Analysis, text string, pos protocol.Position) *protocol.Hover {
	word, r, ok := symbolAt(text, pos)
	if !ok {
		return nil
	}
	v, ok := an.globals[word]
	if !ok {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "```scheme\n%s\n```\n\n%s", word, kindOf(v))
	if kindOf(v) == "value" {
		fmt.Fprintf(&b, " `%s`", truncate(object.Write(v), hoverValueWidth))
	}
	if d, ok := an.definition(word); ok {
		fmt.Fprintf(&b, "\n\ndefined on line %d", d.Line)
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: b.String()},
		Range:    &r,
	}
}

// CompletionItems offers global names matching the symbol prefix before the
// cursor. Names the document defines come first, in source order.
func CompletionItems(an *Analysis, text string, pos protocol.Position) []protocol.CompletionItem {
	prefix := prefixAt(text, pos)
	seen := map[string]bool{}
	var out []protocol.CompletionItem
	add := func(name string) {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			return
		}
		seen[name] = true
		k, ok := an.Kind(name)
		if !ok {
			return
		}
		out = append(out, protocol.CompletionItem{
			Label:  name,
			Kind:   completionKind(k),
			Detail: ptrString(k),
		})
	}
	for _, d := range an.Definitions {
		add(d.Name)
	}
	for _, name := range an.Names() {
		add(name)
	}
	return out
}

func completionKind(k string) *protocol.CompletionItemKind {
	kind := protocol.CompletionItemKindVariable
	switch k {
	case "procedure", "builtin", "continuation":
		kind = protocol.CompletionItemKindFunction
	case "special form", "macro":
		kind = protocol.CompletionItemKindKeyword
	}
	return &kind
}

func isSymbolBreak(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '(', ')', '\'', '`', ',', '"', ';':
		return true
	}
	return false
}

// symbolBounds returns the byte span [start, end) of the symbol touching
// the cursor at byte index i.
func symbolBounds(line string, i int) (int, int) {
	if i > len(line) {
		i = len(line)
	}
	start := i
	for start > 0 && !isSymbolBreak(line[start-1]) {
		start--
	}
	end := i
	for end < len(line) && !isSymbolBreak(line[end]) {
		end++
	}
	return start, end
}

func symbolAt(text string, pos protocol.Position) (string, protocol.Range, bool) {
	bp, ok := pointAt(text, pos)
	if !ok {
		return "", protocol.Range{}, false
	}
	line := splitLines(text)[bp.Line-1]
	start, end := symbolBounds(line, bp.Col-1)
	if start == end {
		return "", protocol.Range{}, false
	}
	word := line[start:end]
	return word, spanRange(text, point{Line: bp.Line, Col: start + 1}, word), true
}

func prefixAt(text string, pos protocol.Position) string {
	bp, ok := pointAt(text, pos)
	if !ok {
		return ""
	}
	line := splitLines(text)[bp.Line-1]
	i := min(bp.Col-1, len(line))
	start, _ := symbolBounds(line, i)
	return line[start:i]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
