package lsp

import (
	"secd/internal/diag"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Source names this server in published diagnostics.
const Source = "secd"

// ToLspDiagnostics converts analysis diagnostics for text. Each one covers
// the symbol or delimiter at its position.
func ToLspDiagnostics(text string, ds []diag.Diagnostic) []protocol.Diagnostic {
	lines := splitLines(text)
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		p := point{Line: d.Range.Line, Col: d.Range.Col}
		word := ""
		if p.Line > 0 && p.Line <= len(lines) {
			line := lines[p.Line-1]
			start, end := symbolBounds(line, p.Col-1)
			if start == p.Col-1 && end > start {
				word = line[start:end]
			}
		}

		pd := protocol.Diagnostic{
			Range:    spanRange(text, p, word),
			Severity: severity(d.Severity),
			Source:   ptrString(Source),
			Message:  d.Message,
		}
		if d.Code != "" {
			pd.Code = &protocol.IntegerOrString{Value: d.Code}
		}
		out = append(out, pd)
	}
	return out
}

func severity(s diag.Severity) *protocol.DiagnosticSeverity {
	v := protocol.DiagnosticSeverityError
	switch s {
	case diag.SeverityWarning:
		v = protocol.DiagnosticSeverityWarning
	case diag.SeverityInfo:
		v = protocol.DiagnosticSeverityInformation
	}
	return &v
}

func ptrString(s string) *string { return &s }
