package lsp

import (
	"testing"

	"secd/internal/diag"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestPointRoundTrip(t *testing.T) {
	text := "(define 𝛌 1)\n(é 𝛌)\n"
	cases := []struct {
		pos  protocol.Position
		want point
	}{
		{protocol.Position{Line: 0, Character: 8}, point{Line: 1, Col: 9}},
		{protocol.Position{Line: 0, Character: 10}, point{Line: 1, Col: 13}},
		{protocol.Position{Line: 1, Character: 3}, point{Line: 2, Col: 5}},
		{protocol.Position{Line: 1, Character: 99}, point{Line: 2, Col: 10}},
	}
	for _, tc := range cases {
		got, ok := pointAt(text, tc.pos)
		if !ok || got != tc.want {
			t.Fatalf("pointAt(%v) = %v %v, want %v", tc.pos, got, ok, tc.want)
		}
	}
	if p := positionOf(text, point{Line: 1, Col: 13}); p.Character != 10 {
		t.Fatalf("unexpected position %#v", p)
	}
	if _, ok := pointAt(text, protocol.Position{Line: 7}); ok {
		t.Fatalf("expected no point past the last line")
	}
}

func TestDiagnosticRanges(t *testing.T) {
	text := "(define π 3)\n(car π)\n(lambda)\n"
	ds := []diag.Diagnostic{
		{Code: diag.CodeEvaluation, Message: "bad", Range: diag.Range{Line: 2, Col: 2}},
		{Code: diag.CodeSyntax, Message: "worse", Range: diag.Range{Line: 3, Col: 1}, Severity: diag.SeverityWarning},
	}
	got := ToLspDiagnostics(text, ds)
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(got))
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 1},
		End:   protocol.Position{Line: 1, Character: 4},
	}
	if got[0].Range != want {
		t.Fatalf("expected the symbol to be covered, got %#v", got[0].Range)
	}
	if got[1].Range.End.Character-got[1].Range.Start.Character != 1 {
		t.Fatalf("expected one unit at a delimiter, got %#v", got[1].Range)
	}
	if *got[1].Severity != protocol.DiagnosticSeverityWarning || *got[0].Source != Source {
		t.Fatalf("unexpected diagnostic %#v", got[1])
	}
	if got[0].Code == nil || got[0].Code.Value != diag.CodeEvaluation {
		t.Fatalf("missing code %#v", got[0].Code)
	}
}
