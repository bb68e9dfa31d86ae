package lsp

import (
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"secd/internal/config"
	"secd/internal/diag"
	"secd/internal/evaluator"
	"secd/internal/lexer"
	"secd/internal/module"
	"secd/internal/object"
	"secd/internal/token"
	"secd/internal/vm"
)

// Budgets for running a document. Each top-level form gets a fresh allowance.
const (
	sandboxSteps  = 2_000_000
	sandboxMemory = 64 << 20
)

// Definition is a top-level define or define-syntax found in a document.
type Definition struct {
	Name   string
	Line   int
	Col    int
	Syntax bool
}

// Analysis is what the server knows about one version of a document.
type Analysis struct {
	Diagnostics []diag.Diagnostic
	Definitions []Definition
	globals     map[string]object.Object
}

// Analyze reads the document form by form and runs each one in a fresh
// sandbox evaluator. A form that fails is reported and the rest still run,
// the same way a file load would have left the globals up to that point.
// path may be empty for unsaved buffers; imports then have nothing to
// resolve against.
func Analyze(text, path string) *Analysis {
	an := &Analysis{
		Definitions: scanDefinitions(text),
		globals:     map[string]object.Object{},
	}
	ev, err := sandbox(path)
	if err != nil {
		an.Diagnostics = append(an.Diagnostics, diag.FromError(err))
		return an
	}
	defer an.collect(ev)

	p := ev.Parser(text)
	for {
		d, err := p.Next()
		if err == io.EOF {
			return an
		}
		if err != nil {
			an.Diagnostics = append(an.Diagnostics, diag.FromError(err))
			return an
		}
		ev.ResetLimits()
		if _, err := ev.Eval(d.Value); err != nil {
			var exit *vm.ExitError
			if errors.As(err, &exit) {
				return an
			}
			an.Diagnostics = append(an.Diagnostics, diag.FromError(diag.At(err, d.Line, d.Col)))
		}
	}
}

func (an *Analysis) collect(ev *evaluator.Evaluator) {
	for _, b := range ev.Globals().Bindings() {
		if b.Name.Fresh() {
			continue
		}
		an.globals[b.Name.Name] = b.Value
	}
}

// Kind describes what a global name is bound to after the document ran.
func (an *Analysis) Kind(name string) (string, bool) {
	v, ok := an.globals[name]
	if !ok {
		return "", false
	}
	return kindOf(v), true
}

// Names returns every global name in sorted order.
func (an *Analysis) Names() []string {
	out := make([]string, 0, len(an.globals))
	for name := range an.globals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (an *Analysis) definition(name string) (Definition, bool) {
	for _, d := range an.Definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

func kindOf(v object.Object) string {
	switch v.(type) {
	case *object.Syntax:
		return "special form"
	case *object.Builtin:
		return "builtin"
	case *object.Closure:
		return "procedure"
	case *object.Continuation:
		return "continuation"
	case object.Transformer:
		return "macro"
	default:
		return "value"
	}
}

func sandbox(path string) (*evaluator.Evaluator, error) {
	opts := []evaluator.Option{
		evaluator.WithOutput(io.Discard),
		evaluator.WithInput(strings.NewReader("")),
		evaluator.WithMaxSteps(sandboxSteps),
		evaluator.WithMaxMemory(sandboxMemory),
	}
	if path == "" {
		return evaluator.New(opts...)
	}
	opts = append(opts, evaluator.WithFile(path))
	return evaluator.NewWithLibraries(resolverFor(path), opts...)
}

// resolverFor searches the nearest manifest's paths, then the document's
// own directory.
func resolverFor(path string) *module.Resolver {
	dir := filepath.Dir(path)
	std := filepath.Join(dir, "std")
	var paths []string
	if manifest, ok := config.FindManifest(dir); ok {
		if m, err := config.LoadManifest(manifest); err == nil {
			root := filepath.Dir(manifest)
			if s, p, err := m.ResolvePaths(root, filepath.Join(root, "std")); err == nil {
				std, paths = s, p
			}
		}
	}
	return module.NewResolver(std, append(paths, dir))
}

type scanState int

const (
	scanNone scanState = iota
	scanHead
	scanName
)

// scanDefinitions finds the names of top-level define and define-syntax
// forms from the token stream, so positions survive even when the form
// itself fails to compile. Curried heads such as ((adder n) x) are
// followed down to the innermost name.
func scanDefinitions(text string) []Definition {
	l := lexer.New(text)
	var defs []Definition
	depth := 0
	state := scanNone
	syntax := false
	skip := false
	for {
		tok := l.NextToken()
		switch tok.Type {
		case token.EOF, token.ILLEGAL, token.INCOMPLETE:
			return defs
		case token.LPAREN, token.HASH_LPAREN:
			depth++
			if depth == 1 {
				state = scanNone
				if !skip && tok.Type == token.LPAREN {
					state = scanHead
				}
				skip = false
			} else if state == scanHead {
				state = scanNone
			}
		case token.RPAREN:
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				state = scanNone
			}
		case token.ATOM:
			switch state {
			case scanHead:
				state = scanNone
				if tok.Literal == "define" || tok.Literal == "define-syntax" {
					state = scanName
					syntax = tok.Literal == "define-syntax"
				}
			case scanName:
				defs = append(defs, Definition{Name: tok.Literal, Line: tok.Line, Col: tok.Col, Syntax: syntax})
				state = scanNone
			}
			if depth == 0 {
				skip = false
			}
		case token.QUOTE, token.QUASIQUOTE, token.UNQUOTE, token.UNQUOTE_SPLICING, token.DATUM_COMMENT:
			if depth == 0 {
				skip = true
			}
			if state != scanNone {
				state = scanNone
			}
		default:
			if state == scanHead {
				state = scanNone
			}
			if depth == 0 {
				skip = false
			}
		}
	}
}
