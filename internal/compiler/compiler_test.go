package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secd/internal/diag"
	"secd/internal/object"
	"secd/internal/parser"
)

type fakeExpander struct {
	calls  int
	expand func(form object.Object) object.Object
}

func (f *fakeExpander) Expand(t object.Transformer, form object.Object) (object.Object, error) {
	f.calls++
	return f.expand(form), nil
}

func newCompiler(t *testing.T, exp Expander) (*Compiler, *object.SymbolTable) {
	t.Helper()
	symbols := object.NewSymbolTable()
	c := New(object.NewEnvironment(), symbols, exp)
	c.DefineSyntax()
	return c, symbols
}

func read(t *testing.T, symbols *object.SymbolTable, src string) object.Object {
	t.Helper()
	data, err := parser.ReadString(src, symbols)
	require.NoError(t, err)
	require.Len(t, data, 1)
	return data[0]
}

func compileString(t *testing.T, src string) string {
	t.Helper()
	c, symbols := newCompiler(t, nil)
	program, err := c.Compile(read(t, symbols, src))
	require.NoError(t, err)
	return object.Write(program)
}

func TestCompileShapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"42", "(LOAD_LITERAL 42 STOP)"},
		{"'(a b)", "(LOAD_LITERAL (a b) STOP)"},
		{"()", "(LOAD_LITERAL () STOP)"},
		{"x", "(LOAD_GLOBAL x STOP)"},
		{"(f 1 2)", "(LOAD_LITERAL () LOAD_LITERAL 2 PUSH LOAD_LITERAL 1 PUSH LOAD_GLOBAL f APPLY STOP)"},
		{"(define x 1)", "(LOAD_LITERAL 1 DEFINE x STOP)"},
		{"(set! x 1)", "(LOAD_LITERAL 1 SET_GLOBAL x STOP)"},
		{"(begin 1 2)", "(LOAD_LITERAL 1 POP LOAD_LITERAL 2 STOP)"},
		{"(if a b c)", "(LOAD_GLOBAL a SELECT (LOAD_GLOBAL b JOIN) (LOAD_GLOBAL c JOIN) STOP)"},
		{"(lambda (x) x)", "(MAKE_CLOSURE (LOAD_LOCAL (0 . 0) RETURN) STOP)"},
		{"(lambda (x . r) r)", "(MAKE_CLOSURE (LOAD_LOCAL_VARIADIC (0 . 1)... RETURN) STOP)"},
		{"(lambda r r)", "(MAKE_CLOSURE (LOAD_LOCAL_VARIADIC (0 . 0)... RETURN) STOP)"},
		{"(lambda (x) (x))", "(MAKE_CLOSURE (LOAD_LITERAL () LOAD_LOCAL (0 . 0) APPLY_TAIL RETURN) STOP)"},
		{"(lambda (x) (set! x 1))", "(MAKE_CLOSURE (LOAD_LITERAL 1 SET_LOCAL (0 . 0) RETURN) STOP)"},
		{"(lambda (x . r) (set! r 1))", "(MAKE_CLOSURE (LOAD_LITERAL 1 SET_LOCAL_VARIADIC (0 . 1)... RETURN) STOP)"},
		{"(lambda () (if a b))", "(MAKE_CLOSURE (LOAD_GLOBAL a SELECT_TAIL (LOAD_GLOBAL b RETURN) (LOAD_LITERAL #<unspecified> RETURN) RETURN) STOP)"},
		{"(lambda (a) (lambda (b) a))", "(MAKE_CLOSURE (MAKE_CLOSURE (LOAD_LOCAL (1 . 0) RETURN) RETURN) STOP)"},
		{"(call/cc f)", "(MAKE_CONTINUATION (STOP) LOAD_GLOBAL f APPLY STOP)"},
		{"(environment (form) form)", "(MAKE_ENVIRONMENT (LOAD_LOCAL (0 . 0) RETURN) STOP)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, compileString(t, tt.input))
		})
	}
}

func TestLocalShadowingDisablesSpecialForms(t *testing.T) {
	got := compileString(t, "(lambda (if) (if 1))")
	assert.Equal(t, "(MAKE_CLOSURE (LOAD_LITERAL () LOAD_LITERAL 1 PUSH LOAD_LOCAL (0 . 0) APPLY_TAIL RETURN) STOP)", got)
}

func TestInternalDefinitionsBecomeALambda(t *testing.T) {
	got := compileString(t, "(lambda () (define a 1) a)")
	assert.Contains(t, got, "SET_LOCAL (0 . 0)")
	assert.Contains(t, got, "LOAD_LITERAL #<unspecified> PUSH")
	assert.NotContains(t, got, "DEFINE")
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"(if)", "if: expected"},
		{"(quote)", "quote: expected"},
		{"(lambda (1) x)", "parameter must be a symbol"},
		{"(lambda (x x) x)", "duplicate parameter"},
		{"(lambda (x))", "lambda: expected"},
		{"(lambda () (define a 1))", "no expression"},
		{"(lambda () 1 (define a 2))", "cannot appear in this context"},
		{"(set! 1 2)", "target must be a symbol"},
		{"(define)", "define: expected"},
		{"(f . 1)", "improper argument list"},
		{"`(,@x)", ""},
		{"`,@x", "unquote-splicing outside of a list"},
		{"(define-syntax 1 2)", "cannot bind"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, symbols := newCompiler(t, nil)
			_, err := c.Compile(read(t, symbols, tt.input))
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, diag.CodeSyntax, diag.Code(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestImportWithoutImporter(t *testing.T) {
	c, symbols := newCompiler(t, nil)
	_, err := c.Compile(read(t, symbols, `(import "lib")`))
	require.Error(t, err)
	assert.Equal(t, diag.CodeImport, diag.Code(err))
}

type fakeImporter struct{ bindings []object.Binding }

func (f fakeImporter) Import(spec string) ([]object.Binding, error) { return f.bindings, nil }

func TestImportDefinesEachBinding(t *testing.T) {
	c, symbols := newCompiler(t, nil)
	c.SetImporter(fakeImporter{bindings: []object.Binding{
		{Name: &object.Symbol{Name: "a"}, Value: object.NewInt(1)},
		{Name: symbols.Fresh("hidden"), Value: object.NewInt(2)},
		{Name: &object.Symbol{Name: "b"}, Value: object.NewInt(3)},
	}})
	program, err := c.Compile(read(t, symbols, `(import "lib")`))
	require.NoError(t, err)
	assert.Equal(t, `(LOAD_LITERAL 1 DEFINE a POP LOAD_LITERAL 3 DEFINE b POP LOAD_LITERAL "lib" STOP)`, object.Write(program))

	_, err = c.Compile(read(t, symbols, `(lambda () (import "lib"))`))
	require.Error(t, err)
	assert.Equal(t, diag.CodeSyntax, diag.Code(err))
}

func TestMacroUseIsExpandedAtCompileTime(t *testing.T) {
	exp := &fakeExpander{}
	c, symbols := newCompiler(t, exp)
	exp.expand = func(form object.Object) object.Object {
		return object.List(symbols.Intern("quote"), object.Cadr(form))
	}
	c.globals.Define(symbols.Intern("m"), &object.Macro{Name: "m"})

	program, err := c.Compile(read(t, symbols, "(m (1 2))"))
	require.NoError(t, err)
	assert.Equal(t, "(LOAD_LITERAL (1 2) STOP)", object.Write(program))
	assert.Equal(t, 1, exp.calls)

	// A local named m is not a macro use.
	program, err = c.Compile(read(t, symbols, "(lambda (m) (m 1))"))
	require.NoError(t, err)
	assert.Contains(t, object.Write(program), "APPLY_TAIL")
	assert.Equal(t, 1, exp.calls)
}

func TestRunawayExpansionFails(t *testing.T) {
	exp := &fakeExpander{expand: func(form object.Object) object.Object { return form }}
	c, symbols := newCompiler(t, exp)
	c.globals.Define(symbols.Intern("loop"), &object.Macro{Name: "loop"})
	_, err := c.Compile(read(t, symbols, "(loop)"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macro expansion nested deeper")
}

func TestQuasiquoteUsesPrivateNatives(t *testing.T) {
	c, symbols := newCompiler(t, nil)
	program, err := c.Compile(read(t, symbols, "`(a ,b)"))
	require.NoError(t, err)
	text := object.Write(program)
	assert.Contains(t, text, "#<builtin cons>")
	assert.Contains(t, text, "LOAD_GLOBAL b")
	assert.NotContains(t, text, "LOAD_GLOBAL cons")
}

func TestResolve(t *testing.T) {
	symbols := object.NewSymbolTable()
	a, b, c, d, e := symbols.Intern("a"), symbols.Intern("b"), symbols.Intern("c"), symbols.Intern("d"), symbols.Intern("e")
	frames := object.List(
		object.List(a, b),
		object.ListStar(c, d),
	)

	coord, ok := Resolve(b, frames)
	require.True(t, ok)
	assert.Equal(t, object.Coordinate{Depth: 0, Offset: 1}, *coord)

	coord, ok = Resolve(d, frames)
	require.True(t, ok)
	assert.Equal(t, object.Coordinate{Depth: 1, Offset: 1, Variadic: true}, *coord)

	_, ok = Resolve(e, frames)
	assert.False(t, ok)

	assert.Equal(t, LocalScope, Scope(a, frames))
	assert.Equal(t, VariadicScope, Scope(d, frames))
	assert.Equal(t, GlobalScope, Scope(e, frames))
}

// Values placed in an environment shaped like the frames are found again at
// the coordinates Resolve hands out.
func TestResolveRoundTrip(t *testing.T) {
	symbols := object.NewSymbolTable()
	names := []string{"p", "q", "r", "s", "t", "u"}
	syms := make([]*object.Symbol, len(names))
	for i, n := range names {
		syms[i] = symbols.Intern(n)
	}
	frames := object.List(
		object.List(syms[0]),
		object.ListStar(syms[1], syms[2], syms[3]),
		syms[4],
		object.List(syms[5]),
	)
	env := object.List(
		object.List(object.NewInt(0)),
		object.List(object.NewInt(1), object.NewInt(2), object.NewInt(3), object.NewInt(33)),
		object.List(object.NewInt(4), object.NewInt(44)),
		object.List(object.NewInt(5)),
	)
	expected := []string{"0", "1", "2", "(3 33)", "(4 44)", "5"}

	for i, sym := range syms {
		coord, ok := Resolve(sym, frames)
		require.True(t, ok, sym.Name)
		frame, ok := object.Tail(env, coord.Depth)
		require.True(t, ok)
		values, ok := object.Tail(object.Car(frame), coord.Offset)
		require.True(t, ok)
		var got object.Object
		if coord.Variadic {
			got = values
		} else {
			got = object.Car(values)
		}
		assert.Equal(t, expected[i], object.Write(got), sym.Name)
	}
}

func TestDisassemble(t *testing.T) {
	c, symbols := newCompiler(t, nil)
	program, err := c.Compile(read(t, symbols, "(define f (lambda (x) x))"))
	require.NoError(t, err)
	got := Disassemble(program)
	want := strings.Join([]string{
		"0000 MAKE_CLOSURE",
		"  0000 LOAD_LOCAL (0 . 0)",
		"  0001 RETURN",
		"0001 DEFINE f",
		"0002 STOP",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestSpecialFormsAreBound(t *testing.T) {
	c, symbols := newCompiler(t, nil)
	for _, name := range SpecialForms() {
		v, ok := c.globals.Get(symbols.Intern(name))
		require.True(t, ok, name)
		_, isSyntax := v.(*object.Syntax)
		assert.True(t, isSyntax, name)
	}
}
