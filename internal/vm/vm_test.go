package vm

import (
	"bytes"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secd/internal/code"
	"secd/internal/compiler"
	"secd/internal/diag"
	"secd/internal/object"
	"secd/internal/parser"
)

type machine struct {
	*VM
	compiler *compiler.Compiler
	out      *bytes.Buffer
}

func newMachine(t *testing.T) *machine {
	t.Helper()
	symbols := object.NewSymbolTable()
	globals := object.NewEnvironment()
	m := New(globals, symbols)
	var out bytes.Buffer
	m.SetOutput(&out)
	c := compiler.New(globals, symbols, m)
	c.DefineSyntax()
	m.DefineBuiltins()
	return &machine{VM: m, compiler: c, out: &out}
}

// run evaluates every form of src and returns the last value.
func (m *machine) run(src string) (object.Object, error) {
	forms, err := parser.ReadString(src, m.Symbols())
	if err != nil {
		return nil, err
	}
	var result object.Object = object.Unspecified
	for _, form := range forms {
		program, err := m.compiler.Compile(form)
		if err != nil {
			return nil, err
		}
		result, err = m.Execute(program)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *machine) mustRun(t *testing.T, src string) string {
	t.Helper()
	v, err := m.run(src)
	require.NoError(t, err)
	return object.Write(v)
}

func inst(op code.Opcode) object.Object { return object.Inst(op) }

func TestExecuteHandWrittenCode(t *testing.T) {
	m := newMachine(t)
	plus, ok := m.Globals().Get(m.Symbols().Intern("+"))
	require.True(t, ok)

	program := object.List(
		inst(code.OpLoadLiteral), object.Unit,
		inst(code.OpLoadLiteral), object.NewInt(2),
		inst(code.OpPush),
		inst(code.OpLoadLiteral), object.NewInt(40),
		inst(code.OpPush),
		inst(code.OpLoadLiteral), plus,
		inst(code.OpApply),
		inst(code.OpStop),
	)
	v, err := m.Execute(program)
	require.NoError(t, err)
	assert.Equal(t, "42", object.Write(v))
}

func TestClosureCallAndReturn(t *testing.T) {
	m := newMachine(t)
	body := object.List(
		inst(code.OpLoadLocal), &object.Coordinate{Depth: 0, Offset: 1},
		inst(code.OpReturn),
	)
	program := object.List(
		inst(code.OpLoadLiteral), object.Unit,
		inst(code.OpLoadLiteral), object.NewInt(2),
		inst(code.OpPush),
		inst(code.OpLoadLiteral), object.NewInt(1),
		inst(code.OpPush),
		inst(code.OpMakeClosure), body,
		inst(code.OpApply),
		inst(code.OpStop),
	)
	v, err := m.Execute(program)
	require.NoError(t, err)
	assert.Equal(t, "2", object.Write(v))
	assert.Equal(t, 1, m.Stats().MaxDump)
}

func TestStopOnEmptyStackIsUnspecified(t *testing.T) {
	m := newMachine(t)
	v, err := m.Execute(object.List(inst(code.OpStop)))
	require.NoError(t, err)
	assert.Equal(t, object.Unspecified, v)
}

func TestMalformedCode(t *testing.T) {
	m := newMachine(t)
	_, err := m.Execute(object.List(inst(code.OpLoadLiteral), object.NewInt(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without STOP")

	_, err = m.Execute(object.List(object.NewInt(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not an instruction")

	_, err = m.Execute(object.List(inst(code.OpLoadGlobal), object.NewInt(1), inst(code.OpStop)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a symbol")

	_, err = m.Execute(object.List(inst(code.OpReturn)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETURN with an empty dump")
}

func TestTailCallsDoNotGrowTheDump(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, "done", m.mustRun(t, `
(define loop (lambda (n) (if (= n 0) 'done (loop (- n 1)))))
(loop 20000)`))
	assert.LessOrEqual(t, m.Stats().MaxDump, 2)

	m.ResetStats()
	assert.Equal(t, "200", m.mustRun(t, `
(define deep (lambda (n) (if (= n 0) 0 (+ 1 (deep (- n 1))))))
(deep 200)`))
	assert.Greater(t, m.Stats().MaxDump, 200)
}

func TestVariadicFrames(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, "(1 2 (3 5) 4)", m.mustRun(t, "((lambda (a b . c) ((lambda (d) (list a b c d)) 4)) 1 2 3 5)"))
	assert.Equal(t, "(9 8)", m.mustRun(t, "((lambda (a . r) (set! r (list 9 8)) r) 1 2)"))
	assert.Equal(t, "(x)", m.mustRun(t, "((lambda r (set! r '(x)) r) 1 2)"))
	assert.Equal(t, "()", m.mustRun(t, "((lambda (a . r) r) 1)"))
}

func TestSetLeavesValueOnStack(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, "5", m.mustRun(t, "(define x 1) (set! x 5)"))
	assert.Equal(t, "x", m.mustRun(t, "(define x 2)"))
}

func TestDefineNamesMacros(t *testing.T) {
	m := newMachine(t)
	m.mustRun(t, "(define unless-macro (environment (form) (cadr form)))")
	v, ok := m.Globals().Get(m.Symbols().Intern("unless-macro"))
	require.True(t, ok)
	mac, ok := v.(*object.Macro)
	require.True(t, ok)
	assert.Equal(t, "unless-macro", mac.Name)
}

func TestExpandRunsTransformerOnWholeForm(t *testing.T) {
	m := newMachine(t)
	v, err := m.run("(environment (form) (cdr form))")
	require.NoError(t, err)
	mac := v.(*object.Macro)

	form := object.List(m.Symbols().Intern("m"), object.NewInt(1), object.NewInt(2))
	expanded, err := m.Expand(mac, form)
	require.NoError(t, err)
	assert.Equal(t, "(1 2)", object.Write(expanded))
	assert.Equal(t, 1, m.Stats().Expansions)
}

func TestContinuations(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, "11", m.mustRun(t, "(+ 1 (call/cc (lambda (k) (k 10) 20)))"))
	assert.Equal(t, "3", m.mustRun(t, "(call-with-current-continuation (lambda (k) (+ 1 (k 3))))"))
	assert.Equal(t, "#<unspecified>", m.mustRun(t, "(call/cc (lambda (k) (k)))"))

	// The continuation keeps its own dump, so escaping from deep recursion
	// discards the pending frames.
	assert.Equal(t, "found", m.mustRun(t, `
(define search
  (lambda (n k)
    (if (= n 0) (k 'found) (+ 1 (search (- n 1) k)))))
(call/cc (lambda (k) (search 100 k)))`))
}

func TestApplyRunsInTheDispatchLoop(t *testing.T) {
	m := newMachine(t)
	assert.Equal(t, "(1 2 3 4)", m.mustRun(t, "(apply list 1 2 '(3 4))"))
	assert.Equal(t, "7", m.mustRun(t, "(apply (lambda (a b) (+ a b)) '(3 4))"))
	assert.Equal(t, "6", m.mustRun(t, "(apply apply + '((1 2 3)))"))

	assert.Equal(t, "11", m.mustRun(t, "(+ 1 (call/cc (lambda (k) (apply k '(10)) 20)))"))
	assert.Equal(t, "done", m.mustRun(t, `
(define walk
  (lambda (l k)
    (if (null? l) 'unreached
        (if (eq? (car l) 'stop) (apply k '(done)) (+ 1 (walk (cdr l) k))))))
(call/cc (lambda (k) (walk '(a b stop c) k)))`))

	m.ResetStats()
	assert.Equal(t, "done", m.mustRun(t, `
(define spin (lambda (n) (if (= n 0) 'done (apply spin (list (- n 1))))))
(spin 20000)`))
	assert.LessOrEqual(t, m.Stats().MaxDump, 2)

	_, err := m.run("(apply car 5)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last argument must be a list")
}

func TestRenamesAreFreshPerRun(t *testing.T) {
	m := newMachine(t)
	first, err := m.run("ghost")
	require.NoError(t, err)
	second, err := m.run("ghost")
	require.NoError(t, err)

	a := first.(*object.Symbol)
	b := second.(*object.Symbol)
	assert.True(t, a.Fresh())
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, m.Stats().Renamed)

	interned := m.Symbols().Intern("ghost")
	assert.NotSame(t, interned, a)
}

func TestApplicationErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"(() 1)", "unit is not applicable"},
		{"(\"str\")", "is not applicable"},
		{"(set! nowhere 1)", "nowhere is unbound"},
		{"((lambda (a b) b) 1)", "too few arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newMachine(t)
			_, err := m.run(tt.input)
			require.Error(t, err)
			assert.True(t, errorx.IsOfType(err, diag.Evaluation))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestSyntaxObjectIsNotAProcedure(t *testing.T) {
	m := newMachine(t)
	_, err := m.run("((car (list if)) 1 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "special form if")
}

func TestNativeErrorsCarryTheCall(t *testing.T) {
	m := newMachine(t)
	_, err := m.run("(car 1)")
	require.Error(t, err)
	form, ok := errorx.ExtractProperty(err, diag.PropertyForm)
	require.True(t, ok)
	assert.Equal(t, "(#<builtin car> 1)", object.Write(form.(object.Object)))
}

func TestStepBudget(t *testing.T) {
	m := newMachine(t)
	m.SetMaxSteps(1000)
	_, err := m.run("(define f (lambda () (f))) (f)")
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, diag.Steps))

	m.ResetStats()
	assert.Equal(t, "3", m.mustRun(t, "(+ 1 2)"))
}

func TestMemoryBudget(t *testing.T) {
	m := newMachine(t)
	m.SetMaxMemory(2048)
	_, err := m.run("(define f (lambda (n acc) (f (+ n 1) (cons n acc)))) (f 0 '())")
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, diag.Memory))
	assert.Greater(t, m.MemoryUsed(), int64(0))
}

func TestApplyEntryPoint(t *testing.T) {
	m := newMachine(t)
	proc, err := m.run("(lambda (a b) (- a b))")
	require.NoError(t, err)
	v, err := m.Apply(proc, object.List(object.NewInt(10), object.NewInt(4)))
	require.NoError(t, err)
	assert.Equal(t, "6", object.Write(v))
}
