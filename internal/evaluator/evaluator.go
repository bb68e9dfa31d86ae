// Package evaluator ties the reader, compiler and machine together into one
// interpreter instance with its own globals.
package evaluator

import (
	_ "embed"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"secd/internal/compiler"
	"secd/internal/diag"
	"secd/internal/lexer"
	"secd/internal/module"
	"secd/internal/object"
	"secd/internal/parser"
	"secd/internal/runtimeio"
	"secd/internal/vm"
)

//go:embed prelude.scm
var preludeSource string

const preludeName = "prelude.scm"

type options struct {
	out       io.Writer
	in        io.Reader
	prelude   bool
	maxSteps  int64
	maxMemory int64
	trace     bool
	loader    *module.Loader
	symbols   *object.SymbolTable
	file      string
}

type Option func(*options)

func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }
func WithInput(r io.Reader) Option  { return func(o *options) { o.in = r } }
func WithoutPrelude() Option        { return func(o *options) { o.prelude = false } }
func WithMaxSteps(n int64) Option   { return func(o *options) { o.maxSteps = n } }
func WithMaxMemory(n int64) Option  { return func(o *options) { o.maxMemory = n } }
func WithTrace(on bool) Option      { return func(o *options) { o.trace = on } }

// WithLoader enables import through l.
func WithLoader(l *module.Loader) Option { return func(o *options) { o.loader = l } }

// WithSymbols shares an interner with other instances so quoted symbols
// stay eq? across them.
func WithSymbols(t *object.SymbolTable) Option { return func(o *options) { o.symbols = t } }

// WithFile names the file relative imports and loads start from.
func WithFile(path string) Option { return func(o *options) { o.file = path } }

type Evaluator struct {
	symbols  *object.SymbolTable
	globals  *object.Environment
	compiler *compiler.Compiler
	machine  *vm.VM
	loader   *module.Loader
	input    *runtimeio.Input
	pending  []object.Object
	file     string
	bootMark uint64
	log      commonlog.Logger
}

func New(opts ...Option) (*Evaluator, error) {
	o := options{out: os.Stdout, in: os.Stdin, prelude: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.symbols == nil {
		o.symbols = object.NewSymbolTable()
	}

	ev := &Evaluator{
		symbols: o.symbols,
		globals: object.NewEnvironment(),
		loader:  o.loader,
		input:   runtimeio.NewInput(o.in),
		file:    o.file,
		log:     commonlog.GetLogger("secd.evaluator"),
	}
	ev.machine = vm.New(ev.globals, ev.symbols)
	ev.machine.SetOutput(o.out)
	ev.machine.SetTrace(o.trace)

	ev.compiler = compiler.New(ev.globals, ev.symbols, ev.machine)
	if ev.loader != nil {
		ev.compiler.SetImporter(ev)
	}
	ev.compiler.DefineSyntax()
	ev.machine.DefineBuiltins()
	ev.defineBuiltins()

	if o.prelude {
		if _, err := ev.evalSource(preludeSource); err != nil {
			return nil, err
		}
		ev.log.Debugf("prelude loaded, %d globals", ev.globals.Len())
	}
	ev.bootMark = ev.globals.Mark()
	// Boot runs unbounded; the budgets apply to user code only.
	ev.machine.SetMaxSteps(o.maxSteps)
	ev.machine.SetMaxMemory(o.maxMemory)
	ev.machine.ResetStats()
	return ev, nil
}

// NewWithLibraries creates an evaluator whose imports resolve through res.
// Every library instance shares its symbol table and options.
func NewWithLibraries(res *module.Resolver, opts ...Option) (*Evaluator, error) {
	base := append([]Option{WithSymbols(object.NewSymbolTable())}, opts...)
	l := module.NewLoader(res, nil)
	l.SetFactory(func(path string) (module.Library, error) {
		lib, err := New(append(append([]Option{}, base...), WithLoader(l), WithFile(path))...)
		if err != nil {
			return nil, err
		}
		return lib, nil
	})
	return New(append(base, WithLoader(l))...)
}

func (ev *Evaluator) Globals() *object.Environment { return ev.globals }
func (ev *Evaluator) Symbols() *object.SymbolTable { return ev.symbols }
func (ev *Evaluator) Machine() *vm.VM              { return ev.machine }
func (ev *Evaluator) File() string                 { return ev.file }

// ResetLimits refills the step and memory budgets and clears statistics.
func (ev *Evaluator) ResetLimits() {
	ev.machine.ResetStats()
}

// Compile translates one datum without running it.
func (ev *Evaluator) Compile(expr object.Object) (object.Object, error) {
	return ev.compiler.Compile(expr)
}

// Eval compiles and runs one top-level form.
func (ev *Evaluator) Eval(expr object.Object) (object.Object, error) {
	program, err := ev.compiler.Compile(expr)
	if err != nil {
		return nil, err
	}
	return ev.Run(program)
}

// Run executes code produced by Compile.
func (ev *Evaluator) Run(program object.Object) (object.Object, error) {
	return ev.machine.Execute(program)
}

// Parser reads src with read-time evaluation bound to this instance.
func (ev *Evaluator) Parser(src string) *parser.Parser {
	p := parser.New(lexer.New(src), ev.symbols)
	p.SetReadTimeEval(ev.Eval)
	return p
}

// EvalString reads and evaluates each datum of src in turn and returns the
// last value. The first error stops evaluation; definitions made before it
// stay in place.
func (ev *Evaluator) EvalString(src string) (object.Object, error) {
	return ev.evalSource(src)
}

func (ev *Evaluator) evalSource(src string) (object.Object, error) {
	p := ev.Parser(src)
	var result object.Object = object.Unspecified
	for {
		d, err := p.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result, err = ev.Eval(d.Value)
		if err != nil {
			return nil, diag.At(err, d.Line, d.Col)
		}
	}
}

// LoadFile evaluates the file at path. Relative imports and loads inside it
// start from its directory.
func (ev *Evaluator) LoadFile(path string) (object.Object, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	prev := ev.file
	ev.file = abs
	defer func() { ev.file = prev }()
	ev.log.Infof("loading %s", abs)
	return ev.evalSource(string(src))
}

// Exports lists every global defined after boot, in definition order.
func (ev *Evaluator) Exports() []object.Binding {
	return ev.globals.DefinedSince(ev.bootMark)
}

// Import loads a library through the configured loader.
func (ev *Evaluator) Import(spec string) ([]object.Binding, error) {
	if ev.loader == nil {
		return nil, diag.Import.New("import %q: no library loader configured", spec)
	}
	ev.log.Infof("import %q from %s", spec, ev.file)
	bindings, _, err := ev.loader.Load(ev.file, spec)
	return bindings, err
}
