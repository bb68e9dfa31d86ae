package compiler

import (
	"github.com/joomcode/errorx"
	"github.com/tliron/commonlog"

	"secd/internal/code"
	"secd/internal/object"
)

// Expander runs a transformer on a whole form at compile time.
type Expander interface {
	Expand(t object.Transformer, form object.Object) (object.Object, error)
}

// Importer loads a library and returns the bindings it exports.
type Importer interface {
	Import(spec string) ([]object.Binding, error)
}

// maxExpansionDepth bounds nested macro expansion so a transformer that
// expands into itself fails instead of exhausting the Go stack.
const maxExpansionDepth = 10000

type context struct {
	tail    bool
	program bool
}

var (
	asIs    = context{}
	program = context{program: true}
	tail    = context{tail: true}
)

type formHandler func(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error)

type Compiler struct {
	globals  *object.Environment
	symbols  *object.SymbolTable
	expander Expander
	importer Importer
	log      commonlog.Logger

	syntax   map[string]*object.Syntax
	handlers map[*object.Syntax]formHandler
	natives  map[string]*object.Builtin
	depth    int
}

// New creates a compiler that resolves special forms and macros through
// globals. DefineSyntax must be called once per environment before forms
// can be compiled.
func New(globals *object.Environment, symbols *object.SymbolTable, expander Expander) *Compiler {
	c := &Compiler{
		globals:  globals,
		symbols:  symbols,
		expander: expander,
		log:      commonlog.GetLogger("secd.compiler"),
		syntax:   map[string]*object.Syntax{},
		handlers: map[*object.Syntax]formHandler{},
	}
	for name, h := range forms {
		s := &object.Syntax{Name: name}
		c.syntax[name] = s
		c.handlers[s] = h
	}
	c.natives = quasiquoteNatives()
	return c
}

func (c *Compiler) SetImporter(importer Importer) {
	c.importer = importer
}

// DefineSyntax binds every special form name in the global environment.
func (c *Compiler) DefineSyntax() {
	for name, s := range c.syntax {
		c.globals.Define(c.symbols.Intern(name), s)
	}
}

func (c *Compiler) Symbols() *object.SymbolTable { return c.symbols }

// Compile translates one top-level form into code that ends in STOP.
func (c *Compiler) Compile(expr object.Object) (object.Object, error) {
	return c.compile(expr, object.Unit, object.List(object.Inst(code.OpStop)), program)
}

// CompileIn compiles expr as if it appeared inside lambdas whose formals
// are frames, with cont as the code to run afterwards.
func (c *Compiler) CompileIn(expr, frames, cont object.Object) (object.Object, error) {
	return c.compile(expr, frames, cont, asIs)
}

// emit returns op and its operands followed by cont.
func emit(cont object.Object, op code.Opcode, operands ...object.Object) object.Object {
	out := cont
	for i := len(operands) - 1; i >= 0; i-- {
		out = object.Cons(operands[i], out)
	}
	return object.Cons(object.Inst(op), out)
}

func (c *Compiler) compile(expr, frames, cont object.Object, ctx context) (object.Object, error) {
	switch x := expr.(type) {
	case *object.Null:
		return emit(cont, code.OpLoadLiteral, object.Unit), nil
	case *object.Symbol:
		if coord, ok := Resolve(x, frames); ok {
			if coord.Variadic {
				c.log.Debugf("%s ; is <variadic local> %s", x.Inspect(), coord.Inspect())
				return emit(cont, code.OpLoadLocalVariadic, coord), nil
			}
			c.log.Debugf("%s ; is <local> %s", x.Inspect(), coord.Inspect())
			return emit(cont, code.OpLoadLocal, coord), nil
		}
		c.log.Debugf("%s ; is <global>", x.Inspect())
		return emit(cont, code.OpLoadGlobal, x), nil
	case *object.Pair:
		return c.compilePair(x, frames, cont, ctx)
	default:
		return emit(cont, code.OpLoadLiteral, expr), nil
	}
}

func (c *Compiler) compilePair(form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	operator := form.Car
	if sym, ok := operator.(*object.Symbol); ok {
		if _, local := Resolve(sym, frames); !local {
			if value, bound := c.globals.Get(sym); bound {
				operator = value
			}
		}
	}
	switch op := operator.(type) {
	case *object.Syntax:
		if h, ok := c.handlers[op]; ok {
			c.log.Debugf("%s ; is <special form>", op.Name)
			return h(c, form, frames, cont, ctx)
		}
	case object.Transformer:
		return c.expand(op, form, frames, cont, ctx)
	}
	return c.call(form, frames, cont, ctx)
}

func (c *Compiler) expand(t object.Transformer, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	if c.expander == nil {
		return nil, syntaxError(form, "macro use %s without an expander", object.Write(form.Car))
	}
	if c.depth >= maxExpansionDepth {
		return nil, syntaxError(form, "macro expansion nested deeper than %d", maxExpansionDepth)
	}
	c.depth++
	defer func() { c.depth-- }()

	expanded, err := c.expander.Expand(t, form)
	if err != nil {
		return nil, errorx.Decorate(err, "while expanding %s", object.Write(form.Car))
	}
	c.log.Debugf("%s ; expanded at depth %d into %s", object.Write(form.Car), c.depth, object.Write(expanded))
	return c.compile(expanded, frames, cont, ctx)
}

// call builds the argument list with PUSH, so operands run last to first.
func (c *Compiler) call(form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := object.ToSlice(form.Cdr)
	if !ok {
		return nil, syntaxError(form, "improper argument list in %s", object.Write(form))
	}
	apply := code.OpApply
	if ctx.tail {
		apply = code.OpApplyTail
	}
	out, err := c.compile(form.Car, frames, emit(cont, apply), asIs)
	if err != nil {
		return nil, err
	}
	for _, arg := range args {
		out, err = c.compile(arg, frames, emit(out, code.OpPush), asIs)
		if err != nil {
			return nil, err
		}
	}
	return emit(out, code.OpLoadLiteral, object.Unit), nil
}

// sequence compiles forms so that only the last value survives.
func (c *Compiler) sequence(forms, frames, cont object.Object, ctx context) (object.Object, error) {
	items, ok := object.ToSlice(forms)
	if !ok {
		return nil, syntaxError(forms, "improper sequence %s", object.Write(forms))
	}
	if len(items) == 0 {
		return emit(cont, code.OpLoadLiteral, object.Unspecified), nil
	}
	inner := context{program: ctx.program}
	out, err := c.compile(items[len(items)-1], frames, cont, ctx)
	if err != nil {
		return nil, err
	}
	for i := len(items) - 2; i >= 0; i-- {
		out, err = c.compile(items[i], frames, emit(out, code.OpPop), inner)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// definitionTarget reports the name and value expression of a form that
// is a definition in frames.
func (c *Compiler) definitionTarget(form object.Object, frames object.Object) (*object.Symbol, object.Object, bool, error) {
	p, ok := form.(*object.Pair)
	if !ok {
		return nil, nil, false, nil
	}
	operator := p.Car
	if sym, ok := operator.(*object.Symbol); ok {
		if _, local := Resolve(sym, frames); local {
			return nil, nil, false, nil
		}
		value, bound := c.globals.Get(sym)
		if !bound {
			return nil, nil, false, nil
		}
		operator = value
	}
	switch operator {
	case c.syntax["define"]:
		name, value, err := c.definitionParts(p)
		return name, value, true, err
	case c.syntax["define-syntax"]:
		name, value, err := c.syntaxDefinitionParts(p)
		return name, value, true, err
	}
	return nil, nil, false, nil
}

// body compiles a lambda or environment body. A leading run of internal
// definitions becomes a lambda over those names whose body assigns them in
// order and then runs the rest.
func (c *Compiler) body(form object.Object, forms, frames, cont object.Object) (object.Object, error) {
	items, ok := object.ToSlice(forms)
	if !ok {
		return nil, syntaxError(form, "improper body in %s", object.Write(form))
	}
	if len(items) == 0 {
		return nil, syntaxError(form, "empty body in %s", object.Write(form))
	}

	var names, inits []object.Object
	i := 0
	for ; i < len(items); i++ {
		name, value, isDef, err := c.definitionTarget(items[i], frames)
		if err != nil {
			return nil, err
		}
		if !isDef {
			break
		}
		names = append(names, name)
		inits = append(inits, value)
	}
	if len(names) == 0 {
		return c.sequence(forms, frames, cont, tail)
	}
	if i == len(items) {
		return nil, syntaxError(form, "body has definitions but no expression")
	}

	var inner []object.Object
	for k, name := range names {
		inner = append(inner, object.List(c.syntax["set!"], name, inits[k]))
	}
	inner = append(inner, items[i:]...)
	fillers := make([]object.Object, len(names))
	for k := range fillers {
		fillers[k] = object.Unspecified
	}
	lambda := object.ListStar(c.syntax["lambda"], object.List(names...), object.List(inner...))
	rewritten := object.Cons(lambda, object.List(fillers...))
	c.log.Debugf("internal definitions rewritten into %s", object.Write(rewritten))
	return c.compile(rewritten, frames, cont, tail)
}
