package compiler

import (
	"github.com/joomcode/errorx"

	"secd/internal/code"
	"secd/internal/diag"
	"secd/internal/object"
)

var forms map[string]formHandler

func init() {
	forms = map[string]formHandler{
		"quote":                          compileQuote,
		"if":                             compileIf,
		"define":                         compileDefine,
		"begin":                          compileBegin,
		"lambda":                         compileLambda,
		"set!":                           compileSet,
		"call/cc":                        compileCallCC,
		"call-with-current-continuation": compileCallCC,
		"environment":                    compileEnvironment,
		"define-syntax":                  compileDefineSyntax,
		"quasiquote":                     compileQuasiquote,
		"import":                         compileImport,
	}
}

// SpecialForms lists the names bound by DefineSyntax.
func SpecialForms() []string {
	out := make([]string, 0, len(forms))
	for name := range forms {
		out = append(out, name)
	}
	return out
}

func operands(form *object.Pair, min, max int) ([]object.Object, bool) {
	args, ok := object.ToSlice(form.Cdr)
	if !ok || len(args) < min || (max >= 0 && len(args) > max) {
		return nil, false
	}
	return args, true
}

func compileQuote(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 1, 1)
	if !ok {
		return nil, syntaxError(form, "quote: expected (quote datum), got %s", object.Write(form))
	}
	return emit(cont, code.OpLoadLiteral, args[0]), nil
}

func compileIf(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 2, 3)
	if !ok {
		return nil, syntaxError(form, "if: expected (if test consequent [alternate]), got %s", object.Write(form))
	}

	branch := func(expr object.Object, end code.Opcode, bctx context) (object.Object, error) {
		tailCode := object.List(object.Inst(end))
		if expr == nil {
			return emit(tailCode, code.OpLoadLiteral, object.Unspecified), nil
		}
		return c.compile(expr, frames, tailCode, bctx)
	}
	var alternate object.Object
	if len(args) == 3 {
		alternate = args[2]
	}

	if ctx.tail {
		then, err := branch(args[1], code.OpReturn, tail)
		if err != nil {
			return nil, err
		}
		otherwise, err := branch(alternate, code.OpReturn, tail)
		if err != nil {
			return nil, err
		}
		return c.compile(args[0], frames, emit(cont, code.OpSelectTail, then, otherwise), asIs)
	}

	then, err := branch(args[1], code.OpJoin, asIs)
	if err != nil {
		return nil, err
	}
	otherwise, err := branch(alternate, code.OpJoin, asIs)
	if err != nil {
		return nil, err
	}
	return c.compile(args[0], frames, emit(cont, code.OpSelect, then, otherwise), asIs)
}

// definitionParts normalizes (define name [expr]) and the procedure
// shorthand (define (name . formals) body...), including curried heads.
func (c *Compiler) definitionParts(form *object.Pair) (*object.Symbol, object.Object, error) {
	args, ok := operands(form, 1, -1)
	if !ok {
		return nil, nil, syntaxError(form, "define: expected (define name expr), got %s", object.Write(form))
	}
	target := args[0]
	var value object.Object = object.Unspecified
	if len(args) > 1 {
		value = args[1]
	}
	if p, ok := target.(*object.Pair); ok {
		body := object.List(args[1:]...)
		for {
			value = object.ListStar(c.syntax["lambda"], p.Cdr, body)
			if inner, ok := p.Car.(*object.Pair); ok {
				body = object.List(value)
				p = inner
				continue
			}
			target = p.Car
			break
		}
	} else if len(args) > 2 {
		return nil, nil, syntaxError(form, "define: too many operands in %s", object.Write(form))
	}
	name, ok := target.(*object.Symbol)
	if !ok {
		return nil, nil, syntaxError(form, "define: cannot bind %s", object.Write(target))
	}
	return name, value, nil
}

func compileDefine(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	if !ctx.program {
		return nil, syntaxError(form, "definition cannot appear in this context: %s", object.Write(form))
	}
	name, value, err := c.definitionParts(form)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("%s ; is <variable>", name.Inspect())
	return c.compile(value, frames, emit(cont, code.OpDefine, name), asIs)
}

func compileBegin(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	return c.sequence(form.Cdr, frames, cont, ctx)
}

func compileLambda(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 2, -1)
	if !ok {
		return nil, syntaxError(form, "lambda: expected (lambda formals body...), got %s", object.Write(form))
	}
	formals := args[0]
	if err := checkFormals(form, formals); err != nil {
		return nil, err
	}
	body, err := c.body(form, object.Cddr(form), object.Cons(formals, frames), object.List(object.Inst(code.OpReturn)))
	if err != nil {
		return nil, err
	}
	return emit(cont, code.OpMakeClosure, body), nil
}

func compileSet(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 1, 2)
	if !ok {
		return nil, syntaxError(form, "set!: missing target in %s", object.Write(form))
	}
	name, ok := args[0].(*object.Symbol)
	if !ok {
		return nil, syntaxError(form, "set!: target must be a symbol, got %s", object.Write(args[0]))
	}
	var value object.Object = object.Unspecified
	if len(args) == 2 {
		value = args[1]
	}
	var next object.Object
	if coord, ok := Resolve(name, frames); ok {
		op := code.OpSetLocal
		if coord.Variadic {
			op = code.OpSetLocalVariadic
		}
		next = emit(cont, op, coord)
	} else {
		next = emit(cont, code.OpSetGlobal, name)
	}
	return c.compile(value, frames, next, asIs)
}

// compileCallCC captures cont as the continuation and applies the operand
// to it.
func compileCallCC(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 1, 1)
	if !ok {
		return nil, syntaxError(form, "call/cc: expected one procedure, got %s", object.Write(form))
	}
	apply := code.OpApply
	if ctx.tail {
		apply = code.OpApplyTail
	}
	receiver, err := c.compile(args[0], frames, emit(cont, apply), asIs)
	if err != nil {
		return nil, err
	}
	return object.ListStar(object.Inst(code.OpMakeContinuation), cont, receiver), nil
}

// compileEnvironment builds a transformer. At expansion time its single
// frame holds the list (form).
func compileEnvironment(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 2, -1)
	if !ok {
		return nil, syntaxError(form, "environment: expected (environment formals body...), got %s", object.Write(form))
	}
	formals := args[0]
	if err := checkFormals(form, formals); err != nil {
		return nil, err
	}
	body, err := c.body(form, object.Cddr(form), object.Cons(formals, frames), object.List(object.Inst(code.OpReturn)))
	if err != nil {
		return nil, err
	}
	return emit(cont, code.OpMakeEnvironment, body), nil
}

// syntaxDefinitionParts normalizes (define-syntax (name . formals) body...)
// into a name and an environment form, and (define-syntax name expr) as is.
func (c *Compiler) syntaxDefinitionParts(form *object.Pair) (*object.Symbol, object.Object, error) {
	args, ok := operands(form, 2, -1)
	if !ok {
		return nil, nil, syntaxError(form, "define-syntax: expected (define-syntax (name form) body...), got %s", object.Write(form))
	}
	switch head := args[0].(type) {
	case *object.Symbol:
		if len(args) != 2 {
			return nil, nil, syntaxError(form, "define-syntax: too many operands in %s", object.Write(form))
		}
		return head, args[1], nil
	case *object.Pair:
		name, ok := head.Car.(*object.Symbol)
		if !ok {
			return nil, nil, syntaxError(form, "define-syntax: cannot bind %s", object.Write(head.Car))
		}
		return name, object.ListStar(c.syntax["environment"], head.Cdr, object.List(args[1:]...)), nil
	default:
		return nil, nil, syntaxError(form, "define-syntax: cannot bind %s", object.Write(args[0]))
	}
}

func compileDefineSyntax(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	name, value, err := c.syntaxDefinitionParts(form)
	if err != nil {
		return nil, err
	}
	return c.compile(object.List(c.syntax["define"], name, value), frames, cont, ctx)
}

// compileImport loads a library at compile time and defines each exported
// binding under a name interned in this instance.
func compileImport(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	if !ctx.program {
		return nil, syntaxError(form, "import cannot appear in this context")
	}
	args, ok := operands(form, 1, 1)
	if !ok {
		return nil, syntaxError(form, "import: expected (import \"library\"), got %s", object.Write(form))
	}
	var spec string
	switch v := args[0].(type) {
	case *object.String:
		spec = v.Value
	case *object.Symbol:
		spec = v.Name
	default:
		return nil, syntaxError(form, "import: library must be a string or symbol, got %s", object.Write(args[0]))
	}
	if c.importer == nil {
		return nil, diag.Import.New("import is not available here").WithProperty(diag.PropertyForm, form)
	}
	bindings, err := c.importer.Import(spec)
	if err != nil {
		if errorx.IsOfType(err, diag.Import) {
			return nil, err
		}
		return nil, diag.Import.Wrap(err, "import %q", spec).WithProperty(diag.PropertyForm, form)
	}

	out := emit(cont, code.OpLoadLiteral, &object.String{Value: spec})
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if b.Name.Fresh() {
			continue
		}
		name := c.symbols.Intern(b.Name.Name)
		out = emit(emit(out, code.OpPop), code.OpDefine, name)
		out = emit(out, code.OpLoadLiteral, b.Value)
	}
	c.log.Debugf("import %q ; %d bindings", spec, len(bindings))
	return out, nil
}
