package compiler

import (
	"secd/internal/diag"
	"secd/internal/object"
)

// quasiquoteNatives are private to the compiler so that rebinding cons,
// list or append globally does not change what a template builds.
func quasiquoteNatives() map[string]*object.Builtin {
	return map[string]*object.Builtin{
		"cons": {Name: "cons", Fn: func(args object.Object) (object.Object, error) {
			return object.Cons(object.Car(args), object.Cadr(args)), nil
		}},
		"list": {Name: "list", Fn: func(args object.Object) (object.Object, error) {
			return args, nil
		}},
		"append": {Name: "append", Fn: func(args object.Object) (object.Object, error) {
			items, _ := object.ToSlice(args)
			out, ok := object.Append(items...)
			if !ok {
				return nil, diag.Evaluation.New("unquote-splicing: not a list in %s", object.Write(args))
			}
			return out, nil
		}},
	}
}

func compileQuasiquote(c *Compiler, form *object.Pair, frames, cont object.Object, ctx context) (object.Object, error) {
	args, ok := operands(form, 1, 1)
	if !ok {
		return nil, syntaxError(form, "quasiquote: expected one template, got %s", object.Write(form))
	}
	expr, err := c.template(args[0], 1)
	if err != nil {
		return nil, err
	}
	return c.compile(expr, frames, cont, ctx)
}

func (c *Compiler) keyword(o object.Object, name string) bool {
	sym, ok := o.(*object.Symbol)
	return ok && !sym.Fresh() && sym.Name == name
}

// unary returns the single operand of (keyword x).
func (c *Compiler) unary(o object.Object, name string) (object.Object, bool) {
	p, ok := o.(*object.Pair)
	if !ok || !c.keyword(p.Car, name) {
		return nil, false
	}
	rest, ok := p.Cdr.(*object.Pair)
	if !ok || rest.Cdr != object.Unit {
		return nil, false
	}
	return rest.Car, true
}

func (c *Compiler) hasUnquote(o object.Object) bool {
	p, ok := o.(*object.Pair)
	if !ok {
		return false
	}
	if c.keyword(p.Car, "unquote") || c.keyword(p.Car, "unquote-splicing") {
		return true
	}
	return c.hasUnquote(p.Car) || c.hasUnquote(p.Cdr)
}

// template rewrites a quasiquote template into an expression that builds
// it. depth counts enclosing quasiquotes.
func (c *Compiler) template(o object.Object, depth int) (object.Object, error) {
	if !c.hasUnquote(o) {
		if _, ok := o.(*object.Pair); ok {
			return object.List(c.syntax["quote"], o), nil
		}
		if _, ok := o.(*object.Symbol); ok {
			return object.List(c.syntax["quote"], o), nil
		}
		if o == object.Unit {
			return object.List(c.syntax["quote"], o), nil
		}
		return o, nil
	}
	p := o.(*object.Pair)

	if x, ok := c.unary(o, "unquote"); ok {
		if depth == 1 {
			return x, nil
		}
		inner, err := c.template(x, depth-1)
		if err != nil {
			return nil, err
		}
		return object.List(c.natives["list"], object.List(c.syntax["quote"], p.Car), inner), nil
	}
	if x, ok := c.unary(o, "quasiquote"); ok {
		inner, err := c.template(x, depth+1)
		if err != nil {
			return nil, err
		}
		return object.List(c.natives["list"], object.List(c.syntax["quote"], p.Car), inner), nil
	}
	if x, ok := c.unary(o, "unquote-splicing"); ok && depth > 1 {
		inner, err := c.template(x, depth-1)
		if err != nil {
			return nil, err
		}
		return object.List(c.natives["list"], object.List(c.syntax["quote"], p.Car), inner), nil
	}
	if c.keyword(p.Car, "unquote-splicing") {
		return nil, syntaxError(o, "unquote-splicing outside of a list: %s", object.Write(o))
	}
	if c.keyword(p.Car, "unquote") {
		return nil, syntaxError(o, "unquote: expected one operand, got %s", object.Write(o))
	}

	if x, ok := c.unary(p.Car, "unquote-splicing"); ok && depth == 1 {
		rest, err := c.template(p.Cdr, depth)
		if err != nil {
			return nil, err
		}
		return object.List(c.natives["append"], x, rest), nil
	}
	head, err := c.template(p.Car, depth)
	if err != nil {
		return nil, err
	}
	rest, err := c.template(p.Cdr, depth)
	if err != nil {
		return nil, err
	}
	return object.List(c.natives["cons"], head, rest), nil
}
