package vm

import (
	"fmt"
	"math/big"
	"strings"

	"secd/internal/diag"
	"secd/internal/object"
)

const applyName = "apply"

// ExitError stops evaluation at the request of the program.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// DefineBuiltins binds the native procedures in the global environment.
func (m *VM) DefineBuiltins() {
	for _, b := range m.builtins() {
		m.globals.Define(m.symbols.Intern(b.Name), b)
	}
}

func (m *VM) builtins() []*object.Builtin {
	return []*object.Builtin{
		{Name: "car", Fn: builtinCar},
		{Name: "cdr", Fn: builtinCdr},
		{Name: "cons", Fn: builtinCons},
		{Name: "list", Fn: builtinList},
		{Name: "length", Fn: builtinLength},
		{Name: "append", Fn: builtinAppend},
		{Name: "reverse", Fn: builtinReverse},
		{Name: "list-tail", Fn: builtinListTail},
		{Name: "list-ref", Fn: builtinListRef},
		{Name: "memq", Fn: builtinMemq},
		{Name: "assq", Fn: builtinAssq},
		{Name: "null?", Fn: predicate("null?", func(o object.Object) bool { return o == object.Unit })},
		{Name: "pair?", Fn: predicate("pair?", isType(object.PAIR_OBJ))},
		{Name: "list?", Fn: predicate("list?", object.IsList)},
		{Name: "symbol?", Fn: predicate("symbol?", isType(object.SYMBOL_OBJ))},
		{Name: "number?", Fn: predicate("number?", isType(object.NUMBER_OBJ))},
		{Name: "string?", Fn: predicate("string?", isType(object.STRING_OBJ))},
		{Name: "char?", Fn: predicate("char?", isType(object.CHARACTER_OBJ))},
		{Name: "boolean?", Fn: predicate("boolean?", isType(object.BOOLEAN_OBJ))},
		{Name: "procedure?", Fn: predicate("procedure?", isProcedure)},
		{Name: "macro?", Fn: predicate("macro?", isMacro)},
		{Name: "not", Fn: predicate("not", func(o object.Object) bool { return !object.IsTrue(o) })},
		{Name: "eq?", Fn: relation("eq?", object.Eq)},
		{Name: "eqv?", Fn: relation("eqv?", object.Eqv)},
		{Name: "equal?", Fn: relation("equal?", object.Equal)},
		{Name: "+", Fn: builtinAdd},
		{Name: "-", Fn: builtinSub},
		{Name: "*", Fn: builtinMul},
		{Name: "/", Fn: builtinDiv},
		{Name: "quotient", Fn: builtinQuotient},
		{Name: "remainder", Fn: builtinRemainder},
		{Name: "=", Fn: comparison("=", func(c int) bool { return c == 0 })},
		{Name: "<", Fn: comparison("<", func(c int) bool { return c < 0 })},
		{Name: ">", Fn: comparison(">", func(c int) bool { return c > 0 })},
		{Name: "<=", Fn: comparison("<=", func(c int) bool { return c <= 0 })},
		{Name: ">=", Fn: comparison(">=", func(c int) bool { return c >= 0 })},
		{Name: "number->string", Fn: builtinNumberToString},
		{Name: "string->number", Fn: builtinStringToNumber},
		{Name: "symbol->string", Fn: builtinSymbolToString},
		{Name: "string->symbol", Fn: m.builtinStringToSymbol},
		{Name: "string-append", Fn: builtinStringAppend},
		{Name: "string-length", Fn: builtinStringLength},
		{Name: "display", Fn: m.builtinDisplay},
		{Name: "write", Fn: m.builtinWrite},
		{Name: "newline", Fn: m.builtinNewline},
		{Name: "error", Fn: builtinError},
		{Name: "gensym", Fn: m.builtinGensym},
		{Name: applyName, Fn: m.builtinApply},
		{Name: "exit", Fn: builtinExit},
	}
}

func argError(name, format string, args ...any) error {
	return diag.Evaluation.New(name+": "+format, args...)
}

// arguments checks the operand count. max < 0 means no upper bound.
func arguments(name string, args object.Object, min, max int) ([]object.Object, error) {
	items, ok := object.ToSlice(args)
	if !ok {
		return nil, argError(name, "improper argument list")
	}
	if len(items) < min || (max >= 0 && len(items) > max) {
		switch {
		case min == max:
			return nil, argError(name, "expected %d arguments, got %d", min, len(items))
		case max < 0:
			return nil, argError(name, "expected at least %d arguments, got %d", min, len(items))
		default:
			return nil, argError(name, "expected %d to %d arguments, got %d", min, max, len(items))
		}
	}
	return items, nil
}

func pairArg(name string, o object.Object) (*object.Pair, error) {
	p, ok := o.(*object.Pair)
	if !ok {
		return nil, argError(name, "expected a pair, got %s", object.Write(o))
	}
	return p, nil
}

func numberArg(name string, o object.Object) (*object.Number, error) {
	n, ok := o.(*object.Number)
	if !ok {
		return nil, argError(name, "expected a number, got %s", object.Write(o))
	}
	return n, nil
}

func intArg(name string, o object.Object) (int, error) {
	n, err := numberArg(name, o)
	if err != nil {
		return 0, err
	}
	i, ok := n.Int()
	if !ok || i < 0 {
		return 0, argError(name, "expected a non-negative exact integer, got %s", n.Inspect())
	}
	return i, nil
}

func stringArg(name string, o object.Object) (*object.String, error) {
	s, ok := o.(*object.String)
	if !ok {
		return nil, argError(name, "expected a string, got %s", object.Write(o))
	}
	return s, nil
}

func isType(t object.Type) func(object.Object) bool {
	return func(o object.Object) bool { return o.Type() == t }
}

func isProcedure(o object.Object) bool {
	switch o.(type) {
	case *object.Closure, *object.Builtin, *object.Continuation:
		return true
	}
	return false
}

func isMacro(o object.Object) bool {
	_, ok := o.(object.Transformer)
	return ok
}

func predicate(name string, test func(object.Object) bool) object.BuiltinFunction {
	return func(args object.Object) (object.Object, error) {
		items, err := arguments(name, args, 1, 1)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(test(items[0])), nil
	}
}

func relation(name string, test func(a, b object.Object) bool) object.BuiltinFunction {
	return func(args object.Object) (object.Object, error) {
		items, err := arguments(name, args, 2, 2)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(test(items[0], items[1])), nil
	}
}

func builtinCar(args object.Object) (object.Object, error) {
	items, err := arguments("car", args, 1, 1)
	if err != nil {
		return nil, err
	}
	p, err := pairArg("car", items[0])
	if err != nil {
		return nil, err
	}
	return p.Car, nil
}

func builtinCdr(args object.Object) (object.Object, error) {
	items, err := arguments("cdr", args, 1, 1)
	if err != nil {
		return nil, err
	}
	p, err := pairArg("cdr", items[0])
	if err != nil {
		return nil, err
	}
	return p.Cdr, nil
}

func builtinCons(args object.Object) (object.Object, error) {
	items, err := arguments("cons", args, 2, 2)
	if err != nil {
		return nil, err
	}
	return object.Cons(items[0], items[1]), nil
}

func builtinList(args object.Object) (object.Object, error) {
	return args, nil
}

func builtinLength(args object.Object) (object.Object, error) {
	items, err := arguments("length", args, 1, 1)
	if err != nil {
		return nil, err
	}
	if !object.IsList(items[0]) {
		return nil, argError("length", "expected a proper list, got %s", object.Write(items[0]))
	}
	return object.NewInt(int64(object.Length(items[0]))), nil
}

func builtinAppend(args object.Object) (object.Object, error) {
	items, err := arguments("append", args, 0, -1)
	if err != nil {
		return nil, err
	}
	out, ok := object.Append(items...)
	if !ok {
		return nil, argError("append", "expected proper lists, got %s", object.Write(args))
	}
	return out, nil
}

func builtinReverse(args object.Object) (object.Object, error) {
	items, err := arguments("reverse", args, 1, 1)
	if err != nil {
		return nil, err
	}
	out, ok := object.Reverse(items[0])
	if !ok {
		return nil, argError("reverse", "expected a proper list, got %s", object.Write(items[0]))
	}
	return out, nil
}

func builtinListTail(args object.Object) (object.Object, error) {
	items, err := arguments("list-tail", args, 2, 2)
	if err != nil {
		return nil, err
	}
	k, err := intArg("list-tail", items[1])
	if err != nil {
		return nil, err
	}
	out, ok := object.Tail(items[0], k)
	if !ok {
		return nil, argError("list-tail", "index %d out of range", k)
	}
	return out, nil
}

func builtinListRef(args object.Object) (object.Object, error) {
	items, err := arguments("list-ref", args, 2, 2)
	if err != nil {
		return nil, err
	}
	k, err := intArg("list-ref", items[1])
	if err != nil {
		return nil, err
	}
	rest, ok := object.Tail(items[0], k)
	p, isPair := rest.(*object.Pair)
	if !ok || !isPair {
		return nil, argError("list-ref", "index %d out of range", k)
	}
	return p.Car, nil
}

func builtinMemq(args object.Object) (object.Object, error) {
	items, err := arguments("memq", args, 2, 2)
	if err != nil {
		return nil, err
	}
	for l := items[1]; ; {
		p, ok := l.(*object.Pair)
		if !ok {
			return object.False, nil
		}
		if object.Eq(items[0], p.Car) {
			return p, nil
		}
		l = p.Cdr
	}
}

func builtinAssq(args object.Object) (object.Object, error) {
	items, err := arguments("assq", args, 2, 2)
	if err != nil {
		return nil, err
	}
	for l := items[1]; ; {
		p, ok := l.(*object.Pair)
		if !ok {
			return object.False, nil
		}
		if entry, ok := p.Car.(*object.Pair); ok && object.Eq(items[0], entry.Car) {
			return entry, nil
		}
		l = p.Cdr
	}
}

func numbers(name string, args object.Object, min int) ([]*object.Number, error) {
	items, err := arguments(name, args, min, -1)
	if err != nil {
		return nil, err
	}
	out := make([]*object.Number, len(items))
	for i, item := range items {
		n, err := numberArg(name, item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func isZero(n *object.Number) bool {
	return n.Value.Cmp(object.NewInt(0).Value) == 0
}

func isExact(n *object.Number) bool {
	_, ok := new(big.Int).SetString(n.Value.String(), 10)
	return ok
}

func builtinAdd(args object.Object) (object.Object, error) {
	ns, err := numbers("+", args, 0)
	if err != nil {
		return nil, err
	}
	acc := object.NewInt(0).Value
	for _, n := range ns {
		acc = acc.Add(n.Value)
	}
	return &object.Number{Value: acc}, nil
}

func builtinMul(args object.Object) (object.Object, error) {
	ns, err := numbers("*", args, 0)
	if err != nil {
		return nil, err
	}
	acc := object.NewInt(1).Value
	for _, n := range ns {
		acc = acc.Mul(n.Value)
	}
	return &object.Number{Value: acc}, nil
}

func builtinSub(args object.Object) (object.Object, error) {
	ns, err := numbers("-", args, 1)
	if err != nil {
		return nil, err
	}
	if len(ns) == 1 {
		return &object.Number{Value: object.NewInt(0).Value.Sub(ns[0].Value)}, nil
	}
	acc := ns[0].Value
	for _, n := range ns[1:] {
		acc = acc.Sub(n.Value)
	}
	return &object.Number{Value: acc}, nil
}

func builtinDiv(args object.Object) (object.Object, error) {
	ns, err := numbers("/", args, 1)
	if err != nil {
		return nil, err
	}
	if len(ns) == 1 {
		ns = append([]*object.Number{object.NewInt(1)}, ns...)
	}
	acc := ns[0].Value
	for _, n := range ns[1:] {
		if isZero(n) {
			return nil, argError("/", "division by zero")
		}
		acc = acc.RQuo(n.Value)
	}
	return &object.Number{Value: acc}, nil
}

func integerDivision(name string, args object.Object) (*object.Number, *object.Number, error) {
	ns, err := numbers(name, args, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(ns) != 2 {
		return nil, nil, argError(name, "expected 2 arguments, got %d", len(ns))
	}
	if !isExact(ns[0]) || !isExact(ns[1]) {
		return nil, nil, argError(name, "expected exact integers")
	}
	if isZero(ns[1]) {
		return nil, nil, argError(name, "division by zero")
	}
	q, r := ns[0].Value.QuoRem(ns[1].Value)
	return &object.Number{Value: q}, &object.Number{Value: r}, nil
}

func builtinQuotient(args object.Object) (object.Object, error) {
	q, _, err := integerDivision("quotient", args)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func builtinRemainder(args object.Object) (object.Object, error) {
	_, r, err := integerDivision("remainder", args)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func comparison(name string, holds func(int) bool) object.BuiltinFunction {
	return func(args object.Object) (object.Object, error) {
		ns, err := numbers(name, args, 1)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(ns); i++ {
			if !holds(ns[i-1].Value.Cmp(ns[i].Value)) {
				return object.False, nil
			}
		}
		return object.True, nil
	}
}

func builtinNumberToString(args object.Object) (object.Object, error) {
	items, err := arguments("number->string", args, 1, 1)
	if err != nil {
		return nil, err
	}
	n, err := numberArg("number->string", items[0])
	if err != nil {
		return nil, err
	}
	return &object.String{Value: n.Inspect()}, nil
}

func builtinStringToNumber(args object.Object) (object.Object, error) {
	items, err := arguments("string->number", args, 1, 1)
	if err != nil {
		return nil, err
	}
	s, err := stringArg("string->number", items[0])
	if err != nil {
		return nil, err
	}
	if n, ok := object.ParseNumber(s.Value); ok {
		return n, nil
	}
	return object.False, nil
}

func builtinSymbolToString(args object.Object) (object.Object, error) {
	items, err := arguments("symbol->string", args, 1, 1)
	if err != nil {
		return nil, err
	}
	sym, ok := items[0].(*object.Symbol)
	if !ok {
		return nil, argError("symbol->string", "expected a symbol, got %s", object.Write(items[0]))
	}
	return &object.String{Value: sym.Name}, nil
}

func (m *VM) builtinStringToSymbol(args object.Object) (object.Object, error) {
	items, err := arguments("string->symbol", args, 1, 1)
	if err != nil {
		return nil, err
	}
	s, err := stringArg("string->symbol", items[0])
	if err != nil {
		return nil, err
	}
	return m.symbols.Intern(s.Value), nil
}

func builtinStringAppend(args object.Object) (object.Object, error) {
	items, err := arguments("string-append", args, 0, -1)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, item := range items {
		s, err := stringArg("string-append", item)
		if err != nil {
			return nil, err
		}
		b.WriteString(s.Value)
	}
	return &object.String{Value: b.String()}, nil
}

func builtinStringLength(args object.Object) (object.Object, error) {
	items, err := arguments("string-length", args, 1, 1)
	if err != nil {
		return nil, err
	}
	s, err := stringArg("string-length", items[0])
	if err != nil {
		return nil, err
	}
	return object.NewInt(int64(len([]rune(s.Value)))), nil
}

func (m *VM) builtinDisplay(args object.Object) (object.Object, error) {
	items, err := arguments("display", args, 1, 1)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(m.out, object.Display(items[0]))
	return object.Unspecified, nil
}

func (m *VM) builtinWrite(args object.Object) (object.Object, error) {
	items, err := arguments("write", args, 1, 1)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(m.out, object.Write(items[0]))
	return object.Unspecified, nil
}

func (m *VM) builtinNewline(args object.Object) (object.Object, error) {
	if _, err := arguments("newline", args, 0, 0); err != nil {
		return nil, err
	}
	fmt.Fprintln(m.out)
	return object.Unspecified, nil
}

func builtinError(args object.Object) (object.Object, error) {
	items, err := arguments("error", args, 1, -1)
	if err != nil {
		return nil, err
	}
	parts := []string{object.Display(items[0])}
	for _, irritant := range items[1:] {
		parts = append(parts, object.Write(irritant))
	}
	return nil, diag.Evaluation.New("%s", strings.Join(parts, " ")).WithProperty(diag.PropertyForm, args)
}

func (m *VM) builtinGensym(args object.Object) (object.Object, error) {
	items, err := arguments("gensym", args, 0, 1)
	if err != nil {
		return nil, err
	}
	hint := "g"
	if len(items) == 1 {
		switch v := items[0].(type) {
		case *object.String:
			hint = v.Value
		case *object.Symbol:
			hint = v.Name
		default:
			return nil, argError("gensym", "expected a string or symbol, got %s", object.Write(v))
		}
	}
	return m.symbols.Fresh(hint), nil
}

// builtinApply serves host code that calls the builtin directly. The
// dispatch loop spreads apply's operands itself, see VM.apply.
func (m *VM) builtinApply(args object.Object) (object.Object, error) {
	proc, list, err := spreadApply(args)
	if err != nil {
		return nil, err
	}
	return m.Apply(proc, list)
}

// spreadApply splits apply's operands into the callee and its argument
// list: (apply f a b '(c d)) calls f with (a b c d).
func spreadApply(args object.Object) (object.Object, object.Object, error) {
	items, err := arguments(applyName, args, 1, -1)
	if err != nil {
		return nil, nil, err
	}
	spread := items[1:]
	var list object.Object = object.Unit
	if len(spread) > 0 {
		last := spread[len(spread)-1]
		if !object.IsList(last) {
			return nil, nil, argError(applyName, "last argument must be a list, got %s", object.Write(last))
		}
		list = object.ListStar(spread...)
	}
	return items[0], list, nil
}

func builtinExit(args object.Object) (object.Object, error) {
	items, err := arguments("exit", args, 0, 1)
	if err != nil {
		return nil, err
	}
	code := 0
	if len(items) == 1 {
		switch v := items[0].(type) {
		case *object.Number:
			if i, ok := v.Int(); ok {
				code = i
			}
		case *object.Boolean:
			if !v.Value {
				code = 1
			}
		}
	}
	return nil, &ExitError{Code: code}
}
