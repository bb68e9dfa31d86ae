package compiler

import (
	"secd/internal/diag"
	"secd/internal/object"
)

type SymbolScope string

const (
	GlobalScope   SymbolScope = "GLOBAL"
	LocalScope    SymbolScope = "LOCAL"
	VariadicScope SymbolScope = "VARIADIC"
)

// Resolve finds sym in the compile-time frames, innermost first. Each frame
// is the formals of one lambda. A rest parameter resolves to a variadic
// coordinate whose offset is the number of fixed parameters before it.
func Resolve(sym *object.Symbol, frames object.Object) (*object.Coordinate, bool) {
	depth := 0
	for frames != object.Unit {
		frame, ok := frames.(*object.Pair)
		if !ok {
			break
		}
		formals := frame.Car
		offset := 0
	scan:
		for {
			switch f := formals.(type) {
			case *object.Symbol:
				if f == sym {
					return &object.Coordinate{Depth: depth, Offset: offset, Variadic: true}, true
				}
				break scan
			case *object.Pair:
				if f.Car == sym {
					return &object.Coordinate{Depth: depth, Offset: offset}, true
				}
				formals = f.Cdr
				offset++
			default:
				break scan
			}
		}
		frames = frame.Cdr
		depth++
	}
	return nil, false
}

func Scope(sym *object.Symbol, frames object.Object) SymbolScope {
	coord, ok := Resolve(sym, frames)
	switch {
	case !ok:
		return GlobalScope
	case coord.Variadic:
		return VariadicScope
	default:
		return LocalScope
	}
}

// checkFormals accepts a symbol, or a proper or dotted list of distinct
// symbols.
func checkFormals(form, formals object.Object) error {
	seen := map[*object.Symbol]bool{}
	for {
		switch f := formals.(type) {
		case *object.Null:
			return nil
		case *object.Symbol:
			if seen[f] {
				return syntaxError(form, "duplicate parameter %s", f.Inspect())
			}
			return nil
		case *object.Pair:
			sym, ok := f.Car.(*object.Symbol)
			if !ok {
				return syntaxError(form, "parameter must be a symbol, got %s", object.Write(f.Car))
			}
			if seen[sym] {
				return syntaxError(form, "duplicate parameter %s", sym.Inspect())
			}
			seen[sym] = true
			formals = f.Cdr
		default:
			return syntaxError(form, "malformed parameter list %s", object.Write(formals))
		}
	}
}

func syntaxError(form object.Object, format string, args ...any) error {
	err := diag.Syntax.New(format, args...)
	if form != nil {
		return err.WithProperty(diag.PropertyForm, form)
	}
	return err
}
