package evaluator

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"secd/internal/diag"
	"secd/internal/object"
	"secd/internal/parser"
	"secd/internal/runtimeio"
)

func (ev *Evaluator) defineBuiltins() {
	for _, b := range []*object.Builtin{
		{Name: "eval", Fn: ev.builtinEval},
		{Name: "load", Fn: ev.builtinLoad},
		{Name: "read", Fn: ev.builtinRead},
		{Name: "read-line", Fn: ev.builtinReadLine},
		{Name: "macroexpand-1", Fn: ev.builtinMacroexpand1},
		{Name: "interaction-environment", Fn: ev.builtinInteractionEnvironment},
	} {
		ev.globals.Define(ev.symbols.Intern(b.Name), b)
	}
}

func args(name string, list object.Object, min, max int) ([]object.Object, error) {
	items, ok := object.ToSlice(list)
	if !ok {
		return nil, diag.Evaluation.New("%s: improper argument list", name)
	}
	if len(items) < min || (max >= 0 && len(items) > max) {
		return nil, diag.Evaluation.New("%s: wrong number of arguments (%d)", name, len(items))
	}
	return items, nil
}

// (eval expr [environment]) runs expr as a top-level form of this instance.
func (ev *Evaluator) builtinEval(list object.Object) (object.Object, error) {
	items, err := args("eval", list, 1, 2)
	if err != nil {
		return nil, err
	}
	if len(items) == 2 {
		if env, ok := items[1].(*object.Environment); !ok || env != ev.globals {
			return nil, diag.Evaluation.New("eval: unsupported environment %s", object.Write(items[1]))
		}
	}
	return ev.Eval(items[0])
}

func (ev *Evaluator) builtinLoad(list object.Object) (object.Object, error) {
	items, err := args("load", list, 1, 1)
	if err != nil {
		return nil, err
	}
	s, ok := items[0].(*object.String)
	if !ok {
		return nil, diag.Evaluation.New("load: expected a file name, got %s", object.Write(items[0]))
	}
	path := s.Value
	if !filepath.IsAbs(path) && ev.file != "" {
		path = filepath.Join(filepath.Dir(ev.file), path)
	}
	if _, err := ev.LoadFile(path); err != nil {
		return nil, err
	}
	return &object.String{Value: path}, nil
}

// builtinRead returns the next datum from the input, reading further lines
// while the datum is incomplete.
func (ev *Evaluator) builtinRead(list object.Object) (object.Object, error) {
	if _, err := args("read", list, 0, 0); err != nil {
		return nil, err
	}
	if len(ev.pending) > 0 {
		next := ev.pending[0]
		ev.pending = ev.pending[1:]
		return next, nil
	}
	var buf strings.Builder
	for {
		line, err := ev.input.ReadLine()
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(buf.String()) == "" {
				return object.EOF, nil
			}
			return nil, diag.Read.New("read: unexpected end of input")
		}
		if errors.Is(err, runtimeio.ErrInputUnavailable) {
			return nil, diag.Evaluation.New("read: %s", err.Error())
		}
		if err != nil {
			return nil, err
		}
		buf.WriteString(line)
		buf.WriteByte('\n')

		data, err := parser.ReadString(buf.String(), ev.symbols)
		if diag.IsIncomplete(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		ev.pending = append(ev.pending, data[1:]...)
		return data[0], nil
	}
}

func (ev *Evaluator) builtinReadLine(list object.Object) (object.Object, error) {
	if _, err := args("read-line", list, 0, 0); err != nil {
		return nil, err
	}
	line, err := ev.input.ReadLine()
	if errors.Is(err, io.EOF) {
		return object.EOF, nil
	}
	if err != nil {
		return nil, diag.Evaluation.New("read-line: %s", err.Error())
	}
	return &object.String{Value: line}, nil
}

// builtinMacroexpand1 expands form once when its operator names a macro
// and returns it unchanged otherwise.
func (ev *Evaluator) builtinMacroexpand1(list object.Object) (object.Object, error) {
	items, err := args("macroexpand-1", list, 1, 1)
	if err != nil {
		return nil, err
	}
	form, ok := items[0].(*object.Pair)
	if !ok {
		return items[0], nil
	}
	operator := form.Car
	if sym, ok := operator.(*object.Symbol); ok {
		if value, bound := ev.globals.Get(sym); bound {
			operator = value
		}
	}
	t, ok := operator.(object.Transformer)
	if !ok {
		return form, nil
	}
	return ev.machine.Expand(t, form)
}

func (ev *Evaluator) builtinInteractionEnvironment(list object.Object) (object.Object, error) {
	if _, err := args("interaction-environment", list, 0, 0); err != nil {
		return nil, err
	}
	return ev.globals, nil
}
