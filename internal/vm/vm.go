package vm

import (
	"io"
	"os"

	"github.com/joomcode/errorx"
	"github.com/tliron/commonlog"

	"secd/internal/code"
	"secd/internal/diag"
	"secd/internal/limits"
	"secd/internal/object"
)

// Stats describes the work done since the last ResetStats.
type Stats struct {
	Steps      int64
	MaxDump    int
	Expansions int
	Renamed    int
}

// VM is an SECD machine. Its four registers are shared by every nested run
// (macro expansion, eval), which saves and restores them.
type VM struct {
	s object.Object
	e object.Object
	c object.Object
	d *object.Dump

	globals *object.Environment
	symbols *object.SymbolTable
	renames map[*object.Symbol]*object.Symbol
	out     io.Writer
	log     commonlog.Logger
	trace   bool

	steps  *limits.Steps
	budget *limits.Budget
	stats  Stats
}

func New(globals *object.Environment, symbols *object.SymbolTable) *VM {
	return &VM{
		s:       object.Unit,
		e:       object.Unit,
		c:       object.Unit,
		globals: globals,
		symbols: symbols,
		out:     os.Stdout,
		log:     commonlog.GetLogger("secd.vm"),
	}
}

func (m *VM) SetMaxSteps(n int64) {
	if n <= 0 {
		m.steps = nil
		return
	}
	m.steps = limits.NewSteps(n)
}

func (m *VM) SetMaxMemory(n int64) {
	if n <= 0 {
		m.budget = nil
		return
	}
	m.budget = limits.NewBudget(n)
}

func (m *VM) SetOutput(w io.Writer) { m.out = w }
func (m *VM) Output() io.Writer     { return m.out }

// SetTrace logs every executed instruction at debug level.
func (m *VM) SetTrace(on bool) { m.trace = on }

func (m *VM) Globals() *object.Environment { return m.globals }
func (m *VM) Symbols() *object.SymbolTable { return m.symbols }

func (m *VM) Stats() Stats { return m.stats }

// ResetStats clears the counters and refills the step and memory budgets.
func (m *VM) ResetStats() {
	m.stats = Stats{}
	m.steps.Reset()
	m.budget.Reset()
}

type registers struct {
	s, e, c object.Object
	d       *object.Dump
	renames map[*object.Symbol]*object.Symbol
}

func (m *VM) save() registers {
	return registers{s: m.s, e: m.e, c: m.c, d: m.d, renames: m.renames}
}

func (m *VM) restore(r registers) {
	m.s, m.e, m.c, m.d, m.renames = r.s, r.e, r.c, r.d, r.renames
}

// Execute runs compiled code to STOP in an empty activation.
func (m *VM) Execute(program object.Object) (object.Object, error) {
	saved := m.save()
	defer m.restore(saved)

	m.s, m.e, m.c, m.d = object.Unit, object.Unit, program, nil
	m.renames = map[*object.Symbol]*object.Symbol{}
	return m.run()
}

// Expand applies a transformer to a whole form. The transformer body runs
// with the single frame (form) in front of its captured environment and
// returns into STOP.
func (m *VM) Expand(t object.Transformer, form object.Object) (object.Object, error) {
	saved := m.save()
	defer m.restore(saved)

	m.stats.Expansions++
	m.s = object.Unit
	m.e = object.Cons(object.List(form), t.Bindings())
	m.c = t.Body()
	m.d = (*object.Dump)(nil).Push(object.Unit, object.Unit, object.List(object.Inst(code.OpStop)))
	m.renames = map[*object.Symbol]*object.Symbol{}
	return m.run()
}

// Apply calls proc with an argument list and runs it to completion.
func (m *VM) Apply(proc, args object.Object) (object.Object, error) {
	program := object.List(
		object.Inst(code.OpLoadLiteral), args,
		object.Inst(code.OpLoadLiteral), proc,
		object.Inst(code.OpApply),
		object.Inst(code.OpStop),
	)
	saved := m.save()
	defer m.restore(saved)

	m.s, m.e, m.c, m.d = object.Unit, object.Unit, program, nil
	if m.renames == nil {
		m.renames = map[*object.Symbol]*object.Symbol{}
	}
	return m.run()
}

func (m *VM) push(v object.Object) {
	m.s = object.Cons(v, m.s)
}

func (m *VM) pushDump(s, e, c object.Object) error {
	if err := m.charge(object.CostDump()); err != nil {
		return err
	}
	m.d = m.d.Push(s, e, c)
	if m.d.Depth > m.stats.MaxDump {
		m.stats.MaxDump = m.d.Depth
	}
	return nil
}

// rename returns the placeholder for an unbound global read. Within one
// run the same symbol always maps to the same fresh symbol.
func (m *VM) rename(sym *object.Symbol) (object.Object, error) {
	if fresh, ok := m.renames[sym]; ok {
		return fresh, nil
	}
	if err := m.charge(object.CostSymbol(len(sym.Name))); err != nil {
		return nil, err
	}
	fresh := m.symbols.Fresh(sym.Name)
	if m.renames == nil {
		m.renames = map[*object.Symbol]*object.Symbol{}
	}
	m.renames[sym] = fresh
	m.stats.Renamed++
	m.log.Debugf("unbound %s read as %s", sym.Inspect(), fresh.Inspect())
	return fresh, nil
}

func evaluationError(form object.Object, format string, args ...any) error {
	err := diag.Evaluation.New(format, args...)
	if form != nil {
		return err.WithProperty(diag.PropertyForm, form)
	}
	return err
}

func (m *VM) operand() object.Object {
	return object.Cadr(m.c)
}

func (m *VM) coordinate() (*object.Coordinate, error) {
	coord, ok := m.operand().(*object.Coordinate)
	if !ok {
		return nil, evaluationError(m.operand(), "malformed code: expected a coordinate, got %s", object.Write(m.operand()))
	}
	return coord, nil
}

func (m *VM) symbolOperand() (*object.Symbol, error) {
	sym, ok := m.operand().(*object.Symbol)
	if !ok {
		return nil, evaluationError(m.operand(), "malformed code: expected a symbol, got %s", object.Write(m.operand()))
	}
	return sym, nil
}

// frame returns the cell of the environment chain whose car is the frame
// at depth.
func (m *VM) frame(coord *object.Coordinate) (*object.Pair, error) {
	env, ok := object.Tail(m.e, coord.Depth)
	cell, isPair := env.(*object.Pair)
	if !ok || !isPair {
		return nil, evaluationError(coord, "no frame at depth %d", coord.Depth)
	}
	return cell, nil
}

// slot returns the pair holding the value at coord.
func (m *VM) slot(coord *object.Coordinate, offset int) (*object.Pair, error) {
	cell, err := m.frame(coord)
	if err != nil {
		return nil, err
	}
	rest, ok := object.Tail(cell.Car, offset)
	p, isPair := rest.(*object.Pair)
	if !ok || !isPair {
		return nil, evaluationError(coord, "too few arguments: no value at %s", coord.Inspect())
	}
	return p, nil
}

func (m *VM) run() (object.Object, error) {
	for {
		m.stats.Steps++
		if err := m.steps.Tick(); err != nil {
			return nil, diag.FromLimit(err)
		}
		p, ok := m.c.(*object.Pair)
		if !ok {
			return nil, evaluationError(nil, "malformed code: control ended without STOP")
		}
		in, ok := p.Car.(*object.Instruction)
		if !ok {
			return nil, evaluationError(p.Car, "malformed code: %s is not an instruction", object.Write(p.Car))
		}
		if m.trace {
			m.log.Debugf("%-20s s=%s dump=%d", in.Op, object.Write(m.s), m.d.Len())
		}

		switch in.Op {
		case code.OpLoadLocal:
			coord, err := m.coordinate()
			if err != nil {
				return nil, err
			}
			slot, err := m.slot(coord, coord.Offset)
			if err != nil {
				return nil, err
			}
			m.push(slot.Car)
			m.c = object.Cddr(m.c)

		case code.OpLoadLocalVariadic:
			coord, err := m.coordinate()
			if err != nil {
				return nil, err
			}
			cell, err := m.frame(coord)
			if err != nil {
				return nil, err
			}
			rest, ok := object.Tail(cell.Car, coord.Offset)
			if !ok {
				return nil, evaluationError(coord, "too few arguments: no value at %s", coord.Inspect())
			}
			m.push(rest)
			m.c = object.Cddr(m.c)

		case code.OpLoadGlobal:
			sym, err := m.symbolOperand()
			if err != nil {
				return nil, err
			}
			if value, ok := m.globals.Get(sym); ok {
				m.push(value)
			} else {
				fresh, err := m.rename(sym)
				if err != nil {
					return nil, err
				}
				m.push(fresh)
			}
			m.c = object.Cddr(m.c)

		case code.OpLoadLiteral:
			m.push(m.operand())
			m.c = object.Cddr(m.c)

		case code.OpMakeClosure:
			if err := m.charge(object.CostClosure()); err != nil {
				return nil, err
			}
			m.push(&object.Closure{Code: m.operand(), Env: m.e})
			m.c = object.Cddr(m.c)

		case code.OpMakeContinuation:
			if err := m.charge(object.CostContinuation()); err != nil {
				return nil, err
			}
			k := &object.Continuation{S: m.s, E: m.e, C: m.operand(), D: m.d}
			m.push(object.List(k))
			m.c = object.Cddr(m.c)

		case code.OpMakeEnvironment:
			if err := m.charge(object.CostMacro(0)); err != nil {
				return nil, err
			}
			m.push(&object.Macro{Code: m.operand(), Env: m.e})
			m.c = object.Cddr(m.c)

		case code.OpSelect:
			test := object.Car(m.s)
			m.s = object.Cdr(m.s)
			branches := object.Cdr(m.c)
			rest, _ := object.Tail(m.c, 3)
			if err := m.pushDump(nil, nil, rest); err != nil {
				return nil, err
			}
			if object.IsTrue(test) {
				m.c = object.Car(branches)
			} else {
				m.c = object.Cadr(branches)
			}

		case code.OpSelectTail:
			test := object.Car(m.s)
			m.s = object.Cdr(m.s)
			branches := object.Cdr(m.c)
			if object.IsTrue(test) {
				m.c = object.Car(branches)
			} else {
				m.c = object.Cadr(branches)
			}

		case code.OpJoin:
			if m.d == nil {
				return nil, evaluationError(nil, "malformed code: JOIN with an empty dump")
			}
			m.c = m.d.C
			m.d = m.d.Next

		case code.OpDefine:
			sym, err := m.symbolOperand()
			if err != nil {
				return nil, err
			}
			value := object.Car(m.s)
			if mac, ok := value.(*object.Macro); ok && mac.Name == "" {
				mac.Name = sym.Name
			}
			m.globals.Define(sym, value)
			m.s = object.Cons(sym, object.Cdr(m.s))
			m.c = object.Cddr(m.c)

		case code.OpApply, code.OpApplyTail:
			if err := m.apply(in.Op == code.OpApplyTail); err != nil {
				return nil, err
			}

		case code.OpReturn:
			if m.d == nil {
				return nil, evaluationError(nil, "malformed code: RETURN with an empty dump")
			}
			value := object.Car(m.s)
			m.s = object.Cons(value, m.d.S)
			m.e = m.d.E
			m.c = m.d.C
			m.d = m.d.Next

		case code.OpPush:
			if err := m.charge(object.CostPair()); err != nil {
				return nil, err
			}
			x := object.Car(m.s)
			y := object.Cadr(m.s)
			m.s = object.Cons(object.Cons(x, y), object.Cddr(m.s))
			m.c = object.Cdr(m.c)

		case code.OpPop:
			m.s = object.Cdr(m.s)
			m.c = object.Cdr(m.c)

		case code.OpSetGlobal:
			sym, err := m.symbolOperand()
			if err != nil {
				return nil, err
			}
			if !m.globals.Assign(sym, object.Car(m.s)) {
				return nil, evaluationError(sym, "%s is unbound", sym.Inspect())
			}
			m.c = object.Cddr(m.c)

		case code.OpSetLocal:
			coord, err := m.coordinate()
			if err != nil {
				return nil, err
			}
			slot, err := m.slot(coord, coord.Offset)
			if err != nil {
				return nil, err
			}
			slot.Car = object.Car(m.s)
			m.c = object.Cddr(m.c)

		case code.OpSetLocalVariadic:
			coord, err := m.coordinate()
			if err != nil {
				return nil, err
			}
			if coord.Offset == 0 {
				cell, err := m.frame(coord)
				if err != nil {
					return nil, err
				}
				cell.Car = object.Car(m.s)
			} else {
				slot, err := m.slot(coord, coord.Offset-1)
				if err != nil {
					return nil, err
				}
				slot.Cdr = object.Car(m.s)
			}
			m.c = object.Cddr(m.c)

		case code.OpStop:
			m.c = object.Cdr(m.c)
			if m.s == object.Unit {
				return object.Unspecified, nil
			}
			return object.Car(m.s), nil

		default:
			return nil, evaluationError(in, "unknown instruction %s", in.Op)
		}
	}
}

// apply handles APPLY and APPLY_TAIL. The callee is on top of s with its
// argument list beneath it.
func (m *VM) apply(tailCall bool) error {
	callee := object.Car(m.s)
	args := object.Cadr(m.s)
	rest := object.Cddr(m.s)

	switch fn := callee.(type) {
	case *object.Null:
		return evaluationError(callee, "unit is not applicable")

	case *object.Closure:
		if err := m.charge(object.CostPair()); err != nil {
			return err
		}
		if !tailCall {
			if err := m.pushDump(rest, m.e, object.Cdr(m.c)); err != nil {
				return err
			}
		}
		m.c = fn.Code
		m.e = object.Cons(args, fn.Env)
		m.s = object.Unit

	case *object.Builtin:
		if fn.Name == applyName {
			proc, list, err := spreadApply(args)
			if err != nil {
				return m.nativeError(fn, args, err)
			}
			m.s = object.Cons(proc, object.Cons(list, rest))
			return m.apply(tailCall)
		}
		result, err := fn.Fn(args)
		if err != nil {
			return m.nativeError(fn, args, err)
		}
		m.s = object.Cons(result, rest)
		m.c = object.Cdr(m.c)

	case object.Transformer:
		expanded, err := m.Expand(fn, object.Cons(fn, args))
		if err != nil {
			return err
		}
		m.s = object.Cons(expanded, rest)
		m.c = object.Cdr(m.c)

	case *object.Continuation:
		var value object.Object = object.Unspecified
		if p, ok := args.(*object.Pair); ok {
			value = p.Car
		}
		m.s = object.Cons(value, fn.S)
		m.e = fn.E
		m.c = fn.C
		m.d = fn.D

	case *object.Syntax:
		return evaluationError(callee, "special form %s cannot be applied as a procedure", fn.Name)

	default:
		return evaluationError(callee, "%s is not applicable", object.Write(callee))
	}
	return nil
}

func (m *VM) nativeError(fn *object.Builtin, args object.Object, err error) error {
	if _, ok := err.(*ExitError); ok {
		return err
	}
	if e := errorx.Cast(err); e != nil {
		if _, ok := e.Property(diag.PropertyForm); ok {
			return err
		}
		return e.WithProperty(diag.PropertyForm, object.Cons(fn, args))
	}
	return diag.Evaluation.Wrap(err, "%s", fn.Name).WithProperty(diag.PropertyForm, object.Cons(fn, args))
}
