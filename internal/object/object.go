package object

import (
	"github.com/nukata/goarith"

	"secd/internal/code"
)

type Type string

const (
	NIL_OBJ          Type = "NIL"
	BOOLEAN_OBJ      Type = "BOOLEAN"
	UNSPECIFIED_OBJ  Type = "UNSPECIFIED"
	EOF_OBJ          Type = "EOF"
	SYMBOL_OBJ       Type = "SYMBOL"
	PAIR_OBJ         Type = "PAIR"
	NUMBER_OBJ       Type = "NUMBER"
	STRING_OBJ       Type = "STRING"
	CHARACTER_OBJ    Type = "CHARACTER"
	BUILTIN_OBJ      Type = "BUILTIN"
	SYNTAX_OBJ       Type = "SYNTAX"
	CLOSURE_OBJ      Type = "CLOSURE"
	CONTINUATION_OBJ Type = "CONTINUATION"
	MACRO_OBJ        Type = "MACRO"
	ENVIRONMENT_OBJ  Type = "ENVIRONMENT"
	INSTRUCTION_OBJ  Type = "INSTRUCTION"
	COORDINATE_OBJ   Type = "COORDINATE"
)

type Object interface {
	Type() Type
	Inspect() string
}

// Null is the empty list. It terminates proper lists and is distinct from False.
type Null struct{}

func (*Null) Type() Type      { return NIL_OBJ }
func (*Null) Inspect() string { return "()" }

var Unit = &Null{}

type Boolean struct{ Value bool }

func (*Boolean) Type() Type { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "#t"
	}
	return "#f"
}

var (
	True  = &Boolean{Value: true}
	False = &Boolean{Value: false}
)

func NativeBool(v bool) *Boolean {
	if v {
		return True
	}
	return False
}

type unspecified struct{}

func (*unspecified) Type() Type      { return UNSPECIFIED_OBJ }
func (*unspecified) Inspect() string { return "#<unspecified>" }

var Unspecified Object = &unspecified{}

type eof struct{}

func (*eof) Type() Type      { return EOF_OBJ }
func (*eof) Inspect() string { return "#<eof>" }

var EOF Object = &eof{}

// Symbol compares by identity. Interned symbols have an empty Tag; symbols
// made by SymbolTable.Fresh carry a unique Tag and are never interned.
type Symbol struct {
	Name string
	Tag  string
}

func (*Symbol) Type() Type { return SYMBOL_OBJ }
func (s *Symbol) Inspect() string {
	if s.Tag == "" {
		return s.Name
	}
	return "#:" + s.Name + "." + s.Tag
}

func (s *Symbol) Fresh() bool { return s.Tag != "" }

type Pair struct {
	Car Object
	Cdr Object
}

func (*Pair) Type() Type        { return PAIR_OBJ }
func (p *Pair) Inspect() string { return Write(p) }

type Number struct{ Value goarith.Number }

func (*Number) Type() Type        { return NUMBER_OBJ }
func (n *Number) Inspect() string { return n.Value.String() }

type String struct{ Value string }

func (*String) Type() Type        { return STRING_OBJ }
func (s *String) Inspect() string { return Write(s) }

type Char struct{ Value rune }

func (*Char) Type() Type        { return CHARACTER_OBJ }
func (c *Char) Inspect() string { return Write(c) }

// BuiltinFunction receives the evaluated operands as a proper list.
type BuiltinFunction func(args Object) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (*Builtin) Type() Type        { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "#<builtin " + b.Name + ">" }

// Syntax marks a global binding as a special form handled by the compiler.
type Syntax struct{ Name string }

func (*Syntax) Type() Type        { return SYNTAX_OBJ }
func (s *Syntax) Inspect() string { return "#<syntax " + s.Name + ">" }

type Closure struct {
	Code Object
	Env  Object
}

func (*Closure) Type() Type      { return CLOSURE_OBJ }
func (*Closure) Inspect() string { return "#<closure>" }

// Dump is a persistent stack of saved registers. Snapshots share tails, so a
// continuation can hold one without copying.
type Dump struct {
	S     Object
	E     Object
	C     Object
	Next  *Dump
	Depth int
}

func (d *Dump) Push(s, e, c Object) *Dump {
	depth := 1
	if d != nil {
		depth = d.Depth + 1
	}
	return &Dump{S: s, E: e, C: c, Next: d, Depth: depth}
}

func (d *Dump) Len() int {
	if d == nil {
		return 0
	}
	return d.Depth
}

type Continuation struct {
	S Object
	E Object
	C Object
	D *Dump
}

func (*Continuation) Type() Type      { return CONTINUATION_OBJ }
func (*Continuation) Inspect() string { return "#<continuation>" }

// Transformer is anything that can be applied to a whole form at compile
// time: an environment of bindings plus the code that rewrites the form.
type Transformer interface {
	Object
	Bindings() Object
	Body() Object
}

type Macro struct {
	Name string
	Code Object
	Env  Object
}

func (*Macro) Type() Type { return MACRO_OBJ }
func (m *Macro) Inspect() string {
	if m.Name == "" {
		return "#<macro>"
	}
	return "#<macro " + m.Name + ">"
}

func (m *Macro) Bindings() Object { return m.Env }
func (m *Macro) Body() Object     { return m.Code }

type Instruction struct{ Op code.Opcode }

func (*Instruction) Type() Type        { return INSTRUCTION_OBJ }
func (i *Instruction) Inspect() string { return i.Op.String() }

var instructions = func() map[code.Opcode]*Instruction {
	out := map[code.Opcode]*Instruction{}
	for op := code.OpApply; op <= code.OpStop; op++ {
		out[op] = &Instruction{Op: op}
	}
	return out
}()

// Inst returns the shared instruction object for op.
func Inst(op code.Opcode) *Instruction {
	if in, ok := instructions[op]; ok {
		return in
	}
	return &Instruction{Op: op}
}

// Coordinate is a lexical address: frame depth from the innermost frame and
// slot offset within it. A variadic coordinate addresses the rest list that
// starts at Offset.
type Coordinate struct {
	Depth    int
	Offset   int
	Variadic bool
}

func (*Coordinate) Type() Type { return COORDINATE_OBJ }
func (c *Coordinate) Inspect() string {
	if c.Variadic {
		return "(" + itoa(int64(c.Depth)) + " . " + itoa(int64(c.Offset)) + ")..."
	}
	return "(" + itoa(int64(c.Depth)) + " . " + itoa(int64(c.Offset)) + ")"
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [32]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
