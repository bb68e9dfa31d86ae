package code

type Opcode byte

const (
	OpApply             Opcode = iota // apply callee on top of s to the argument list below it
	OpApplyTail                       // same, reusing the current activation
	OpDefine                          // operand: symbol
	OpJoin                            // resume control saved by OpSelect
	OpLoadGlobal                      // operand: symbol
	OpLoadLiteral                     // operand: datum
	OpLoadLocal                       // operand: coordinate
	OpLoadLocalVariadic               // operand: coordinate
	OpMakeClosure                     // operand: body code
	OpMakeContinuation                // operand: code to run after the continuation is resumed
	OpMakeEnvironment                 // operand: transformer body code
	OpPop
	OpPush // cons the top two stack values
	OpReturn
	OpSelect     // operands: consequent code, alternate code
	OpSelectTail // operands: consequent code, alternate code
	OpSetGlobal  // operand: symbol
	OpSetLocal   // operand: coordinate
	OpSetLocalVariadic
	OpStop
)

type OperandKind int

const (
	OperandDatum OperandKind = iota
	OperandSymbol
	OperandCoordinate
	OperandCode
)

func (k OperandKind) String() string {
	switch k {
	case OperandSymbol:
		return "symbol"
	case OperandCoordinate:
		return "coordinate"
	case OperandCode:
		return "code"
	default:
		return "datum"
	}
}

type Definition struct {
	Name     string
	Operands []OperandKind
}

var definitions = map[Opcode]*Definition{
	OpApply:             {"APPLY", nil},
	OpApplyTail:         {"APPLY_TAIL", nil},
	OpDefine:            {"DEFINE", []OperandKind{OperandSymbol}},
	OpJoin:              {"JOIN", nil},
	OpLoadGlobal:        {"LOAD_GLOBAL", []OperandKind{OperandSymbol}},
	OpLoadLiteral:       {"LOAD_LITERAL", []OperandKind{OperandDatum}},
	OpLoadLocal:         {"LOAD_LOCAL", []OperandKind{OperandCoordinate}},
	OpLoadLocalVariadic: {"LOAD_LOCAL_VARIADIC", []OperandKind{OperandCoordinate}},
	OpMakeClosure:       {"MAKE_CLOSURE", []OperandKind{OperandCode}},
	OpMakeContinuation:  {"MAKE_CONTINUATION", []OperandKind{OperandCode}},
	OpMakeEnvironment:   {"MAKE_ENVIRONMENT", []OperandKind{OperandCode}},
	OpPop:               {"POP", nil},
	OpPush:              {"PUSH", nil},
	OpReturn:            {"RETURN", nil},
	OpSelect:            {"SELECT", []OperandKind{OperandCode, OperandCode}},
	OpSelectTail:        {"SELECT_TAIL", []OperandKind{OperandCode, OperandCode}},
	OpSetGlobal:         {"SET_GLOBAL", []OperandKind{OperandSymbol}},
	OpSetLocal:          {"SET_LOCAL", []OperandKind{OperandCoordinate}},
	OpSetLocalVariadic:  {"SET_LOCAL_VARIADIC", []OperandKind{OperandCoordinate}},
	OpStop:              {"STOP", nil},
}

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return "UNKNOWN_OPCODE"
}

// Width is the number of list cells an instruction occupies, opcode included.
func Width(op Opcode) int {
	def, ok := definitions[op]
	if !ok {
		return 1
	}
	return 1 + len(def.Operands)
}
