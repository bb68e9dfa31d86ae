package compiler

import (
	"fmt"
	"strings"

	"secd/internal/code"
	"secd/internal/object"
)

// Disassemble lists code one instruction per line. Code operands are listed
// beneath their instruction, indented one level deeper.
func Disassemble(program object.Object) string {
	var b strings.Builder
	disassemble(&b, program, 0)
	return b.String()
}

func disassemble(b *strings.Builder, program object.Object, depth int) {
	indent := strings.Repeat("  ", depth)
	index := 0
	for program != object.Unit {
		p, ok := program.(*object.Pair)
		if !ok {
			fmt.Fprintf(b, "%s%04d . %s\n", indent, index, object.Write(program))
			return
		}
		in, ok := p.Car.(*object.Instruction)
		if !ok {
			fmt.Fprintf(b, "%s%04d ?? %s\n", indent, index, object.Write(p.Car))
			program = p.Cdr
			index++
			continue
		}
		def, _ := code.Lookup(in.Op)
		program = p.Cdr

		var nested []object.Object
		var inline []string
		if def != nil {
			for _, kind := range def.Operands {
				operand, ok := program.(*object.Pair)
				if !ok {
					break
				}
				if kind == code.OperandCode {
					nested = append(nested, operand.Car)
				} else {
					inline = append(inline, object.Write(operand.Car))
				}
				program = operand.Cdr
			}
		}
		fmt.Fprintf(b, "%s%04d %s", indent, index, in.Op)
		if len(inline) > 0 {
			fmt.Fprintf(b, " %s", strings.Join(inline, " "))
		}
		b.WriteByte('\n')
		for _, n := range nested {
			disassemble(b, n, depth+1)
		}
		index++
		if in.Op == code.OpStop {
			return
		}
	}
}
