package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble walks a container's code region and renders each
// 4-byte instruction slot back to mnemonic text, stopping after the
// first hlt or unrecognized opcode. It always advances a full 4-byte
// slot, including for the jump family, whose interpreter arms read
// only the register byte (see vm.go's step). The jump family and JEQ
// print their one meaningful operand byte; everything else prints
// whichever of its three operand bytes are semantically relevant.
func Disassemble(container []byte) (string, error) {
	if len(container) < minHeaderLen || !bytes.Equal(container[0:4], Magic[:]) {
		return "", ErrBadMagic
	}
	code := container[:]
	pc := int(binary.LittleEndian.Uint32(container[68:72]))

	var b strings.Builder
	for pc < len(code) {
		op := OpcodeFromByte(code[pc])
		pc++
		if pc+3 > len(code) {
			break
		}
		b0, b1, b2 := code[pc], code[pc+1], code[pc+2]
		pc += 3

		switch op {
		case LOAD:
			imm := uint16(b1)<<8 | uint16(b2)
			fmt.Fprintf(&b, "load $%d #%d\n", b0, imm)
		case ADD, SUB, MUL, DIV:
			fmt.Fprintf(&b, "%s $%d $%d $%d\n", op, b0, b1, b2)
		case JMP, JMPB:
			fmt.Fprintf(&b, "%s $%d\n", op, b0)
		case JMPF:
			fmt.Fprintf(&b, "jmpf $%d\n", b0)
		case EQ, NEQ, GT, LT, GTE, LTE:
			fmt.Fprintf(&b, "%s $%d $%d\n", op, b0, b1)
		case JEQ:
			fmt.Fprintf(&b, "jeq $%d\n", b0)
		case ALOC, INC, DEC:
			fmt.Fprintf(&b, "%s $%d\n", op, b0)
		case PRTS:
			imm := uint16(b0)<<8 | uint16(b1)
			fmt.Fprintf(&b, "prts #%d\n", imm)
		case NOP:
			b.WriteString("nop\n")
		case HLT:
			b.WriteString("hlt\n")
			return b.String(), nil
		default:
			fmt.Fprintf(&b, "igl\n")
			return b.String(), nil
		}
	}
	return b.String(), nil
}
