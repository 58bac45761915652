package asm

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"rvm/vm"
)

// jumpFamily is the set of opcodes whose single operand byte is read
// at run time as a register index holding a jump target (vm.go's
// JMP/JMPF/JMPB/JEQ arms), not an absolute offset. A label used
// directly as an operand to one of these encodes to nonsense, since
// encodeInstruction otherwise has no opcode-specific knowledge of how
// many bytes an operand consumes or what it means; see
// DirectLabelJumpOperandError.
var jumpFamily = map[vm.Opcode]bool{
	vm.JMP:  true,
	vm.JMPF: true,
	vm.JMPB: true,
	vm.JEQ:  true,
}

// Assemble runs both passes over source text and returns the
// completed container bytes, or the full list of errors collected
// along the way. Pass two only runs when pass one produced no errors.
func Assemble(src string) ([]byte, []error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, []error{err}
	}

	a := &assembler{symbols: newSymbolTable()}
	if errs := a.passOne(prog); len(errs) > 0 {
		return nil, errs
	}

	return a.passTwo(prog)
}

type assembler struct {
	symbols      *symbolTable
	sectionsSeen map[section]bool
	roData       []byte
}

func (a *assembler) passOne(prog Program) []error {
	var errs []error
	currentSection := sectionNone
	a.sectionsSeen = map[section]bool{}
	codeInstructionIndex := 0

	for i, instr := range prog.Instructions {
		if instr.Label != nil {
			if currentSection == sectionNone {
				errs = append(errs, &NoSegmentDeclarationError{Instruction: i})
			} else {
				// Provisional: a label on a code instruction resolves
				// to its absolute container byte offset, computed from
				// how many opcode-bearing instructions (not source
				// lines) precede it. A later .asciiz/.integer directive
				// on the same label rebinds this via setOffset below.
				offset := uint32(HeaderTotalSize) + uint32(len(a.roData)) + uint32(codeInstructionIndex*4)
				if err := a.symbols.add(instr.Label.Name, offset); err != nil {
					errs = append(errs, err)
				}
			}
		}
		if instr.Opcode != nil {
			codeInstructionIndex++
		}

		if instr.Directive != nil {
			if instr.Operand1 != nil {
				if instr.Label == nil {
					errs = append(errs, &StringConstantWithoutLabelError{Instruction: i})
					continue
				}
				switch instr.Directive.Name {
				case "asciiz":
					s, ok := instr.Operand1.(IrStringToken)
					if !ok {
						errs = append(errs, &InvalidOperandError{Instruction: i})
						continue
					}
					a.symbols.setOffset(instr.Label.Name, uint32(len(a.roData)))
					a.roData = append(a.roData, []byte(s.Value)...)
					a.roData = append(a.roData, 0)
				case "integer":
					n, ok := instr.Operand1.(IntegerOperandToken)
					if !ok {
						errs = append(errs, &InvalidOperandError{Instruction: i})
						continue
					}
					a.symbols.setOffset(instr.Label.Name, uint32(len(a.roData)))
					buf := make([]byte, 4)
					binary.LittleEndian.PutUint32(buf, uint32(n.Value))
					a.roData = append(a.roData, buf...)
				default:
					errs = append(errs, &UnknownDirectiveError{Name: instr.Directive.Name})
				}
			} else {
				switch instr.Directive.Name {
				case "code":
					currentSection = sectionCode
					a.sectionsSeen[sectionCode] = true
				case "data":
					currentSection = sectionData
					a.sectionsSeen[sectionData] = true
				default:
					// Unknown bare directive: ignored rather than
					// rejected, matching the source assembler's
					// permissive section-header handling.
				}
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	if len(a.sectionsSeen) != 2 {
		return []error{&InsufficientSectionsError{Found: len(a.sectionsSeen)}}
	}
	return nil
}

func (a *assembler) passTwo(prog Program) ([]byte, []error) {
	out := buildHeader(uint32(len(a.roData)))
	out = append(out, a.roData...)

	var code []byte
	for i, instr := range prog.Instructions {
		if instr.Opcode == nil {
			continue
		}
		bytes, err := a.encodeInstruction(i, instr)
		if err != nil {
			return nil, []error{err}
		}
		code = append(code, bytes...)
	}

	return append(out, code...), nil
}

// encodeInstruction renders one opcode-bearing instruction to exactly
// 4 bytes: the opcode followed by its operand field, zero-padded to 3
// bytes regardless of how many operand tokens the mnemonic actually
// consumes at run time.
func (a *assembler) encodeInstruction(index int, instr Instruction) ([]byte, error) {
	out := make([]byte, 1, 4)
	out[0] = byte(instr.Opcode.Code)

	operands := []Token{instr.Operand1, instr.Operand2, instr.Operand3}
	for _, op := range operands {
		if op == nil {
			continue
		}
		switch t := op.(type) {
		case RegisterToken:
			out = append(out, t.Num)
		case IntegerOperandToken:
			out = append(out, encodeU16(uint16(int32ToUint32Trunc(t.Value)))...)
		case LabelUsageToken:
			if jumpFamily[instr.Opcode.Code] {
				return nil, &DirectLabelJumpOperandError{Instruction: index, Mnemonic: instr.Opcode.Code.String()}
			}
			offset, ok := a.symbols.value(t.Name)
			if !ok {
				return nil, &UnresolvedSymbolError{Name: t.Name}
			}
			out = append(out, encodeU16(uint16(offset))...)
		default:
			return nil, &InvalidOperandError{Instruction: index}
		}
	}

	for len(out) < 4 {
		out = append(out, 0)
	}
	if len(out) != 4 {
		return nil, errors.Errorf("instruction %d encoded to %d bytes, expected 4", index, len(out))
	}
	return out, nil
}

func encodeU16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func int32ToUint32Trunc(v int32) uint32 {
	return uint32(v)
}
