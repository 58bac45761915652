package asm

import "fmt"

// The assembler never panics on a malformed program; every failure
// mode below is collected into the returned error list instead.

// NoSegmentDeclarationError is raised when a label appears before any
// section (.code/.data) has been declared.
type NoSegmentDeclarationError struct {
	Instruction int
}

func (e *NoSegmentDeclarationError) Error() string {
	return fmt.Sprintf("no segment declaration found before instruction %d", e.Instruction)
}

// StringConstantWithoutLabelError is raised when a data directive
// appears without a preceding label on the same instruction.
type StringConstantWithoutLabelError struct {
	Instruction int
}

func (e *StringConstantWithoutLabelError) Error() string {
	return fmt.Sprintf("string constant declared without a label at instruction %d", e.Instruction)
}

// SymbolAlreadyDeclaredError is raised when a label name is added to
// the symbol table twice.
type SymbolAlreadyDeclaredError struct {
	Name string
}

func (e *SymbolAlreadyDeclaredError) Error() string {
	return fmt.Sprintf("symbol %q already declared", e.Name)
}

// UnknownDirectiveError is raised when a directive with operands does
// not match any directive this assembler understands.
type UnknownDirectiveError struct {
	Name string
}

func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("unknown directive %q", e.Name)
}

// NonOpcodeInOpcodeFieldError is an internal consistency check: an
// instruction reached code emission without a resolved opcode.
type NonOpcodeInOpcodeFieldError struct {
	Instruction int
}

func (e *NonOpcodeInOpcodeFieldError) Error() string {
	return fmt.Sprintf("non-opcode token in opcode field at instruction %d", e.Instruction)
}

// InsufficientSectionsError is raised when the program does not
// declare exactly the two required sections (.code and .data).
type InsufficientSectionsError struct {
	Found int
}

func (e *InsufficientSectionsError) Error() string {
	return fmt.Sprintf("expected exactly 2 sections, found %d", e.Found)
}

// ParseError wraps a grammar failure from the lexer/parser.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// UnresolvedSymbolError is raised in pass two when an operand
// references a label that was never declared.
type UnresolvedSymbolError struct {
	Name string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q", e.Name)
}

// InvalidOperandError is raised in pass two when an operand token
// cannot be encoded into the instruction stream at all.
type InvalidOperandError struct {
	Instruction int
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("invalid operand at instruction %d", e.Instruction)
}

// DirectLabelJumpOperandError is raised when a label is used directly
// as the operand of a jump-family mnemonic (jmp/jmpf/jmpb/jeq). Those
// opcodes read their operand byte as a register index holding the
// jump target at run time, not an absolute offset, so a bare label
// there would silently encode to the wrong thing. Load the label's
// address into a register first and jump through that register
// instead, e.g. "load $3 @test" then "jmp $3".
type DirectLabelJumpOperandError struct {
	Instruction int
	Mnemonic    string
}

func (e *DirectLabelJumpOperandError) Error() string {
	return fmt.Sprintf("instruction %d: %q does not take a label operand directly; load the label into a register and jump through that register instead", e.Instruction, e.Mnemonic)
}
