package asm

import (
	"strings"

	"github.com/pkg/errors"

	"rvm/vm"
)

func opcodeFromMnemonicOrIGL(name string) vm.Opcode {
	return vm.OpcodeFromMnemonic(strings.ToLower(name))
}

// parser turns a flat token stream into a Program by grouping tokens
// into instructions: an optional label declaration, then an opcode or
// directive, then up to three operands.
type parser struct {
	lex *lexer
}

// Parse lexes and parses the full source text into a Program.
// Grammar failures produce a ParseError; they do not panic.
func Parse(src string) (Program, error) {
	p := &parser{lex: newLexer(src)}
	var prog Program

	for !p.lex.eof() {
		instr, err := p.parseInstruction()
		if err != nil {
			return Program{}, &ParseError{Message: err.Error()}
		}
		prog.Instructions = append(prog.Instructions, instr)
	}

	if len(prog.Instructions) == 0 {
		return Program{}, &ParseError{Message: "empty program"}
	}
	return prog, nil
}

func (p *parser) parseInstruction() (Instruction, error) {
	var instr Instruction

	tok, err := p.lex.nextToken()
	if err != nil {
		return instr, err
	}

	if lbl, ok := tok.(LabelDeclarationToken); ok {
		instr.Label = &lbl
		tok, err = p.lex.nextToken()
		if err != nil {
			return instr, err
		}
	}

	switch t := tok.(type) {
	case OpToken:
		instr.Opcode = &t
	case DirectiveToken:
		instr.Directive = &t
	default:
		return instr, errors.Errorf("expected opcode or directive, got %T", tok)
	}

	operands := [3]*Token{}
	for i := 0; i < 3 && !p.lex.atLineEnd(); i++ {
		opTok, err := p.parseOperand()
		if err != nil {
			break
		}
		operands[i] = &opTok
	}
	if operands[0] != nil {
		instr.Operand1 = *operands[0]
	}
	if operands[1] != nil {
		instr.Operand2 = *operands[1]
	}
	if operands[2] != nil {
		instr.Operand3 = *operands[2]
	}

	return instr, nil
}

// parseOperand tries, in priority order: integer operand, register,
// label usage, string literal. It restores the cursor and returns an
// error if none match, so the caller can stop collecting operands.
func (p *parser) parseOperand() (Token, error) {
	save := p.lex.pos
	p.lex.skipSpace()
	if p.lex.pos >= len(p.lex.src) {
		return nil, errors.New("no more operands")
	}
	switch p.lex.peek() {
	case '#', '$', '@', '\'':
		tok, err := p.lex.nextToken()
		if err != nil {
			p.lex.pos = save
			return nil, err
		}
		return tok, nil
	default:
		p.lex.pos = save
		return nil, errors.New("not an operand")
	}
}

// atLineEnd reports whether the next non-space lexical item starts a
// new instruction (a label declaration, an opcode, or a directive)
// rather than continuing the current one as an operand. Since this
// grammar has no statement terminator, the boundary between
// instructions is purely "ran out of valid operand forms".
func (l *lexer) atLineEnd() bool {
	save := l.pos
	defer func() { l.pos = save }()

	l.skipSpace()
	if l.pos >= len(l.src) {
		return true
	}
	switch l.src[l.pos] {
	case '#', '$', '@', '\'':
		return false
	default:
		return true
	}
}
