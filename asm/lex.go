package asm

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// lexer scans source text into Tokens one at a time. It has no notion
// of instructions or grammar; that's built on top in parse.go. This
// mirrors the original's nom combinators re-expressed as a hand
// written cursor, per the recognized shape of this kind of small
// assembly grammar.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlnum(b byte) bool {
	return unicode.IsLetter(rune(b)) || isDigit(b)
}

func (l *lexer) eof() bool {
	l.skipSpace()
	return l.pos >= len(l.src)
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// readAlnum consumes a run of letters/digits and returns it; the
// cursor is left unchanged if nothing matched.
func (l *lexer) readAlnum() string {
	start := l.pos
	for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) readDigits() string {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

// nextToken recognizes exactly one token at the cursor. It tries the
// forms in priority order: register, integer operand, string literal,
// directive, label declaration, label usage, then bare word (treated
// as an opcode mnemonic, possibly unknown -> IGL).
func (l *lexer) nextToken() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return nil, errors.New("unexpected end of input")
	}

	switch c := l.peek(); {
	case c == '$':
		l.pos++
		digits := l.readDigits()
		if digits == "" {
			return nil, errors.Errorf("expected digits after $ at position %d", l.pos)
		}
		n, err := strconv.ParseUint(digits, 10, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid register number %q", digits)
		}
		return RegisterToken{Num: uint8(n)}, nil

	case c == '#':
		l.pos++
		neg := false
		if l.peek() == '-' {
			neg = true
			l.pos++
		}
		digits := l.readDigits()
		if digits == "" {
			return nil, errors.Errorf("expected digits after # at position %d", l.pos)
		}
		v, err := strconv.ParseInt(digits, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer operand %q", digits)
		}
		if neg {
			v = -v
		}
		return IntegerOperandToken{Value: int32(v)}, nil

	case c == '\'':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '\'' {
			l.pos++
		}
		if l.pos >= len(l.src) {
			return nil, errors.New("unterminated string literal")
		}
		value := l.src[start:l.pos]
		l.pos++ // consume closing quote
		return IrStringToken{Value: value}, nil

	case c == '.':
		l.pos++
		name := l.readAlnum()
		if name == "" {
			return nil, errors.Errorf("expected directive name after . at position %d", l.pos)
		}
		return DirectiveToken{Name: strings.ToLower(name)}, nil

	case c == '@':
		l.pos++
		name := l.readAlnum()
		if name == "" {
			return nil, errors.Errorf("expected label name after @ at position %d", l.pos)
		}
		return LabelUsageToken{Name: name}, nil

	case unicode.IsLetter(rune(c)):
		name := l.readAlnum()
		if l.peek() == ':' {
			l.pos++
			return LabelDeclarationToken{Name: name}, nil
		}
		return OpToken{Code: opcodeFromMnemonicOrIGL(name)}, nil

	default:
		return nil, errors.Errorf("unexpected character %q at position %d", c, l.pos)
	}
}
