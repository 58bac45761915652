package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rvm/vm"
)

func TestAssembleLoadHlt(t *testing.T) {
	container, errs := Assemble(".data\n.code\nload $0 #500\nhlt\n")
	require.Empty(t, errs)
	require.Equal(t, Magic[:], container[0:4])
	require.Len(t, container, HeaderTotalSize+8) // header + 2 instructions * 4 bytes each
}

func TestAssembleAdd(t *testing.T) {
	container, errs := Assemble(".data\n.code\nload $0 #10\nload $1 #15\nadd $0 $1 $2\nhlt\n")
	require.Empty(t, errs)

	code := container[HeaderTotalSize:]
	require.Equal(t, []byte{
		byte(vm.LOAD), 0, 0, 10,
		byte(vm.LOAD), 1, 0, 15,
		byte(vm.ADD), 0, 1, 2,
		byte(vm.HLT), 0, 0, 0,
	}, code)
}

func TestAssembleLoopTerminatesWithEqualRegisters(t *testing.T) {
	container, errs := Assemble(
		".data\n.code\n" +
			"load $0 #0\n" +
			"load $2 #5\n" +
			"test: inc $0\n" +
			"neq $0 $2\n" +
			"load $3 @test\n" +
			"jeq $3\n" +
			"hlt\n",
	)
	require.Empty(t, errs)
	// 7 opcode-bearing instructions * 4 bytes + the 72-byte header, with
	// no RO-data.
	require.Len(t, container, 100)

	v := vm.New()
	v.AddBytes(container)
	require.NoError(t, v.Run())
	require.EqualValues(t, 5, v.Registers[0])
	require.EqualValues(t, 5, v.Registers[2])
	require.False(t, v.EqualFlag())
}

func TestAssembleAsciizRecordsLengthAndBytes(t *testing.T) {
	container, errs := Assemble(".data\nhello: .asciiz 'Hello'\n.code\nhlt\n")
	require.Empty(t, errs)
	require.EqualValues(t, 6, container[64])
	require.Equal(t, []byte("Hello\x00"), container[72:78])
}

func TestAssembleIntegerDirective(t *testing.T) {
	container, errs := Assemble(".data\ntest: .integer #300\n.code\nhlt\n")
	require.Empty(t, errs)
	require.Equal(t, []byte{0x2C, 0x01, 0x00, 0x00}, container[72:76])
}

func TestAssembleMissingSectionIsFatal(t *testing.T) {
	_, errs := Assemble("hello: .asciiz 'Fail'\n")
	require.Len(t, errs, 1)
	require.IsType(t, &NoSegmentDeclarationError{}, errs[0])
}

func TestAssembleOnlyOneSectionIsInsufficient(t *testing.T) {
	_, errs := Assemble(".data\nload $0 #1\nhlt\n")
	require.Len(t, errs, 1)
	require.IsType(t, &InsufficientSectionsError{}, errs[0])
}

func TestAssembleUnknownLabelIsFatal(t *testing.T) {
	_, errs := Assemble(".data\n.code\nprts @nowhere\nhlt\n")
	require.Len(t, errs, 1)
	require.IsType(t, &UnresolvedSymbolError{}, errs[0])
}

func TestAssembleDirectLabelJumpOperandIsFatal(t *testing.T) {
	_, errs := Assemble(".data\n.code\ntest: hlt\njmp @test\n")
	require.Len(t, errs, 1)
	require.IsType(t, &DirectLabelJumpOperandError{}, errs[0])
}

func TestAssembleDuplicateLabelIsFatal(t *testing.T) {
	_, errs := Assemble(".data\n.code\nfoo: load $0 #1\nfoo: load $1 #2\nhlt\n")
	require.Len(t, errs, 1)
	require.IsType(t, &SymbolAlreadyDeclaredError{}, errs[0])
}

func TestAssembleUnknownDirectiveWithOperandIsFatal(t *testing.T) {
	_, errs := Assemble(".data\nbad: .bogus #1\n.code\nhlt\n")
	require.Len(t, errs, 1)
	require.IsType(t, &UnknownDirectiveError{}, errs[0])
}

func TestAssembleNegativeIntegerOperand(t *testing.T) {
	container, errs := Assemble(".data\n.code\nload $0 #-10\nhlt\n")
	require.Empty(t, errs)
	code := container[HeaderTotalSize:]
	// -10 truncated to 16 bits, big-endian.
	require.Equal(t, byte(0xFF), code[2])
	require.Equal(t, byte(0xF6), code[3])
}
