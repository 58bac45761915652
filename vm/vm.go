// Package vm implements the register-based interpreter that executes
// containers produced by the companion assembler package.
package vm

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	numRegisters = 32
	// minHeaderLen is the smallest a well-formed container can be: the
	// fixed 64-byte header plus the two 4-byte length fields, before
	// any RO-data or code.
	minHeaderLen = 72
)

// Magic is the 4-byte signature every valid container starts with.
var Magic = [4]byte{45, 50, 49, 45}

// ErrBadMagic is returned by Run/RunOnce when the loaded bytes don't
// start with the expected container signature.
var ErrBadMagic = errors.New("vm: container missing magic header")

// VM is a single register machine: 32 signed 32-bit registers, a byte
// program counter, a grow-only heap, and the last division remainder.
type VM struct {
	Registers [numRegisters]int32

	pc      int
	program []byte
	roEnd   uint32

	remainder uint32
	equalFlag bool
	halted    bool

	heap []byte

	// Stdout receives PRTS output; tests point it at a *bytes.Buffer,
	// and the CLI layer points it directly at os.Stdout.
	Stdout io.StringWriter
}

// New returns a VM with no program loaded.
func New() *VM {
	return &VM{Stdout: &bytes.Buffer{}}
}

// AddBytes loads a container's bytes as the program to execute. It
// does not itself verify the header; that happens on Run/RunOnce so a
// caller can inspect a malformed container before running it if it
// wants to.
func (v *VM) AddBytes(b []byte) {
	v.program = b
	if len(b) >= minHeaderLen {
		v.roEnd = binary.LittleEndian.Uint32(b[68:72])
	}
}

// Run executes instructions until HLT, an unrecognized opcode, or the
// program counter runs past the end of the container.
func (v *VM) Run() error {
	if err := v.verifyHeader(); err != nil {
		return err
	}
	for {
		done, err := v.step()
		v.halted = done
		if err != nil || done {
			return err
		}
	}
}

// RunOnce executes exactly one instruction, verifying the header
// first if execution hasn't started yet. Callers that need to know
// whether that instruction halted the machine should check Halted
// afterward.
func (v *VM) RunOnce() error {
	if v.pc == 0 {
		if err := v.verifyHeader(); err != nil {
			return err
		}
	}
	done, err := v.step()
	v.halted = done
	return err
}

// Halted reports whether the most recently executed instruction
// stopped the machine (HLT, an unrecognized opcode, or running off
// the end of the container).
func (v *VM) Halted() bool {
	return v.halted
}

// verifyHeader checks the container's magic signature and, the first
// time it's called, seeks the program counter past the header and any
// RO-data to the start of the code region. The code's start is the
// container's own ro_end field (bytes 68-71, "end-of-RO absolute
// offset") rather than a hardcoded constant, so execution lands in
// the right place for any ro_len, including zero. ro_end is used as
// read: it is not checked against ro_len or the container's length,
// so the VM trusts containers shaped like the assembler's output.
// See DESIGN.md for
// why this departs from reproducing the original design's fixed
// post-header skip.
func (v *VM) verifyHeader() error {
	if len(v.program) < 4 || !bytes.Equal(v.program[0:4], Magic[:]) {
		return ErrBadMagic
	}
	if v.pc == 0 {
		v.pc = int(v.roEnd)
	}
	return nil
}

func (v *VM) nextU8() uint8 {
	b := v.program[v.pc]
	v.pc++
	return b
}

func (v *VM) nextU16() uint16 {
	result := uint16(v.program[v.pc])<<8 | uint16(v.program[v.pc+1])
	v.pc += 2
	return result
}

// step executes a single instruction, returning true when the VM
// should stop (HLT, unknown opcode, or end of program).
func (v *VM) step() (bool, error) {
	if v.pc >= len(v.program) {
		return true, nil
	}

	op := OpcodeFromByte(v.nextU8())
	switch op {
	case HLT:
		return true, nil

	case LOAD:
		reg := v.nextU8()
		val := v.nextU16()
		v.Registers[reg] = int32(val)

	case ADD:
		r1, r2, r3 := v.nextU8(), v.nextU8(), v.nextU8()
		v.Registers[r3] = v.Registers[r1] + v.Registers[r2]

	case SUB:
		r1, r2, r3 := v.nextU8(), v.nextU8(), v.nextU8()
		v.Registers[r3] = v.Registers[r1] - v.Registers[r2]

	case MUL:
		r1, r2, r3 := v.nextU8(), v.nextU8(), v.nextU8()
		v.Registers[r3] = v.Registers[r1] * v.Registers[r2]

	case DIV:
		r1, r2, r3 := v.nextU8(), v.nextU8(), v.nextU8()
		a, b := v.Registers[r1], v.Registers[r2]
		v.Registers[r3] = a / b
		v.remainder = uint32(a % b)

	case JMP:
		reg := v.nextU8()
		v.pc = int(v.Registers[reg])

	case JMPF:
		reg := v.nextU8()
		v.pc += int(v.Registers[reg])

	case JMPB:
		reg := v.nextU8()
		v.pc -= int(v.Registers[reg])

	case EQ:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] == v.Registers[r2]
		v.nextU8()

	case NEQ:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] != v.Registers[r2]
		v.nextU8()

	case GT:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] > v.Registers[r2]
		v.nextU8()

	case LT:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] < v.Registers[r2]
		v.nextU8()

	case GTE:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] >= v.Registers[r2]
		v.nextU8()

	case LTE:
		r1, r2 := v.nextU8(), v.nextU8()
		v.equalFlag = v.Registers[r1] <= v.Registers[r2]
		v.nextU8()

	case JEQ:
		reg := v.nextU8()
		v.nextU8()
		v.nextU8()
		if v.equalFlag {
			v.pc = int(v.Registers[reg])
		}

	case NOP:
		v.nextU8()
		v.nextU8()
		v.nextU8()

	case ALOC:
		reg := v.nextU8()
		v.nextU8()
		v.nextU8()
		grow := int(v.Registers[reg])
		if grow > 0 {
			v.heap = append(v.heap, make([]byte, grow)...)
		}

	case INC:
		reg := v.nextU8()
		v.nextU8()
		v.nextU8()
		v.Registers[reg]++

	case DEC:
		reg := v.nextU8()
		v.nextU8()
		v.nextU8()
		v.Registers[reg]--

	case PRTS:
		offset := v.nextU16()
		v.nextU8()
		s := v.readROString(int(offset))
		v.Stdout.WriteString(s)

	default:
		return true, nil
	}

	return false, nil
}

// readROString reads a NUL-terminated string out of the container's
// RO-data section starting at the given offset (relative to the
// start of RO-data, i.e. byte 72 of the container).
func (v *VM) readROString(offset int) string {
	start := 72 + offset
	end := start
	for end < len(v.program) && v.program[end] != 0 {
		end++
	}
	if start >= len(v.program) {
		return ""
	}
	return string(v.program[start:end])
}

// HeapLen reports the current size of the VM's grow-only heap, for
// tests and diagnostics.
func (v *VM) HeapLen() int {
	return len(v.heap)
}

// EqualFlag reports the result of the most recent comparison opcode.
func (v *VM) EqualFlag() bool {
	return v.equalFlag
}

// Remainder reports the remainder of the most recent DIV.
func (v *VM) Remainder() uint32 {
	return v.remainder
}

// PC reports the current program counter, for tests and the REPL's
// state display.
func (v *VM) PC() int {
	return v.pc
}
