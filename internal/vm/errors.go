package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrRomTooLarge is returned by Load when the program does not fit above ProgramStart.
	ErrRomTooLarge = errors.New("rom too large")

	// ErrOutOfBounds is returned by Step when the program counter points past the end of memory.
	ErrOutOfBounds = errors.New("program counter out of bounds")

	// ErrUnknownOpcode is matched by every *DecodeError.
	ErrUnknownOpcode = errors.New("unknown opcode")

	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// DecodeError reports an instruction word with no mapped instruction.
type DecodeError struct {
	PC     uint16
	Opcode uint16
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%04X at 0x%04x", e.Opcode, e.PC)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrUnknownOpcode
}
