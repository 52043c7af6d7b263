package vm

import "fmt"

// Opcode is a raw 16-bit instruction word.
type Opcode uint16

func (op Opcode) Kind() uint8 { return uint8(op >> 12) }
func (op Opcode) X() uint8    { return uint8(op>>8) & 0x0F }
func (op Opcode) Y() uint8    { return uint8(op>>4) & 0x0F }
func (op Opcode) N() uint8    { return uint8(op) & 0x0F }
func (op Opcode) NN() uint8   { return uint8(op) }
func (op Opcode) NNN() uint16 { return uint16(op) & 0x0FFF }

// Op identifies a decoded instruction.
type Op uint8

const (
	OpUnknown Op = iota
	OpSys        // 0NNN
	OpCls        // 00E0
	OpRts        // 00EE
	OpJmp        // 1NNN
	OpJsr        // 2NNN
	OpSkeqImm    // 3XNN
	OpSkneImm    // 4XNN
	OpSkeqReg    // 5XY0
	OpMovImm     // 6XNN
	OpAddImm     // 7XNN
	OpMovReg     // 8XY0
	OpOr         // 8XY1
	OpAnd        // 8XY2
	OpXor        // 8XY3
	OpAddReg     // 8XY4
	OpSub        // 8XY5
	OpShr        // 8XY6
	OpRsb        // 8XY7
	OpShl        // 8XYE
	OpSkneReg    // 9XY0
	OpMvi        // ANNN
	OpJmi        // BNNN
	OpRand       // CXNN
	OpSprite     // DXYN
	OpSkpr       // EX9E
	OpSkup       // EXA1
	OpGdelay     // FX07
	OpKey        // FX0A
	OpSdelay     // FX15
	OpSsound     // FX18
	OpAdi        // FX1E
	OpFont       // FX29
	OpBcd        // FX33
	OpStr        // FX55
	OpLdr        // FX65
)

// Instruction is a decoded opcode: the operation plus every operand field.
// Which fields are meaningful depends on Op.
type Instruction struct {
	Op     Op
	Opcode Opcode
	X, Y   uint8
	N, NN  uint8
	NNN    uint16
}

// Decode splits an instruction word into its fields and identifies the operation.
// Words with no mapped instruction decode to OpUnknown.
func Decode(opcode uint16) Instruction {
	op := Opcode(opcode)
	return Instruction{
		Op:     lookup(op),
		Opcode: op,
		X:      op.X(),
		Y:      op.Y(),
		N:      op.N(),
		NN:     op.NN(),
		NNN:    op.NNN(),
	}
}

func lookup(op Opcode) Op {
	switch op.Kind() {
	case 0x0:
		switch op {
		case 0x00E0:
			return OpCls
		case 0x00EE:
			return OpRts
		default:
			return OpSys
		}

	case 0x1:
		return OpJmp

	case 0x2:
		return OpJsr

	case 0x3:
		return OpSkeqImm

	case 0x4:
		return OpSkneImm

	case 0x5:
		if op.N() == 0 {
			return OpSkeqReg
		}

	case 0x6:
		return OpMovImm

	case 0x7:
		return OpAddImm

	case 0x8:
		switch op.N() {
		case 0x0:
			return OpMovReg
		case 0x1:
			return OpOr
		case 0x2:
			return OpAnd
		case 0x3:
			return OpXor
		case 0x4:
			return OpAddReg
		case 0x5:
			return OpSub
		case 0x6:
			return OpShr
		case 0x7:
			return OpRsb
		case 0xE:
			return OpShl
		}

	case 0x9:
		if op.N() == 0 {
			return OpSkneReg
		}

	case 0xA:
		return OpMvi

	case 0xB:
		return OpJmi

	case 0xC:
		return OpRand

	case 0xD:
		return OpSprite

	case 0xE:
		switch op.NN() {
		case 0x9E:
			return OpSkpr
		case 0xA1:
			return OpSkup
		}

	case 0xF:
		switch op.NN() {
		case 0x07:
			return OpGdelay
		case 0x0A:
			return OpKey
		case 0x15:
			return OpSdelay
		case 0x18:
			return OpSsound
		case 0x1E:
			return OpAdi
		case 0x29:
			return OpFont
		case 0x33:
			return OpBcd
		case 0x55:
			return OpStr
		case 0x65:
			return OpLdr
		}
	}

	return OpUnknown
}

// String renders the instruction as an assembler-style mnemonic for tracing.
func (in Instruction) String() string {
	switch in.Op {
	case OpSys:
		return fmt.Sprintf("sys 0x%04x", in.NNN)
	case OpCls:
		return "cls"
	case OpRts:
		return "rts"
	case OpJmp:
		return fmt.Sprintf("jmp 0x%04x", in.NNN)
	case OpJsr:
		return fmt.Sprintf("jsr 0x%04x", in.NNN)
	case OpSkeqImm:
		return fmt.Sprintf("skeq v%x, %d", in.X, in.NN)
	case OpSkneImm:
		return fmt.Sprintf("skne v%x, %d", in.X, in.NN)
	case OpSkeqReg:
		return fmt.Sprintf("skeq v%x, v%x", in.X, in.Y)
	case OpMovImm:
		return fmt.Sprintf("mov v%x, %d", in.X, in.NN)
	case OpAddImm:
		return fmt.Sprintf("add v%x, %d", in.X, in.NN)
	case OpMovReg:
		return fmt.Sprintf("mov v%x, v%x", in.X, in.Y)
	case OpOr:
		return fmt.Sprintf("or v%x, v%x", in.X, in.Y)
	case OpAnd:
		return fmt.Sprintf("and v%x, v%x", in.X, in.Y)
	case OpXor:
		return fmt.Sprintf("xor v%x, v%x", in.X, in.Y)
	case OpAddReg:
		return fmt.Sprintf("add v%x, v%x", in.X, in.Y)
	case OpSub:
		return fmt.Sprintf("sub v%x, v%x", in.X, in.Y)
	case OpShr:
		return fmt.Sprintf("shr v%x, v%x", in.X, in.Y)
	case OpRsb:
		return fmt.Sprintf("rsb v%x, v%x", in.X, in.Y)
	case OpShl:
		return fmt.Sprintf("shl v%x, v%x", in.X, in.Y)
	case OpSkneReg:
		return fmt.Sprintf("skne v%x, v%x", in.X, in.Y)
	case OpMvi:
		return fmt.Sprintf("mvi 0x%04x", in.NNN)
	case OpJmi:
		return fmt.Sprintf("jmi 0x%04x", in.NNN)
	case OpRand:
		return fmt.Sprintf("rand v%x, 0x%02x", in.X, in.NN)
	case OpSprite:
		return fmt.Sprintf("sprite v%x, v%x, %d", in.X, in.Y, in.N)
	case OpSkpr:
		return fmt.Sprintf("skpr v%x", in.X)
	case OpSkup:
		return fmt.Sprintf("skup v%x", in.X)
	case OpGdelay:
		return fmt.Sprintf("gdelay v%x", in.X)
	case OpKey:
		return fmt.Sprintf("key v%x", in.X)
	case OpSdelay:
		return fmt.Sprintf("sdelay v%x", in.X)
	case OpSsound:
		return fmt.Sprintf("ssound v%x", in.X)
	case OpAdi:
		return fmt.Sprintf("adi v%x", in.X)
	case OpFont:
		return fmt.Sprintf("font v%x", in.X)
	case OpBcd:
		return fmt.Sprintf("bcd v%x", in.X)
	case OpStr:
		return fmt.Sprintf("str v0-v%x", in.X)
	case OpLdr:
		return fmt.Sprintf("ldr v0-v%x", in.X)
	default:
		return fmt.Sprintf("unknown 0x%04X", uint16(in.Opcode))
	}
}
