package vm

import (
	"fmt"
	"log/slog"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	MaxProgramSize  = MemorySize - int(ProgramStart)
	InstructionSize = 2

	FontStart  = uint16(0x000)
	FontHeight = 5

	addressMask = MemorySize - 1
	flag        = 0x0F
)

type VM struct {
	memory    [MemorySize]uint8    // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Stack
	sp    uint16            // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	gfx    [ScreenWidth * ScreenHeight]uint8 // Graphics buffer
	keypad [KeyCount]bool                    // Keypad

	// Set by FX0A, cleared once a key press has been captured into waitReg.
	waiting bool
	waitReg uint8

	quirks        Quirks
	unknownOpcode UnknownOpcodePolicy
	rand          func() uint8
}

// New returns a machine in its reset state with no program loaded.
func New(cfg Config) *VM {
	vm := &VM{
		quirks:        cfg.Quirks,
		unknownOpcode: cfg.UnknownOpcode,
		rand:          cfg.Rand,
	}
	if vm.rand == nil {
		vm.rand = defaultRand
	}

	vm.Reset()
	return vm
}

// Reset clears all machine state and copies the font into low memory.
func (vm *VM) Reset() {
	vm.pc = ProgramStart
	vm.index = 0
	vm.sp = 0

	clear(vm.gfx[:])
	vm.stack = [StackSize]uint16{}
	vm.keypad = [KeyCount]bool{}
	vm.registers = [RegisterCount]uint8{}
	vm.memory = [MemorySize]uint8{}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(vm.memory[FontStart:], chip8Font[:])

	vm.delayTimer = 0
	vm.soundTimer = 0

	vm.waiting = false
	vm.waitReg = 0
}

// Load copies a program into memory at ProgramStart.
// Memory is left untouched when the program does not fit.
func (vm *VM) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrRomTooLarge, len(program), MaxProgramSize)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(vm.memory[ProgramStart:], program)
	return nil
}

// Framebuffer returns the 64x32 display, row-major, one byte (0 or 1) per pixel.
// The slice aliases machine state and must not be modified.
func (vm *VM) Framebuffer() []uint8 {
	return vm.gfx[:]
}

func (vm *VM) PC() uint16           { return vm.pc }
func (vm *VM) Index() uint16        { return vm.index }
func (vm *VM) SP() uint16           { return vm.sp }
func (vm *VM) DelayTimer() uint8    { return vm.delayTimer }
func (vm *VM) SoundTimer() uint8    { return vm.soundTimer }

// Register returns VX. It panics when x is not below RegisterCount.
func (vm *VM) Register(x uint8) uint8 { return vm.registers[x] }

// WaitingForKey reports whether an FX0A instruction is pending.
func (vm *VM) WaitingForKey() bool { return vm.waiting }

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

func (vm *VM) KeyDown(key Key) {
	vm.keypad[key&0x0F] = true
}

func (vm *VM) KeyUp(key Key) {
	vm.keypad[key&0x0F] = false
}

// ReleaseKeys marks every key as up.
func (vm *VM) ReleaseKeys() {
	vm.keypad = [KeyCount]bool{}
}

// Memory address helper. Accesses through I wrap inside the 4K address space.
func addr(base uint16, offset uint16) uint16 {
	return (base + offset) & addressMask
}

var chip8Font = [16 * FontHeight]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
