package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// StepResult reports what one cycle changed that the host has to act on.
type StepResult struct {
	DrawNeeded    bool // framebuffer changed and should be redrawn
	ToneRequested bool // sound timer went from 1 to 0
	Halted        bool // the machine cannot make progress; see the returned error, if any
}

// Step runs one fetch, decode, execute and timer tick cycle.
//
// Faults are returned as errors together with Halted set; the machine state is
// left as it was before the faulting instruction. With SkipUnknown, an unknown
// opcode returns its *DecodeError but the cycle otherwise completes.
func (vm *VM) Step() (StepResult, error) {
	var res StepResult

	if vm.waiting {
		vm.pollKey()
		res.ToneRequested = vm.tickTimers()
		return res, nil
	}

	opcode, err := vm.fetchOpcode()
	if err != nil {
		res.Halted = true
		return res, err
	}

	instr := Decode(opcode)
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", vm.pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.String(),
		)
	}

	fx, err := vm.execute(instr)
	if err != nil {
		if errors.Is(err, ErrUnknownOpcode) && vm.unknownOpcode == SkipUnknown {
			slog.Warn("skip unknown opcode", "pc", fmt.Sprintf("0x%04x", vm.pc), "opcode", fmt.Sprintf("0x%04x", opcode))
			vm.pc += InstructionSize
			res.ToneRequested = vm.tickTimers()
			return res, err
		}

		res.Halted = true
		return res, err
	}

	res.DrawNeeded = fx.draw
	res.Halted = fx.halt
	res.ToneRequested = vm.tickTimers()
	return res, nil
}

func (vm *VM) fetchOpcode() (uint16, error) {
	if int(vm.pc)+1 >= MemorySize {
		return 0, fmt.Errorf("%w: pc 0x%04x", ErrOutOfBounds, vm.pc)
	}

	hi := vm.memory[vm.pc]
	lo := vm.memory[vm.pc+1]

	opcode := uint16(hi)<<8 | uint16(lo) // Op code is two bytes
	return opcode, nil
}

// pollKey completes a pending FX0A once any key is down, taking the lowest one.
func (vm *VM) pollKey() {
	for i, down := range vm.keypad {
		if down {
			vm.registers[vm.waitReg] = uint8(i)
			vm.waiting = false
			vm.pc += InstructionSize
			return
		}
	}
}

// tickTimers decrements both timers and reports whether the sound timer just expired.
func (vm *VM) tickTimers() bool {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}

	if vm.soundTimer > 0 {
		vm.soundTimer--
		return vm.soundTimer == 0
	}

	return false
}
