package vm

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrReboot is returned by a HAL when the user asks to restart the program.
	ErrReboot = errors.New("reboot")

	// ErrQuit is returned by a HAL when the user closes the emulator.
	ErrQuit = errors.New("quit")
)

// HAL is the host side of the machine: display, keypad, speaker and pacing.
type HAL interface {
	ReadInput(keyDown func(Key), keyUp func(Key)) error
	Draw(gfx []uint8) error
	Beep() error
	WaitForNextFrame() error
}

// Run drives the machine until the host returns an error or the program faults.
// A program that parks itself in a jump-to-self loop keeps the host responsive
// until it asks to quit or reboot.
func (vm *VM) Run(hal HAL) error {
	if err := hal.Draw(vm.gfx[:]); err != nil {
		return err
	}

	for {
		res, err := vm.runStep(hal)
		if err != nil {
			return err
		}

		if res.Halted {
			slog.Info("program halted", "pc", fmt.Sprintf("0x%04x", vm.pc))
			return vm.waitForReboot(hal)
		}
	}
}

// waitForReboot keeps the timers running for a parked program, so a pending
// tone still sounds, until the host quits or reboots.
func (vm *VM) waitForReboot(hal HAL) error {
	for {
		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}

		if vm.tickTimers() {
			if err := hal.Beep(); err != nil {
				return err
			}
		}

		if err := hal.ReadInput(func(_ Key) {}, func(_ Key) {}); err != nil {
			return err
		}
	}
}

func (vm *VM) runStep(hal HAL) (StepResult, error) {
	res, err := vm.Step()
	if err != nil && res.Halted {
		return res, fmt.Errorf("machine halted at 0x%04x: %w", vm.pc, err)
	}

	if res.DrawNeeded {
		if err := hal.Draw(vm.gfx[:]); err != nil {
			return res, err
		}
	}

	if res.ToneRequested {
		if err := hal.Beep(); err != nil {
			return res, err
		}
	}

	if err := hal.ReadInput(vm.KeyDown, vm.KeyUp); err != nil {
		return res, err
	}

	if err := hal.WaitForNextFrame(); err != nil {
		return res, err
	}

	return res, nil
}
