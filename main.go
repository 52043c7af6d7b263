package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kapitanov/chip8interp/internal/console"
	"github.com/kapitanov/chip8interp/internal/hal"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/spf13/cobra"
)

type host interface {
	vm.HAL
	Shutdown()
}

func main() {
	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	verbose := flags.BoolP("verbose", "v", false, "enable verbose logging")
	frontend := flags.StringP("frontend", "f", "sdl", "frontend to run in: sdl or term")
	quirksName := flags.String("quirks", "modern", "quirks preset: modern or cosmac")
	shiftVY := flags.Bool("shift-vy", false, "8XY6/8XYE shift VY into VX")
	indexIncrement := flags.Bool("index-increment", false, "FX55/FX65 advance I past the last register")
	indexOverflowVF := flags.Bool("index-overflow-vf", false, "FX1E sets VF when I leaves the 12-bit address space")
	unknownOpcode := flags.String("unknown-opcode", "halt", "what to do with unknown opcodes: halt or skip")
	cycleDelay := flags.Duration("cycle-delay", hal.DefaultCycleDelay, "delay between cycles")
	scale := flags.Int("scale", hal.DefaultScale, "window pixels per display pixel (sdl frontend)")
	mute := flags.Bool("mute", false, "disable sound")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if *verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		quirks, err := vm.QuirksByName(*quirksName)
		if err != nil {
			return err
		}
		if flags.Changed("shift-vy") {
			quirks.ShiftUsesVY = *shiftVY
		}
		if flags.Changed("index-increment") {
			quirks.LoadStoreIncrementsIndex = *indexIncrement
		}
		if flags.Changed("index-overflow-vf") {
			quirks.IndexOverflowSetsVF = *indexOverflowVF
		}

		policy, err := vm.ParseUnknownOpcodePolicy(*unknownOpcode)
		if err != nil {
			return err
		}

		path := args[0]
		bs, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		machine := vm.New(vm.Config{
			Quirks:        quirks,
			UnknownOpcode: policy,
		})
		if err := machine.Load(bs); err != nil {
			return fmt.Errorf("unable to load file %q: %w", path, err)
		}

		slog.Debug("configured", "quirks", fmt.Sprintf("%+v", quirks), "unknown_opcode", policy)

		h, err := newHost(*frontend, *scale, *cycleDelay, *mute)
		if err != nil {
			return fmt.Errorf("unable to initialize %s frontend: %w", *frontend, err)
		}
		defer h.Shutdown()

		for {
			err = machine.Run(h)

			if errors.Is(err, vm.ErrQuit) {
				return nil
			}

			if errors.Is(err, vm.ErrReboot) {
				slog.Info("reboot")
				machine.Reset()
				if err := machine.Load(bs); err != nil {
					return err
				}
				continue
			}

			return err
		}
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newHost(frontend string, scale int, cycleDelay time.Duration, mute bool) (host, error) {
	switch frontend {
	case "sdl":
		return hal.New(hal.Options{
			Scale:      scale,
			CycleDelay: cycleDelay,
			Mute:       mute,
		})
	case "term":
		return console.New(console.Options{
			CycleDelay: cycleDelay,
			Mute:       mute,
		})
	default:
		return nil, fmt.Errorf("unknown frontend %q", frontend)
	}
}
