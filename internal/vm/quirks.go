package vm

import (
	"fmt"
	"math/rand"
)

// Quirks selects between the behaviours CHIP-8 interpreters historically disagree on.
type Quirks struct {
	// ShiftUsesVY makes 8XY6 and 8XYE shift VY and store the result in VX.
	// When false, VX is shifted in place and Y is ignored.
	ShiftUsesVY bool

	// LoadStoreIncrementsIndex makes FX55 and FX65 leave I = I + X + 1.
	// When false, I is unchanged.
	LoadStoreIncrementsIndex bool

	// IndexOverflowSetsVF makes FX1E set VF to 1 when I + VX leaves the 12-bit
	// address space, and to 0 otherwise. When false, VF is untouched.
	IndexOverflowSetsVF bool
}

var (
	// ModernQuirks matches what most ROMs written after CHIP-48 expect.
	ModernQuirks = Quirks{}

	// COSMACQuirks matches the original COSMAC VIP interpreter.
	COSMACQuirks = Quirks{
		ShiftUsesVY:              true,
		LoadStoreIncrementsIndex: true,
	}
)

// QuirksByName returns a named preset.
func QuirksByName(name string) (Quirks, error) {
	switch name {
	case "modern":
		return ModernQuirks, nil
	case "cosmac":
		return COSMACQuirks, nil
	default:
		return Quirks{}, fmt.Errorf("unknown quirks preset %q", name)
	}
}

// UnknownOpcodePolicy decides what Step does with an instruction word it cannot decode.
type UnknownOpcodePolicy uint8

const (
	// HaltOnUnknown leaves the machine untouched and reports the step as halted.
	HaltOnUnknown UnknownOpcodePolicy = iota

	// SkipUnknown logs the opcode, steps over it and keeps running.
	// The *DecodeError is still returned to the caller.
	SkipUnknown
)

// ParseUnknownOpcodePolicy parses "halt" or "skip".
func ParseUnknownOpcodePolicy(s string) (UnknownOpcodePolicy, error) {
	switch s {
	case "halt":
		return HaltOnUnknown, nil
	case "skip":
		return SkipUnknown, nil
	default:
		return 0, fmt.Errorf("unknown opcode policy %q", s)
	}
}

func (p UnknownOpcodePolicy) String() string {
	switch p {
	case HaltOnUnknown:
		return "halt"
	case SkipUnknown:
		return "skip"
	default:
		return fmt.Sprintf("UnknownOpcodePolicy(%d)", uint8(p))
	}
}

type Config struct {
	Quirks        Quirks
	UnknownOpcode UnknownOpcodePolicy

	// Rand supplies bytes for CXNN. Defaults to math/rand/v2.
	Rand func() uint8
}

func defaultRand() uint8 {
	return uint8(rand.Intn(256))
}
