package vm

import "testing"

// state is a comparable copy of everything the machine exposes to a program.
type state struct {
	Memory    [MemorySize]uint8
	Registers [RegisterCount]uint8
	Stack     [StackSize]uint16
	SP        uint16
	PC        uint16
	Index     uint16
	Delay     uint8
	Sound     uint8
	Gfx       [ScreenWidth * ScreenHeight]uint8
	Keypad    [KeyCount]bool
	Waiting   bool
	WaitReg   uint8
}

func snapshot(m *VM) state {
	return state{
		Memory:    m.memory,
		Registers: m.registers,
		Stack:     m.stack,
		SP:        m.sp,
		PC:        m.pc,
		Index:     m.index,
		Delay:     m.delayTimer,
		Sound:     m.soundTimer,
		Gfx:       m.gfx,
		Keypad:    m.keypad,
		Waiting:   m.waiting,
		WaitReg:   m.waitReg,
	}
}

func words(ws ...uint16) []byte {
	bs := make([]byte, 0, 2*len(ws))
	for _, w := range ws {
		bs = append(bs, byte(w>>8), byte(w))
	}
	return bs
}

func newTestVM(t *testing.T, quirks Quirks, program ...uint16) *VM {
	t.Helper()

	m := New(Config{
		Quirks: quirks,
		Rand:   func() uint8 { return 0xAB },
	})
	if err := m.Load(words(program...)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m
}

// steps runs n cycles and fails the test on any error.
func steps(t *testing.T, m *VM, n int) StepResult {
	t.Helper()

	var res StepResult
	for i := 0; i < n; i++ {
		var err error
		res, err = m.Step()
		if err != nil {
			t.Fatalf("step %d at 0x%04x: %v", i, m.pc, err)
		}
	}
	return res
}
