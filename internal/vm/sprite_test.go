package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pixelsSet(m *VM) int {
	n := 0
	for _, p := range m.gfx {
		n += int(p)
	}
	return n
}

func TestDrawSprite(t *testing.T) {
	m := New(Config{})
	m.index = 0x300
	m.memory[0x300] = 0b1100_0001
	m.memory[0x301] = 0b0011_0000
	m.registers[1] = 10
	m.registers[2] = 4

	fx := exec(t, m, 0xD122)
	if !fx.draw {
		t.Errorf("sprite did not request a draw")
	}
	if m.registers[flag] != 0 {
		t.Errorf("vf = %d on an empty screen", m.registers[flag])
	}

	want := map[int]bool{
		10 + 4*ScreenWidth: true,
		11 + 4*ScreenWidth: true,
		17 + 4*ScreenWidth: true,
		12 + 5*ScreenWidth: true,
		13 + 5*ScreenWidth: true,
	}
	for i, p := range m.gfx {
		if (p == 1) != want[i] {
			t.Errorf("pixel (%d, %d) = %d", i%ScreenWidth, i/ScreenWidth, p)
		}
	}
	if m.index != 0x300 {
		t.Errorf("sprite moved I to 0x%04x", m.index)
	}
}

func TestDrawSpriteWraps(t *testing.T) {
	m := New(Config{})
	m.index = 0x300
	m.memory[0x300] = 0xFF
	m.memory[0x301] = 0x80
	m.registers[1] = 62
	m.registers[2] = 31

	exec(t, m, 0xD122)

	row31 := m.gfx[31*ScreenWidth : 32*ScreenWidth]
	for _, x := range []int{62, 63, 0, 1, 2, 3, 4, 5} {
		if row31[x] != 1 {
			t.Errorf("pixel (%d, 31) not set", x)
		}
	}
	if m.gfx[62] != 1 {
		t.Errorf("second row did not wrap to (62, 0)")
	}
	if n := pixelsSet(m); n != 9 {
		t.Errorf("%d pixels set, want 9", n)
	}
}

func TestDrawSpriteCoordinatesWrap(t *testing.T) {
	m := New(Config{})
	m.index = 0x300
	m.memory[0x300] = 0x80
	m.registers[1] = 64 + 3
	m.registers[2] = 32 + 2

	exec(t, m, 0xD121)

	if m.gfx[3+2*ScreenWidth] != 1 || pixelsSet(m) != 1 {
		t.Errorf("sprite not drawn at (3, 2)")
	}
}

func TestDrawSpriteCollision(t *testing.T) {
	m := New(Config{})
	m.index = 0x300
	m.memory[0x300] = 0x80

	exec(t, m, 0xD001)
	exec(t, m, 0xD001)
	if m.registers[flag] != 1 {
		t.Errorf("vf = %d after erasing a pixel", m.registers[flag])
	}
	if m.gfx[0] != 0 {
		t.Errorf("pixel not erased")
	}

	exec(t, m, 0xD001)
	if m.registers[flag] != 0 {
		t.Errorf("vf = %d after drawing onto a blank pixel", m.registers[flag])
	}
}

func TestDrawSpriteReadsWrappedMemory(t *testing.T) {
	m := New(Config{})
	m.index = 0x0FFF
	m.memory[0xFFF] = 0x80
	// memory[0x000] is the first font row: 0xF0

	exec(t, m, 0xD002)

	if m.gfx[0] != 1 || m.gfx[ScreenWidth] != 1 || m.gfx[ScreenWidth+3] != 1 {
		t.Errorf("sprite rows not read across the end of memory")
	}
}

func TestDrawTwiceClearsFullFrame(t *testing.T) {
	m := New(Config{})
	exec(t, m, 0x00E0)

	m.index = 0x300
	for i := uint16(0); i < 15; i++ {
		m.memory[0x300+i] = uint8(0x5A ^ i*37)
	}

	drawFrame := func() {
		for y := 0; y < ScreenHeight; y += 15 {
			for x := 0; x < ScreenWidth; x += 8 {
				m.registers[1] = uint8(x)
				m.registers[2] = uint8(y)
				exec(t, m, 0xD12F)
			}
		}
	}

	drawFrame()
	if pixelsSet(m) == 0 {
		t.Fatalf("nothing drawn")
	}

	drawFrame()
	if diff := cmp.Diff([ScreenWidth * ScreenHeight]uint8{}, m.gfx); diff != "" {
		t.Errorf("framebuffer not cleared: (-want, +got)\n%s", diff)
	}
}

func TestClearScreen(t *testing.T) {
	m := New(Config{})
	for i := range m.gfx {
		m.gfx[i] = 1
	}

	fx := exec(t, m, 0x00E0)

	if !fx.draw {
		t.Errorf("cls did not request a draw")
	}
	if pixelsSet(m) != 0 {
		t.Errorf("framebuffer not cleared")
	}
}
