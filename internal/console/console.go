// Package console runs the machine inside a text terminal.
//
// Two CHIP-8 rows are packed into every character cell with the upper half
// block glyph, so the 64x32 display needs a 64x16 terminal. Terminals only
// report key presses, never releases; a pressed key is held down for a fixed
// number of frames and then released.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kapitanov/chip8interp/internal/audio"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/nsf/termbox-go"
	xterm "golang.org/x/term"
)

const (
	DefaultHoldFrames = 100
	DefaultCycleDelay = 1200 * time.Microsecond

	upperHalfBlock = '▀'
)

var ErrNotATerminal = errors.New("stdout is not a terminal")

type Options struct {
	CycleDelay time.Duration
	HoldFrames int // frames a key stays down after a press
	Mute       bool
}

type HAL struct {
	events     chan termbox.Event
	done       chan struct{} // closed by Shutdown
	stopped    chan struct{} // closed once the event loop has returned
	latch      *keyLatch
	player     *audio.Player
	cycleDelay time.Duration
}

var _ vm.HAL = (*HAL)(nil)

func New(opts Options) (*HAL, error) {
	if !xterm.IsTerminal(int(os.Stdout.Fd())) {
		return nil, ErrNotATerminal
	}

	if opts.HoldFrames <= 0 {
		opts.HoldFrames = DefaultHoldFrames
	}

	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("failed to init termbox: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.SetOutputMode(termbox.Output256)

	hal := &HAL{
		events:     make(chan termbox.Event, 64),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		latch:      newKeyLatch(opts.HoldFrames),
		cycleDelay: opts.CycleDelay,
	}

	if !opts.Mute {
		player, err := audio.NewPlayer()
		if err != nil {
			slog.Error("failed to open audio", "err", err)
		} else {
			hal.player = player
		}
	}

	go hal.forwardEvents(termbox.PollEvent)
	return hal, nil
}

// forwardEvents moves events from poll to ReadInput until poll reports an
// interrupt. Once done is closed, events are dropped instead of queued, so the
// loop always gets back to poll and can receive the interrupt.
func (hal *HAL) forwardEvents(poll func() termbox.Event) {
	defer close(hal.stopped)

	for {
		e := poll()
		if e.Type == termbox.EventInterrupt {
			return
		}

		select {
		case hal.events <- e:
		case <-hal.done:
		}
	}
}

func (hal *HAL) Shutdown() {
	if hal.player != nil {
		if err := hal.player.Close(); err != nil {
			slog.Error("failed to close audio", "err", err)
		}
	}

	close(hal.done)
	termbox.Interrupt()
	<-hal.stopped
	termbox.Close()
}

func (hal *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	hal.latch.tick(keyUp)

	for {
		select {
		case e := <-hal.events:
			if err := hal.processEvent(e, keyDown); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (hal *HAL) processEvent(e termbox.Event, keyDown func(vm.Key)) error {
	switch e.Type {
	case termbox.EventError:
		return fmt.Errorf("terminal input: %w", e.Err)

	case termbox.EventKey:
		switch e.Key {
		case termbox.KeyEsc, termbox.KeyCtrlC:
			slog.Debug("console: exit requested")
			return vm.ErrQuit
		case termbox.KeyBackspace, termbox.KeyBackspace2:
			return vm.ErrReboot
		}

		if key, ok := keyMap(e.Ch); ok {
			hal.latch.press(key, keyDown)
		}
	}

	return nil
}

func keyMap(ch rune) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch ch {
	case 'x', 'X':
		return vm.Key0, true
	case '1':
		return vm.Key1, true
	case '2':
		return vm.Key2, true
	case '3':
		return vm.Key3, true
	case 'q', 'Q':
		return vm.Key4, true
	case 'w', 'W':
		return vm.Key5, true
	case 'e', 'E':
		return vm.Key6, true
	case 'a', 'A':
		return vm.Key7, true
	case 's', 'S':
		return vm.Key8, true
	case 'd', 'D':
		return vm.Key9, true
	case 'z', 'Z':
		return vm.KeyA, true
	case 'c', 'C':
		return vm.KeyB, true
	case '4':
		return vm.KeyC, true
	case 'r', 'R':
		return vm.KeyD, true
	case 'f', 'F':
		return vm.KeyE, true
	case 'v', 'V':
		return vm.KeyF, true
	default:
		return 0, false
	}
}

const (
	bgColor = termbox.ColorBlack
	fgColor = termbox.Attribute(179) // amber in the 256 colour palette
)

// cellColors returns the foreground (upper pixel) and background (lower pixel)
// colours of the terminal cell at column x, cell row row.
func cellColors(gfx []uint8, x, row int) (termbox.Attribute, termbox.Attribute) {
	pixelColor := func(y int) termbox.Attribute {
		if gfx[x+y*vm.ScreenWidth] != 0 {
			return fgColor
		}
		return bgColor
	}

	return pixelColor(2 * row), pixelColor(2*row + 1)
}

func (hal *HAL) Draw(gfx []uint8) error {
	for row := 0; row < vm.ScreenHeight/2; row++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			fg, bg := cellColors(gfx, x, row)
			termbox.SetCell(x, row, upperHalfBlock, fg, bg)
		}
	}

	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("failed to flush terminal: %w", err)
	}
	return nil
}

func (hal *HAL) Beep() error {
	if hal.player == nil {
		return nil
	}
	return hal.player.Beep()
}

func (hal *HAL) WaitForNextFrame() error {
	time.Sleep(hal.cycleDelay)
	return nil
}

// keyLatch emulates key releases for input sources that only report presses.
type keyLatch struct {
	hold    int
	frame   int
	release [vm.KeyCount]int // frame at which the key goes up, 0 when up
}

func newKeyLatch(hold int) *keyLatch {
	return &keyLatch{hold: hold}
}

// press marks key as down, extending the hold of a key that is already down.
func (l *keyLatch) press(key vm.Key, keyDown func(vm.Key)) {
	if l.release[key] == 0 {
		keyDown(key)
	}
	l.release[key] = l.frame + l.hold
}

// tick advances one frame and releases keys whose hold has run out.
func (l *keyLatch) tick(keyUp func(vm.Key)) {
	l.frame++

	for i, until := range l.release {
		if until != 0 && l.frame >= until {
			l.release[i] = 0
			keyUp(vm.Key(i))
		}
	}
}
