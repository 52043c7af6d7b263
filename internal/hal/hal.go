package hal

import (
	"fmt"
	"log/slog"
	"time"
	"unsafe"

	"github.com/kapitanov/chip8interp/internal/audio"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DefaultScale      = 16
	DefaultCycleDelay = 1200 * time.Microsecond
)

type Options struct {
	Scale      int           // window pixels per CHIP-8 pixel
	CycleDelay time.Duration // sleep between cycles
	Mute       bool
}

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	audioDevice sdl.AudioDeviceID
	tone        []byte
	cycleDelay  time.Duration
}

var _ vm.HAL = (*HAL)(nil)

// undo collects cleanup steps for a partially built HAL.
type undo []func()

func (u *undo) push(fn func()) { *u = append(*u, fn) }

// run calls the steps in reverse order of push.
func (u undo) run() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

func New(opts Options) (_ *HAL, err error) {
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	var cleanup undo
	defer func() {
		if err != nil {
			cleanup.run()
		}
	}()
	cleanup.push(sdl.Quit)

	windowWidth := int32(vm.ScreenWidth * opts.Scale)
	windowHeight := int32(vm.ScreenHeight * opts.Scale)

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, windowWidth, windowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	cleanup.push(func() { destroy("window", window.Destroy) })
	slog.Debug("hal: create window", "width", windowWidth, "height", windowHeight)
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	cleanup.push(func() { destroy("renderer", renderer.Destroy) })
	err = renderer.SetLogicalSize(windowWidth, windowHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	cleanup.push(func() { destroy("texture", texture.Destroy) })
	slog.Debug("hal: create texture")

	hal := &HAL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
		cycleDelay:      opts.CycleDelay,
	}

	if !opts.Mute {
		if err := hal.openAudio(); err != nil {
			// A missing sound card should not stop the game.
			slog.Error("failed to open sdl audio device", "err", err)
		}
	}

	return hal, nil
}

func (hal *HAL) openAudio() error {
	desired := &sdl.AudioSpec{
		Freq:     audio.SampleRate,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	dev, err := sdl.OpenAudioDevice("", false, desired, nil, 0)
	if err != nil {
		return err
	}
	sdl.PauseAudioDevice(dev, false)
	slog.Debug("hal: open audio device", "id", dev)

	hal.audioDevice = dev
	hal.tone = audio.Tone()
	return nil
}

func (hal *HAL) Shutdown() {
	if hal.audioDevice != 0 {
		sdl.CloseAudioDevice(hal.audioDevice)
	}

	destroy("texture", hal.texture.Destroy)
	destroy("renderer", hal.renderer.Destroy)
	destroy("window", hal.window.Destroy)
	sdl.Quit()
}

func destroy(what string, fn func() error) {
	if err := fn(); err != nil {
		slog.Error("failed to destroy sdl "+what, "err", err)
	}
}

func (hal *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return vm.ErrQuit
		case sdl.KEYDOWN:
			err := hal.processKeyDown(e.(*sdl.KeyboardEvent), keyDown)
			if err != nil {
				return err
			}

		case sdl.KEYUP:
			hal.processKeyUp(e.(*sdl.KeyboardEvent), keyUp)
		}
	}

	return nil
}

func (hal *HAL) processKeyDown(e *sdl.KeyboardEvent, callback func(vm.Key)) error {
	switch e.Keysym.Scancode {
	case sdl.SCANCODE_BACKSPACE:
		return vm.ErrReboot
	case sdl.SCANCODE_ESCAPE:
		return vm.ErrQuit
	}

	key, ok := keyMap(e.Keysym.Scancode)
	if ok {
		callback(key)
	}

	return nil
}

func (hal *HAL) processKeyUp(e *sdl.KeyboardEvent, callback func(vm.Key)) {
	key, ok := keyMap(e.Keysym.Scancode)
	if ok {
		callback(key)
	}
}

func keyMap(code sdl.Scancode) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

const (
	bgColor = uint32(0x000000)
	fgColor = uint32(0xbea700)
)

// fillBackBuffer converts the framebuffer into ARGB pixels.
func fillBackBuffer(dst []uint32, gfx []uint8) {
	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			i := x + y*vm.ScreenWidth

			color := bgColor
			if gfx[i] != 0 {
				color = fgColor
			}

			dst[i] = color
		}
	}
}

func (hal *HAL) Draw(gfx []uint8) error {
	fillBackBuffer(hal.backBuffer, gfx)

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

func (hal *HAL) Beep() error {
	if hal.audioDevice == 0 {
		return nil
	}

	sdl.ClearQueuedAudio(hal.audioDevice)
	if err := sdl.QueueAudio(hal.audioDevice, hal.tone); err != nil {
		return fmt.Errorf("failed to queue sdl audio: %w", err)
	}
	return nil
}

func (hal *HAL) WaitForNextFrame() error {
	time.Sleep(hal.cycleDelay)
	return nil
}
