// Package audio synthesizes the CHIP-8 buzzer tone and plays it through oto.
package audio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	SampleRate    = 44100
	ToneFrequency = 440
	ToneDuration  = 120 * time.Millisecond
	Volume        = 32

	// Silence is the mid point of unsigned 8-bit PCM.
	Silence = 0x80
)

// SquareWave returns unsigned 8-bit mono PCM of a square wave at freq Hz lasting d.
func SquareWave(sampleRate, freq int, d time.Duration, volume uint8) []byte {
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	period := sampleRate / freq
	if period < 2 {
		period = 2
	}

	samples := make([]byte, n)
	for i := range samples {
		if i%period < period/2 {
			samples[i] = Silence + volume
		} else {
			samples[i] = Silence - volume
		}
	}
	return samples
}

// Tone is the buzzer sample played whenever the sound timer expires.
func Tone() []byte {
	return SquareWave(SampleRate, ToneFrequency, ToneDuration, Volume)
}

// Player plays the buzzer tone on the default audio device.
type Player struct {
	ctx     *oto.Context
	tone    []byte
	current *oto.Player
}

func NewPlayer() (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	<-ready

	return &Player{
		ctx:  ctx,
		tone: Tone(),
	}, nil
}

// Beep starts the tone, cutting off one that is still playing.
func (p *Player) Beep() error {
	if err := p.stop(); err != nil {
		return err
	}

	p.current = p.ctx.NewPlayer(bytes.NewReader(p.tone))
	p.current.Play()
	return nil
}

func (p *Player) Close() error {
	return p.stop()
}

func (p *Player) stop() error {
	if p.current == nil {
		return nil
	}

	err := p.current.Close()
	p.current = nil
	if err != nil {
		return fmt.Errorf("failed to close audio player: %w", err)
	}
	return nil
}
