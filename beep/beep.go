// Package beep plays the start and stop cues.
package beep

import (
	"math"
	"sync"

	"handy/recording"
)

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq     = 1200
	startVolume   = 0.5
	startDecay    = 60
	startDuration = 0.08

	// Stop beep: medium pitch, slightly longer
	stopFreq     = 900
	stopVolume   = 0.5
	stopDecay    = 40
	stopDuration = 0.1

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// backend plays mono int16 samples at sampleRate and returns when done.
type backend interface {
	play(samples []int16)
}

// Player implements recording.Feedback.
type Player struct {
	out backend

	once   sync.Once
	sounds map[recording.Sound][]int16
	errBuf []int16
}

func New() *Player {
	return &Player{out: newBackend()}
}

func (p *Player) init() {
	p.once.Do(func() {
		p.sounds = map[recording.Sound][]int16{
			recording.SoundStart: tick(startFreq, startDuration, startVolume, startDecay),
			recording.SoundStop:  tick(stopFreq, stopDuration, stopVolume, stopDecay),
		}
		p.errBuf = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	})
}

func (p *Player) PlayBlocking(s recording.Sound) {
	p.init()
	p.out.play(p.sounds[s])
}

func (p *Player) Play(s recording.Sound) {
	go p.PlayBlocking(s)
}

func (p *Player) PlayError() {
	p.init()
	go p.out.play(p.errBuf)
}

// Silent is a recording.Feedback that plays nothing.
type Silent struct{}

func (Silent) PlayBlocking(recording.Sound) {}
func (Silent) Play(recording.Sound)         {}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(b)*2+len(gap))
	result = append(result, b...)
	result = append(result, gap...)
	result = append(result, b...)
	return result
}
