package beep

import (
	"sync"
	"testing"
	"time"

	"handy/recording"
)

type fakeBackend struct {
	mu     sync.Mutex
	played []int
	ch     chan int
}

func (f *fakeBackend) play(samples []int16) {
	f.mu.Lock()
	f.played = append(f.played, len(samples))
	f.mu.Unlock()
	if f.ch != nil {
		f.ch <- len(samples)
	}
}

func TestTickEnvelopeDecays(t *testing.T) {
	s := tick(startFreq, startDuration, startVolume, startDecay)
	if len(s) != int(sampleRate*startDuration) {
		t.Fatalf("len = %d", len(s))
	}
	peak := func(from, to int) int16 {
		var p int16
		for _, v := range s[from:to] {
			if v < 0 {
				v = -v
			}
			p = max(p, v)
		}
		return p
	}
	q := len(s) / 4
	if peak(0, q) <= peak(3*q, len(s)) {
		t.Error("tail should be quieter than the attack")
	}
}

func TestDoubleBeepHasGap(t *testing.T) {
	b := tick(errorFreq, 0.08, errorVolume, errorDecay)
	d := doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	gap := int(sampleRate * 0.05)
	if len(d) != 2*len(b)+gap {
		t.Fatalf("len = %d, want %d", len(d), 2*len(b)+gap)
	}
	for _, v := range d[len(b) : len(b)+gap] {
		if v != 0 {
			t.Fatal("gap is not silent")
		}
	}
}

func TestPlayerSounds(t *testing.T) {
	f := &fakeBackend{ch: make(chan int, 1)}
	p := &Player{out: f}

	p.PlayBlocking(recording.SoundStart)
	<-f.ch
	p.Play(recording.SoundStop)
	select {
	case n := <-f.ch:
		if n != int(sampleRate*stopDuration) {
			t.Errorf("stop sound has %d samples", n)
		}
	case <-time.After(time.Second):
		t.Fatal("async stop sound never played")
	}
}

var _ recording.Feedback = (*Player)(nil)
var _ recording.Feedback = Silent{}
