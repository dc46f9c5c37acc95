package hotkey

import (
	"sync"
	"sync/atomic"
	"time"
)

// Hybrid serves tap-to-toggle and hold-to-talk on one key. Every press
// while idle starts a recording. Held past longPress, the release stops
// it; released sooner, the recording latches until the next full press.
type Hybrid struct {
	startCh chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
	toggle  atomic.Bool
}

func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Start() <-chan struct{} { return h.startCh }

func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current recording was latched by a tap.
func (h *Hybrid) IsToggle() bool { return h.toggle.Load() }

// Close ends the state machine goroutine.
func (h *Hybrid) Close() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hybrid) send(ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hybrid) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		if !h.wait(hk.Keydown()) {
			return
		}
		h.toggle.Store(false)
		if !h.send(h.startCh) {
			return
		}

		timer := time.NewTimer(longPress)
		select {
		case <-h.done:
			timer.Stop()
			return
		case <-timer.C:
			if !h.wait(hk.Keyup()) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			h.toggle.Store(true)
			// latched; the next press ends it on release
			if !h.wait(hk.Keydown()) || !h.wait(hk.Keyup()) {
				return
			}
		}

		h.toggle.Store(false)
		if !h.send(h.stopCh) {
			return
		}
	}
}
