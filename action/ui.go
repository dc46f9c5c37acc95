package action

import (
	"errors"
	"sync"
)

type TrayState int

const (
	TrayIdle TrayState = iota
	TrayRecording
	TrayTranscribing
)

func (s TrayState) String() string {
	switch s {
	case TrayRecording:
		return "recording"
	case TrayTranscribing:
		return "transcribing"
	}
	return "idle"
}

type Overlay int

const (
	OverlayRecording Overlay = iota
	OverlayTranscribing
)

func (o Overlay) String() string {
	if o == OverlayRecording {
		return "recording"
	}
	return "transcribing"
}

// Presenter shows tray and overlay state. Calls are fire-and-forget and
// may come from any goroutine.
type Presenter interface {
	SetTrayState(s TrayState)
	ShowOverlay(o Overlay)
	HideOverlay()
	EmitOverlayError(msg string)
}

// UIExecutor runs fn on the UI-affinity context and waits for it.
type UIExecutor interface {
	Run(fn func()) error
}

var ErrLoopClosed = errors.New("ui loop closed")

// Loop is a UIExecutor backed by one dedicated goroutine.
type Loop struct {
	work chan func()
	done chan struct{}
	once sync.Once
}

func NewLoop() *Loop {
	l := &Loop{work: make(chan func()), done: make(chan struct{})}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.done:
			return
		}
	}
}

func (l *Loop) Run(fn func()) error {
	finished := make(chan struct{})
	select {
	case l.work <- func() { defer close(finished); fn() }:
	case <-l.done:
		return ErrLoopClosed
	}
	<-finished
	return nil
}

func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}
