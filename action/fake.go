package action

import (
	"context"
	"fmt"
	"sync"
)

// FakePresenter records presentation calls as strings.
type FakePresenter struct {
	mu     sync.Mutex
	events []string
}

func (f *FakePresenter) add(ev string) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *FakePresenter) SetTrayState(s TrayState)    { f.add("tray:" + s.String()) }
func (f *FakePresenter) ShowOverlay(o Overlay)       { f.add("overlay:" + o.String()) }
func (f *FakePresenter) HideOverlay()                { f.add("overlay:hide") }
func (f *FakePresenter) EmitOverlayError(msg string) { f.add("error:" + msg) }

func (f *FakePresenter) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type FakeHistory struct {
	Err error

	mu    sync.Mutex
	saved []string
}

func (f *FakeHistory) SaveTranscription(_ context.Context, samples []float32, raw, rewritten, prompt string) error {
	f.mu.Lock()
	f.saved = append(f.saved, fmt.Sprintf("%d|%s|%s|%s", len(samples), raw, rewritten, prompt))
	f.mu.Unlock()
	return f.Err
}

func (f *FakeHistory) Saved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

type FakeDeliverer struct {
	Err error

	mu     sync.Mutex
	pasted []string
}

func (f *FakeDeliverer) Paste(text string) error {
	f.mu.Lock()
	f.pasted = append(f.pasted, text)
	f.mu.Unlock()
	return f.Err
}

func (f *FakeDeliverer) Pasted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pasted...)
}

// Inline runs fn on the calling goroutine, or returns Err without running it.
type Inline struct {
	Err error
}

func (i Inline) Run(fn func()) error {
	if i.Err != nil {
		return i.Err
	}
	fn()
	return nil
}
