package recording

import (
	"sync"
)

// Events records calls from FakeCapture and FakeFeedback in order.
type Events struct {
	mu  sync.Mutex
	log []string
}

func (e *Events) add(ev string) {
	e.mu.Lock()
	e.log = append(e.log, ev)
	e.mu.Unlock()
}

func (e *Events) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

// FakeCapture records calls and returns canned samples for one binding.
type FakeCapture struct {
	Events  *Events
	Samples []float32
	// Refuse makes TryStartRecording fail.
	Refuse bool

	mu     sync.Mutex
	active string
}

func (f *FakeCapture) TryStartRecording(binding string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Refuse || f.active != "" {
		f.Events.add("start-refused:" + binding)
		return false
	}
	f.active = binding
	f.Events.add("start:" + binding)
	return true
}

func (f *FakeCapture) StopRecording(binding string) ([]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events.add("stop:" + binding)
	if f.active != binding {
		return nil, false
	}
	f.active = ""
	return f.Samples, f.Samples != nil
}

func (f *FakeCapture) ApplyMute()  { f.Events.add("mute") }
func (f *FakeCapture) RemoveMute() { f.Events.add("unmute") }

type FakeFeedback struct {
	Events *Events
	// Gate, if set, is received from before a blocking sound returns.
	Gate chan struct{}
}

func (f *FakeFeedback) PlayBlocking(s Sound) {
	f.Events.add("play:" + s.String())
	if f.Gate != nil {
		<-f.Gate
	}
}

func (f *FakeFeedback) Play(s Sound) { f.Events.add("play-async:" + s.String()) }
