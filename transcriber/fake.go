package transcriber

import (
	"sync"
	"sync/atomic"
)

// FakeRecognizer returns a fixed text or error and counts calls.
type FakeRecognizer struct {
	text  string
	err   error
	loads atomic.Int32

	mu    sync.Mutex
	calls [][]float32
}

func NewFake(text string, err error) *FakeRecognizer {
	return &FakeRecognizer{text: text, err: err}
}

func (f *FakeRecognizer) InitiateModelLoad() { f.loads.Add(1) }

func (f *FakeRecognizer) Transcribe(samples []float32) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, samples)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *FakeRecognizer) Loads() int { return int(f.loads.Load()) }

func (f *FakeRecognizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
