package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"handy/encoder"
)

const fakeFrameSize = 1024

// FakeContext plays back loaded PCM into every capture it opens. Load may
// be called between recordings to swap the audio.
type FakeContext struct {
	realtime bool

	mu  sync.Mutex
	pcm []byte
}

func NewFakeContext(realtime bool) *FakeContext {
	return &FakeContext{realtime: realtime}
}

// Load reads a 16 kHz WAV file as the next audio to feed.
func (f *FakeContext) Load(wavPath string) error {
	file, err := os.Open(wavPath)
	if err != nil {
		return err
	}
	defer file.Close()
	samples, err := encoder.DecodeWAV(file)
	if err != nil {
		return fmt.Errorf("decode %s: %w", wavPath, err)
	}
	f.LoadSamples(samples)
	return nil
}

func (f *FakeContext) LoadSamples(samples []float32) {
	pcm := encoder.PCM16(samples)
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	f.mu.Lock()
	f.pcm = data
	f.mu.Unlock()
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	pcm := f.pcm
	f.mu.Unlock()
	return &FakeCapture{pcm: pcm, realtime: f.realtime}, nil
}

// FakeCapture feeds its PCM to the callback on Start. In realtime mode the
// feed is paced at the capture sample rate on a goroutine.
type FakeCapture struct {
	pcm      []byte
	realtime bool

	cb       callbackSlot
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) { f.cb.set(cb) }
func (f *FakeCapture) ClearCallback()              { f.cb.clear() }

func (f *FakeCapture) feedChunk(pos int) int {
	end := min(pos+fakeFrameSize*2, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	f.cb.deliver(chunk, uint32(len(chunk)/2))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	if !f.realtime {
		for pos := 0; pos < len(f.pcm); {
			pos = f.feedChunk(pos)
		}
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	go func() {
		defer close(f.feedDone)
		for pos := 0; pos < len(f.pcm); {
			pos = f.feedChunk(pos)
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}

// FakeMuter records the last mute state.
type FakeMuter struct {
	mu    sync.Mutex
	Muted bool
	Calls int
}

func (m *FakeMuter) SetOutputMute(mute bool) error {
	m.mu.Lock()
	m.Muted = mute
	m.Calls++
	m.mu.Unlock()
	return nil
}
