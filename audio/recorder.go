package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"handy/encoder"
	"handy/log"
)

// Muter silences system output while recording.
type Muter interface {
	SetOutputMute(mute bool) error
}

type nopMuter struct{}

func (nopMuter) SetOutputMute(bool) error { return nil }

// Recorder captures audio for one binding at a time. In always-on mode the
// device stays open between recordings; otherwise it is opened on start and
// closed on stop.
type Recorder struct {
	ctx    Context
	device *DeviceInfo
	config CaptureConfig
	muter  Muter

	mu       sync.Mutex
	alwaysOn bool
	capture  CaptureDevice
	active   string

	bufMu     sync.Mutex
	recording bool
	buf       []int16
}

func NewRecorder(ctx Context, device *DeviceInfo, muter Muter) *Recorder {
	if muter == nil {
		muter = nopMuter{}
	}
	return &Recorder{
		ctx:    ctx,
		device: device,
		config: CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels},
		muter:  muter,
	}
}

// SetAlwaysOn opens the stream now and keeps it open, or closes an idle
// stream when turned off.
func (r *Recorder) SetAlwaysOn(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alwaysOn = on
	if on {
		return r.open()
	}
	if r.active == "" {
		r.close()
	}
	return nil
}

func (r *Recorder) open() error {
	if r.capture != nil {
		return nil
	}
	c, err := r.ctx.NewCapture(r.device, r.config)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	c.SetCallback(r.onData)
	if err := c.Start(); err != nil {
		c.Close()
		return fmt.Errorf("start capture: %w", err)
	}
	r.capture = c
	return nil
}

func (r *Recorder) close() {
	if r.capture == nil {
		return
	}
	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()
	r.capture = nil
}

func (r *Recorder) onData(data []byte, frameCount uint32) {
	r.bufMu.Lock()
	defer r.bufMu.Unlock()
	if !r.recording {
		return
	}
	n := min(int(frameCount), len(data)/2)
	for i := 0; i < n; i++ {
		r.buf = append(r.buf, int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
}

func (r *Recorder) TryStartRecording(binding string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != "" {
		log.Debugf("recording already active for %q, ignoring %q", r.active, binding)
		return false
	}

	r.bufMu.Lock()
	r.buf = r.buf[:0]
	r.recording = true
	r.bufMu.Unlock()

	if err := r.open(); err != nil {
		log.Errorf("failed to start recording: %v", err)
		r.bufMu.Lock()
		r.recording = false
		r.bufMu.Unlock()
		return false
	}
	r.active = binding
	return true
}

func (r *Recorder) StopRecording(binding string) ([]float32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != binding {
		return nil, false
	}
	r.active = ""
	if !r.alwaysOn {
		// drain the stream before taking the buffer
		r.close()
	}

	r.bufMu.Lock()
	r.recording = false
	samples := encoder.Float32(r.buf)
	r.buf = r.buf[:0]
	r.bufMu.Unlock()
	return samples, true
}

func (r *Recorder) ApplyMute() {
	if err := r.muter.SetOutputMute(true); err != nil {
		log.Warnf("failed to mute output: %v", err)
	}
}

func (r *Recorder) RemoveMute() {
	if err := r.muter.SetOutputMute(false); err != nil {
		log.Warnf("failed to unmute output: %v", err)
	}
}

// Close releases the device.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.close()
	r.active = ""
}
