//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

// miniaudioContext backs the Recorder on macOS and Windows. One context
// lives for the whole process; the Recorder asks it for a fresh capture
// stream whenever a binding starts (or once, in always-on mode).
type miniaudioContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &miniaudioContext{ctx: ctx}, nil
}

// Devices lists capture endpoints. IDs are the hex form of the miniaudio
// device id so they survive a round trip through --device and the picker.
func (m *miniaudioContext) Devices() ([]DeviceInfo, error) {
	found, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	out := make([]DeviceInfo, len(found))
	for i := range found {
		out[i] = DeviceInfo{ID: hex.EncodeToString(found[i].ID[:]), Name: found[i].Name()}
	}
	return out, nil
}

func streamConfig(device *DeviceInfo, cfg CaptureConfig) (malgo.DeviceConfig, error) {
	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.Capture.Format = malgo.FormatS16
	dc.Capture.Channels = cfg.Channels
	dc.SampleRate = cfg.SampleRate
	if device == nil {
		return dc, nil
	}

	raw, err := hex.DecodeString(device.ID)
	if err != nil {
		return dc, fmt.Errorf("device %q has a malformed id: %w", device.Name, err)
	}
	var id malgo.DeviceID
	copy(id[:], raw)
	dc.Capture.DeviceID = id.Pointer()
	return dc, nil
}

// NewCapture opens a stream on device, or the system default when device is
// nil. Frames go to whatever callback the Recorder has installed; with none
// installed they are dropped.
func (m *miniaudioContext) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	dc, err := streamConfig(device, cfg)
	if err != nil {
		return nil, err
	}

	s := &miniaudioStream{}
	s.device, err = malgo.InitDevice(m.ctx.Context, dc, malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) { s.sink.deliver(in, frames) },
	})
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", err)
	}
	return s, nil
}

func (m *miniaudioContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

// miniaudioStream is a CaptureDevice. The Recorder clears the callback
// before Stop so a late buffer never lands in a finished recording.
type miniaudioStream struct {
	device *malgo.Device
	sink   callbackSlot
}

func (s *miniaudioStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("start capture stream: %w", err)
	}
	return nil
}

func (s *miniaudioStream) Stop()  { s.device.Stop() }
func (s *miniaudioStream) Close() { s.device.Uninit() }

func (s *miniaudioStream) SetCallback(cb DataCallback) { s.sink.set(cb) }
func (s *miniaudioStream) ClearCallback()              { s.sink.clear() }

// NewMuter returns a Muter that does nothing. Output muting during a
// recording is only available through pulse.
func NewMuter(Context) Muter {
	return nopMuter{}
}
