// Package audio opens capture devices and records per-binding sample
// buffers from them.
package audio

import (
	"encoding/binary"
	"math"
	"strings"
	"sync/atomic"
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives little-endian int16 mono frames.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// callbackSlot holds the current DataCallback. Device threads read it
// without locking.
type callbackSlot struct {
	p atomic.Pointer[DataCallback]
}

func (s *callbackSlot) set(cb DataCallback) { s.p.Store(&cb) }
func (s *callbackSlot) clear()              { s.p.Store(nil) }

// deliver passes data to the callback, if any, and reports whether one was
// set.
func (s *callbackSlot) deliver(data []byte, frames uint32) bool {
	cb := s.p.Load()
	if cb == nil {
		return false
	}
	(*cb)(data, frames)
	return true
}

// amplify scales samples by gain with clipping and encodes them as
// little-endian int16.
func amplify(samples []int16, gain int32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := min(max(int32(s)*gain, math.MinInt16), math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
