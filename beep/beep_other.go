//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"

	"github.com/gen2brain/malgo"

	"handy/log"
)

// malgoBackend keeps one playback device and serialises sounds on it.
type malgoBackend struct {
	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	// guarded by bufMu; read from the device callback
	bufMu sync.Mutex
	buf   []byte
	done  chan struct{}
}

func newBackend() backend {
	b := &malgoBackend{}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: malgo context: %v", err)
		return b
	}
	b.ctx = ctx
	if err := b.initDevice(); err != nil {
		log.Warnf("beep: malgo device: %v", err)
		ctx.Uninit()
		ctx.Free()
		b.ctx = nil
	}
	return b
}

func (b *malgoBackend) initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(b.ctx.Context, config, malgo.DeviceCallbacks{Data: b.fill})
	if err != nil {
		return err
	}
	b.device = dev
	return nil
}

func (b *malgoBackend) fill(out, _ []byte, frameCount uint32) {
	b.bufMu.Lock()
	defer b.bufMu.Unlock()
	want := min(int(frameCount)*2, len(out))
	n := copy(out[:want], b.buf)
	clear(out[n:want])
	b.buf = b.buf[n:]
	if len(b.buf) == 0 && b.done != nil {
		close(b.done)
		b.done = nil
	}
}

func (b *malgoBackend) play(samples []int16) {
	if b.ctx == nil || len(samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	done := make(chan struct{})
	b.bufMu.Lock()
	b.buf = data
	b.done = done
	b.bufMu.Unlock()

	if err := b.device.Start(); err != nil {
		// recreate after sleep/wake
		b.device.Uninit()
		if err := b.initDevice(); err != nil {
			log.Warnf("beep: reinit device: %v", err)
			return
		}
		if err := b.device.Start(); err != nil {
			log.Warnf("beep: start device: %v", err)
			return
		}
	}
	<-done
	b.device.Stop()
}
