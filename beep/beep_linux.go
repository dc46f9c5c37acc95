//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"handy/log"
)

// pulseBackend keeps one client for the session. Streams are serialized so
// a stop cue never overlaps the tail of a start cue.
type pulseBackend struct {
	mu     sync.Mutex
	client *pulse.Client
}

func newBackend() backend { return &pulseBackend{} }

func (b *pulseBackend) connect() (*pulse.Client, error) {
	if b.client == nil {
		c, err := pulse.NewClient(pulse.ClientApplicationName("handy"))
		if err != nil {
			return nil, err
		}
		b.client = c
	}
	return b.client, nil
}

// sampleReader feeds samples once and then reports end of data.
func sampleReader(samples []int16) pulse.Reader {
	pos := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
}

func (b *pulseBackend) play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.connect()
	if err != nil {
		log.Warnf("beep: pulse client: %v", err)
		return
	}
	stream, err := c.NewPlayback(sampleReader(samples),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		// the server may have restarted; reconnect on the next cue
		log.Warnf("beep: pulse playback: %v", err)
		c.Close()
		b.client = nil
		return
	}
	defer stream.Close()
	stream.Start()
	stream.Drain()
	stream.Stop()
}
