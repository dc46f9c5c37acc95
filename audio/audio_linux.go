//go:build linux

package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const (
	// software gain on top of the 3x stream volume; pulse sources are quiet
	// compared to what the recognizers expect
	captureGain    = 8
	captureVolume  = 3
	captureLatency = 0.05 // seconds
	defaultSink    = "@DEFAULT_SINK@"
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("handy"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(config.SampleRate)),
		pulse.RecordLatency(captureLatency),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm) * captureVolume}
		}),
	}
	if device != nil {
		source, err := p.client.SourceByID(device.ID)
		if err != nil {
			return nil, fmt.Errorf("pulse source %q: %w", device.Name, err)
		}
		opts = append(opts, pulse.RecordSource(source))
	}
	return &pulseCapture{client: p.client, opts: opts}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client *pulse.Client
	opts   []pulse.RecordOption
	cb     callbackSlot

	mu     sync.Mutex
	stream *pulse.RecordStream
}

func (c *pulseCapture) write(buf []int16) (int, error) {
	if len(buf) > 0 {
		c.cb.deliver(amplify(buf, captureGain), uint32(len(buf)))
	}
	return len(buf), nil
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}
	stream, err := c.client.NewRecord(pulse.Int16Writer(c.write), c.opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	c.stream = stream
	return nil
}

// Stop ends the stream. Once it returns no more data is delivered.
func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream.Close()
	c.stream = nil
}

func (c *pulseCapture) Close() { c.Stop() }

func (c *pulseCapture) SetCallback(cb DataCallback) { c.cb.set(cb) }
func (c *pulseCapture) ClearCallback()              { c.cb.clear() }

// NewMuter mutes the default pulse sink. Other contexts get a no-op.
func NewMuter(ctx Context) Muter {
	if p, ok := ctx.(*pulseContext); ok {
		return sinkMuter{client: p.client}
	}
	return nopMuter{}
}

type sinkMuter struct {
	client *pulse.Client
}

func (m sinkMuter) SetOutputMute(mute bool) error {
	req := &proto.SetSinkMute{SinkIndex: proto.Undefined, SinkName: defaultSink, Mute: mute}
	if err := m.client.RawRequest(req, nil); err != nil {
		return fmt.Errorf("pulse set sink mute: %w", err)
	}
	return nil
}
