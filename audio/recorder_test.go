package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"handy/encoder"
)

func tone(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(float64(i)/10))
	}
	return s
}

func TestRecorderCapturesLoadedAudio(t *testing.T) {
	ctx := NewFakeContext(false)
	ctx.LoadSamples(tone(3000))
	r := NewRecorder(ctx, nil, nil)

	if !r.TryStartRecording("transcribe") {
		t.Fatal("TryStartRecording returned false")
	}
	samples, ok := r.StopRecording("transcribe")
	if !ok {
		t.Fatal("StopRecording returned false")
	}
	if len(samples) != 3000 {
		t.Fatalf("got %d samples, want 3000", len(samples))
	}
	want := encoder.Float32(encoder.PCM16(tone(3000)))
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestRecorderOneActiveBinding(t *testing.T) {
	r := NewRecorder(NewFakeContext(false), nil, nil)

	if !r.TryStartRecording("a") {
		t.Fatal("first start failed")
	}
	if r.TryStartRecording("b") {
		t.Error("second binding started while a is recording")
	}
	if r.TryStartRecording("a") {
		t.Error("repeated start for the same binding should be refused")
	}
	if _, ok := r.StopRecording("b"); ok {
		t.Error("StopRecording for an inactive binding should report false")
	}
	if _, ok := r.StopRecording("a"); !ok {
		t.Error("StopRecording for the active binding should report true")
	}
	if !r.TryStartRecording("b") {
		t.Error("b should start once a has stopped")
	}
}

func TestRecorderAlwaysOnKeepsStreamOpen(t *testing.T) {
	ctx := NewFakeContext(false)
	r := NewRecorder(ctx, nil, nil)
	if err := r.SetAlwaysOn(true); err != nil {
		t.Fatal(err)
	}
	first := r.capture
	if first == nil {
		t.Fatal("always-on should open the stream immediately")
	}

	r.TryStartRecording("a")
	r.StopRecording("a")
	if r.capture != first {
		t.Error("stream was reopened between recordings")
	}

	if err := r.SetAlwaysOn(false); err != nil {
		t.Fatal(err)
	}
	if r.capture != nil {
		t.Error("idle stream should close when always-on is turned off")
	}
}

func TestRecorderIgnoresAudioWhileIdle(t *testing.T) {
	r := NewRecorder(NewFakeContext(false), nil, nil)
	r.onData([]byte{1, 0, 2, 0}, 2)
	r.TryStartRecording("a")
	samples, _ := r.StopRecording("a")
	if len(samples) != 0 {
		t.Errorf("got %d samples captured while idle", len(samples))
	}
}

func TestRecorderMute(t *testing.T) {
	m := &FakeMuter{}
	r := NewRecorder(NewFakeContext(false), nil, m)
	r.ApplyMute()
	if !m.Muted {
		t.Error("ApplyMute did not mute")
	}
	r.RemoveMute()
	if m.Muted || m.Calls != 2 {
		t.Errorf("muted=%v calls=%d", m.Muted, m.Calls)
	}
}

func TestFakeContextLoadWAV(t *testing.T) {
	data, err := encoder.WAV(tone(1600))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	ctx := NewFakeContext(true)
	if err := ctx.Load(path); err != nil {
		t.Fatal(err)
	}
	r := NewRecorder(ctx, nil, nil)
	r.TryStartRecording("a")
	samples, ok := r.StopRecording("a")
	if !ok {
		t.Fatal("StopRecording returned false")
	}
	if len(samples) > 1600 {
		t.Errorf("got %d samples, want at most 1600", len(samples))
	}
}

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM4", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Headset (BT)", true},
	} {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
