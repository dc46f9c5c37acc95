package encoder

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

func sine(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

// decodeFLAC returns the header sample count and the decoded samples.
func decodeFLAC(t *testing.T, data []byte) (uint64, []int16) {
	t.Helper()
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New: %v", err)
	}
	defer stream.Close()

	var out []int16
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		for _, s := range f.Subframes[0].Samples {
			out = append(out, int16(s))
		}
	}
	return stream.Info.NSamples, out
}

func TestFLACRoundTrip(t *testing.T) {
	for _, n := range []int{100, BlockSize / 4, BlockSize, BlockSize*2 + 100} {
		in := sine(n)
		data, err := FLAC(in)
		if err != nil {
			t.Fatalf("n=%d: FLAC: %v", n, err)
		}
		if string(data[:4]) != "fLaC" {
			t.Fatalf("n=%d: missing FLAC magic", n)
		}

		total, got := decodeFLAC(t, data)
		if total != uint64(n) {
			t.Errorf("n=%d: header NSamples = %d", n, total)
		}
		want := PCM16(in)
		if len(got) != len(want) {
			t.Fatalf("n=%d: decoded %d samples, want %d", n, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: sample %d = %d, want %d", n, i, got[i], want[i])
			}
		}
	}
}

func TestFLACEmpty(t *testing.T) {
	data, err := FLAC(nil)
	if err != nil {
		t.Fatalf("FLAC: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Error("expected a header even without samples")
	}
}
