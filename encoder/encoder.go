package encoder

import "math"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// PCM16 converts normalized float samples to 16-bit PCM. Each sample is
// scaled by 32767 and clamped, truncating toward zero.
func PCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * math.MaxInt16
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		out[i] = int16(v)
	}
	return out
}

func Float32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768
	}
	return out
}
