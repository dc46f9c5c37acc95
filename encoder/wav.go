package encoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV encodes samples as a mono 16-bit PCM WAV file at SampleRate.
func WAV(samples []float32) ([]byte, error) {
	pcm := PCM16(samples)
	ints := make([]int, len(pcm))
	for i, s := range pcm {
		ints[i] = int(s)
	}

	var ws writeSeeker
	enc := wav.NewEncoder(&ws, SampleRate, BitsPerSample, Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           ints,
		SourceBitDepth: BitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.buf, nil
}

// DecodeWAV reads a PCM WAV file and returns normalized mono samples.
// Multi-channel input is averaged down to one channel.
func DecodeWAV(r io.ReadSeeker) ([]float32, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	if d.BitDepth == 0 || d.BitDepth > 32 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format.SampleRate != SampleRate {
		return nil, fmt.Errorf("wav sample rate %d Hz, want %d Hz", buf.Format.SampleRate, SampleRate)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	scale := float32(int(1) << (int(d.BitDepth) - 1))
	out := make([]float32, len(buf.Data)/ch)
	for i := range out {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c])
		}
		out[i] = sum / float32(ch) / scale
	}
	return out, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
