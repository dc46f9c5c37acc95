package transcriber

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"handy/encoder"
	"handy/log"
)

// WhisperCLI runs a whisper.cpp command line binary on a temporary WAV file.
type WhisperCLI struct {
	Binary   string
	Model    string
	Language string
	Threads  int

	loadOnce sync.Once
	loaded   chan struct{}
	loadErr  error
}

func NewWhisperCLI(binary, model, language string) *WhisperCLI {
	if binary == "" {
		binary = "whisper-cli"
	}
	return &WhisperCLI{Binary: binary, Model: model, Language: language}
}

// InitiateModelLoad reads the model file once in the background so the
// first transcription does not pay for a cold page cache.
func (w *WhisperCLI) InitiateModelLoad() {
	w.loadOnce.Do(func() {
		w.loaded = make(chan struct{})
		go func() {
			defer close(w.loaded)
			start := time.Now()
			f, err := os.Open(w.Model)
			if err != nil {
				w.loadErr = fmt.Errorf("open whisper model: %w", err)
				log.Warnf("whisper model preload failed: %v", err)
				return
			}
			defer f.Close()
			n, err := io.Copy(io.Discard, f)
			if err != nil {
				w.loadErr = fmt.Errorf("read whisper model: %w", err)
				log.Warnf("whisper model preload failed: %v", err)
				return
			}
			log.Infof("whisper model preloaded (%d MB in %s)", n>>20, time.Since(start).Round(time.Millisecond))
		}()
	})
}

func (w *WhisperCLI) Transcribe(samples []float32) (string, error) {
	w.InitiateModelLoad()
	<-w.loaded
	if w.loadErr != nil {
		return "", w.loadErr
	}

	wav, err := encoder.WAV(samples)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp("", "handy-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(wav); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write temp wav: %w", err)
	}

	args := []string{"-m", w.Model, "-f", f.Name(), "-nt", "-np"}
	if w.Language != "" && w.Language != "auto" {
		args = append(args, "-l", w.Language)
	}
	if w.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(w.Threads))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(w.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("whisper failed: %s", lastLine(msg))
		}
		return "", fmt.Errorf("whisper failed: %w", err)
	}

	lines := strings.Fields(stdout.String())
	return strings.Join(lines, " "), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
