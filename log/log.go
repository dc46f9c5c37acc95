// Package log writes the diagnostics log (structured zerolog lines) and the
// transcription log (one delivered text per line) under a single directory.
// Every call is a no-op until Init succeeds.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	diagnosticsFile = "diagnostics_log.txt"
	transcribeFile  = "transcribe_log.txt"
	timeFormat      = "2006-01-02 15:04:05"
	envLogPath      = "HANDY_LOG_PATH"
)

var (
	dir   string
	ready atomic.Bool

	mu      sync.Mutex
	diag    zerolog.Logger
	diagOut *os.File
	textOut *os.File
	pid     = os.Getpid()
)

// ResolveDir picks the log directory: the flag, then HANDY_LOG_PATH, then
// the platform default. Relative paths are taken from the working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv(envLogPath)} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	return getDefaultDir()
}

func SetDir(d string) { dir = d }
func Dir() string     { return dir }

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func openAppend(name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	d, err := openAppend(diagnosticsFile)
	if err != nil {
		return err
	}
	t, err := openAppend(transcribeFile)
	if err != nil {
		d.Close()
		return err
	}

	diagOut, textOut = d, t
	diag = zerolog.New(zerolog.ConsoleWriter{Out: d, TimeFormat: timeFormat, NoColor: true}).
		With().Timestamp().Int("pid", pid).Logger()
	ready.Store(true)
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	ready.Store(false)
	for _, f := range []**os.File{&diagOut, &textOut} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
}

// event returns nil before Init; zerolog treats a nil event as disabled.
func event(level zerolog.Level) *zerolog.Event {
	if !ready.Load() {
		return nil
	}
	return diag.WithLevel(level)
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func Debugf(format string, args ...any) { event(zerolog.DebugLevel).Msgf(format, args...) }
func Info(msg string)                   { event(zerolog.InfoLevel).Msg(msg) }
func Infof(format string, args ...any)  { event(zerolog.InfoLevel).Msgf(format, args...) }
func Warn(msg string)                   { event(zerolog.WarnLevel).Msg(msg) }
func Warnf(format string, args ...any)  { event(zerolog.WarnLevel).Msgf(format, args...) }
func Error(msg string)                  { event(zerolog.ErrorLevel).Msg(msg) }
func Errorf(format string, args ...any) { event(zerolog.ErrorLevel).Msgf(format, args...) }

func RecordingStart(binding, micMode string) {
	event(zerolog.InfoLevel).
		Str("binding", binding).
		Str("mic_mode", micMode).
		Msg("recording_start")
}

func RecordingStop(binding string, samples int, elapsed time.Duration) {
	event(zerolog.InfoLevel).
		Str("binding", binding).
		Int("samples", samples).
		Float64("audio_s", float64(samples)/16000).
		Float64("stop_ms", ms(elapsed)).
		Msg("recording_stop")
}

// Transcription records one router call. status is the final HTTP status for
// remote providers and 0 for local.
func Transcription(provider, model string, status int, chars int, elapsed time.Duration) {
	ev := event(zerolog.InfoLevel).
		Str("provider", provider).
		Int("chars", chars).
		Float64("total_ms", ms(elapsed))
	if model != "" {
		ev = ev.Str("model", model)
	}
	if status != 0 {
		ev = ev.Int("status", status)
	}
	ev.Msg("transcription")
}

// Network records the httptrace timings of a remote call.
func Network(provider string, dnsMs, connMs, tlsMs, ttfbMs, totalMs float64, connReused bool) {
	conn := "new"
	if connReused {
		conn = "reused"
	}
	event(zerolog.DebugLevel).
		Str("provider", provider).
		Str("conn", conn).
		Float64("dns_ms", dnsMs).
		Float64("connect_ms", connMs).
		Float64("tls_ms", tlsMs).
		Float64("ttfb_ms", ttfbMs).
		Float64("total_ms", totalMs).
		Msg("network")
}

func Rewrite(kind, provider string, inChars, outChars int) {
	ev := event(zerolog.InfoLevel).
		Str("kind", kind).
		Int("in_chars", inChars).
		Int("out_chars", outChars)
	if provider != "" {
		ev = ev.Str("provider", provider)
	}
	ev.Msg("rewrite")
}

func Paste(chars int, elapsed time.Duration, err error) {
	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
	}
	event(level).Err(err).
		Int("chars", chars).
		Float64("paste_ms", ms(elapsed)).
		Msg("paste")
}

// TranscriptionText appends text to the transcription log.
func TranscriptionText(text string) {
	mu.Lock()
	defer mu.Unlock()
	if textOut == nil {
		return
	}
	fmt.Fprintf(textOut, "%s\t[%d]\t%s\n", time.Now().Format(timeFormat), pid, text)
}

func SessionStart(provider, micMode string) {
	event(zerolog.InfoLevel).
		Str("provider", provider).
		Str("mic_mode", micMode).
		Msg("session_start")
}

func SessionEnd(count int) {
	event(zerolog.InfoLevel).Int("count", count).Msg("session_end")
}
