package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"handy/action"
	"handy/audio"
	"handy/beep"
	"handy/hotkey"
	"handy/log"
	"handy/secret"
	"handy/settings"
	"handy/transcriber"
)

// newTestApp wires the app to a fake microphone, silent feedback and out.
// A nil local uses the configured whisper recognizer.
func newTestApp(out io.Writer, store *settings.Store, keys *secret.Cache, local transcriber.Recognizer) (*app, *audio.FakeContext, func()) {
	w := &lockedWriter{w: out}
	fake := audio.NewFakeContext(false)
	rec := audio.NewRecorder(fake, nil, &audio.FakeMuter{})
	ui := action.NewLoop()

	a := newApp(appDeps{
		Settings:  store,
		Keys:      keys,
		Capture:   rec,
		Feedback:  beep.Silent{},
		Presenter: &logPresenter{out: w},
		Delivery:  &writerDeliverer{out: w},
		UI:        ui,
		Local:     local,
	})
	return a, fake, func() {
		rec.Close()
		ui.Close()
	}
}

func runTestMode(in io.Reader, out io.Writer, store *settings.Store, keys *secret.Cache) error {
	a, fake, cleanup := newTestApp(out, store, keys, nil)
	defer cleanup()

	s := store.Snapshot()
	log.SessionStart(string(s.Provider), string(s.MicMode))
	n, err := runScript(in, out, a, fake)
	log.SessionEnd(n)
	return err
}

// runScript drives the app from a line-based script:
//
//	wav <file>        audio for the next recording
//	start [binding]   press (default binding: transcribe)
//	stop [binding]    release
//	wait              block until pending transcriptions finish
//	sleep <ms>
//	quit
//
// Commands are case-insensitive; '#' starts a comment. It returns the number
// of stop commands dispatched.
func runScript(in io.Reader, out io.Writer, a *app, fake *audio.FakeContext) (int, error) {
	defer a.transcribe.Wait()

	stops := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd := strings.ToLower(fields[0])
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		b := binding
		if arg != "" {
			b = arg
		}

		switch cmd {
		case "wav":
			if err := fake.Load(arg); err != nil {
				return stops, fmt.Errorf("load wav: %w", err)
			}
		case "start":
			if !a.dispatcher.Start(b, hotkey.Shortcut) {
				fmt.Fprintf(out, "UNKNOWN %s\n", b)
			}
		case "stop":
			if a.dispatcher.Stop(b, hotkey.Shortcut) {
				stops++
			} else {
				fmt.Fprintf(out, "UNKNOWN %s\n", b)
			}
		case "wait":
			a.transcribe.Wait()
		case "sleep":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				return stops, fmt.Errorf("sleep: %w", err)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "quit":
			return stops, nil
		default:
			return stops, fmt.Errorf("unknown command %q", fields[0])
		}
	}
	return stops, scanner.Err()
}
