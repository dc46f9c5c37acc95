package action

import (
	"context"
	"strings"
	"sync"
	"time"

	"handy/finalize"
	"handy/log"
	"handy/recording"
	"handy/settings"
)

const msgNoAudio = "No audio captured"

type SettingsSource interface {
	Snapshot() settings.Settings
}

// Transcriber turns samples into raw text. *transcriber.Router satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, s settings.Settings, samples []float32) (string, error)
	InitiateModelLoad()
}

// Warmer is optionally implemented by a Transcriber that can pre-open the
// remote connection while the user is still speaking.
type Warmer interface {
	Warm(ctx context.Context, s settings.Settings)
}

type Finalizer interface {
	Finalize(ctx context.Context, s settings.Settings, raw string) finalize.Result
}

type History interface {
	SaveTranscription(ctx context.Context, samples []float32, raw, rewritten, prompt string) error
}

type Deliverer interface {
	Paste(text string) error
}

type Deps struct {
	Settings  SettingsSource
	Sequencer *recording.Sequencer
	Router    Transcriber
	Finalizer Finalizer
	Presenter Presenter
	History   History
	Delivery  Deliverer
	UI        UIExecutor
}

type Transcribe struct {
	d  Deps
	wg sync.WaitGroup
}

func NewTranscribe(d Deps) *Transcribe {
	return &Transcribe{d: d}
}

func (t *Transcribe) Start(binding, shortcut string) {
	s := t.d.Settings.Snapshot()
	log.Debugf("transcribe start: binding=%s shortcut=%s", binding, shortcut)

	if s.Provider == settings.ProviderLocal {
		t.d.Router.InitiateModelLoad()
	} else if w, ok := t.d.Router.(Warmer); ok {
		go w.Warm(context.Background(), s)
	}

	t.d.Presenter.SetTrayState(TrayRecording)
	t.d.Presenter.ShowOverlay(OverlayRecording)
	t.d.Sequencer.Start(s, binding)
}

func (t *Transcribe) Stop(binding, shortcut string) {
	s := t.d.Settings.Snapshot()
	log.Debugf("transcribe stop: binding=%s shortcut=%s", binding, shortcut)

	t.d.Presenter.SetTrayState(TrayTranscribing)
	t.d.Presenter.ShowOverlay(OverlayTranscribing)
	t.d.Sequencer.Stop(s)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.process(context.Background(), s, binding)
	}()
}

// Wait blocks until every spawned stop task has finished.
func (t *Transcribe) Wait() {
	t.wg.Wait()
}

func (t *Transcribe) process(ctx context.Context, s settings.Settings, binding string) {
	reset := sync.OnceFunc(func() {
		t.d.Presenter.HideOverlay()
		t.d.Presenter.SetTrayState(TrayIdle)
	})
	defer reset()

	samples, ok := t.d.Sequencer.Collect(binding)
	if !ok {
		log.Warn("no samples retrieved from recording")
		t.d.Presenter.EmitOverlayError(msgNoAudio)
		return
	}

	start := time.Now()
	raw, err := t.d.Router.Transcribe(ctx, s, samples)
	if err != nil {
		log.Errorf("transcription via %s failed: %v", s.Provider, err)
		t.d.Presenter.EmitOverlayError(err.Error())
		return
	}
	log.Debugf("transcription finished in %s: %d chars", time.Since(start), len(raw))

	res := t.d.Finalizer.Finalize(ctx, s, raw)
	if strings.TrimSpace(res.Text) == "" {
		log.Debugf("empty result for %q, nothing to paste", binding)
		return
	}
	log.TranscriptionText(res.Text)

	if t.d.History != nil {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			if err := t.d.History.SaveTranscription(ctx, samples, raw, res.Rewritten, res.Prompt); err != nil {
				log.Errorf("failed to save transcription to history: %v", err)
			}
		}()
	}

	err = t.d.UI.Run(func() {
		pasteStart := time.Now()
		perr := t.d.Delivery.Paste(res.Text)
		log.Paste(len(res.Text), time.Since(pasteStart), perr)
		if perr != nil {
			log.Errorf("failed to paste transcription: %v", perr)
		}
		reset()
	})
	if err != nil {
		log.Errorf("failed to run paste on the ui thread: %v", err)
	}
}
