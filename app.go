package main

import (
	"net/http"

	"handy/action"
	"handy/finalize"
	"handy/recording"
	"handy/secret"
	"handy/settings"
	"handy/transcriber"
)

const appName = "handy"

// appDeps are the collaborators that differ between the live loop, the
// headless test mode and tests.
type appDeps struct {
	Settings  *settings.Store
	Keys      *secret.Cache
	Capture   recording.Capture
	Feedback  recording.Feedback
	Presenter action.Presenter
	Delivery  action.Deliverer
	History   action.History
	UI        action.UIExecutor

	// Local defaults to the whisper.cpp CLI from settings.
	Local       transcriber.Recognizer
	HTTPClient  *http.Client
	DeepgramURL string
}

type app struct {
	settings   *settings.Store
	router     *transcriber.Router
	transcribe *action.Transcribe
	dispatcher *action.Dispatcher
}

func newApp(d appDeps) *app {
	s := d.Settings.Snapshot()

	local := d.Local
	if local == nil {
		w := transcriber.NewWhisperCLI(s.Whisper.Binary, s.Whisper.Model, s.Language())
		w.Threads = s.Whisper.Threads
		local = w
	}
	router := transcriber.NewRouter(transcriber.Config{
		Local:       local,
		Keys:        d.Keys,
		HTTPClient:  d.HTTPClient,
		DeepgramURL: d.DeepgramURL,
	})

	tr := action.NewTranscribe(action.Deps{
		Settings:  d.Settings,
		Sequencer: recording.New(d.Capture, d.Feedback, recording.DefaultSettle),
		Router:    router,
		Finalizer: finalize.New(finalize.OpenCC, finalize.NewOpenAI(), d.Keys),
		Presenter: d.Presenter,
		History:   d.History,
		Delivery:  d.Delivery,
		UI:        d.UI,
	})

	return &app{
		settings:   d.Settings,
		router:     router,
		transcribe: tr,
		dispatcher: action.NewDispatcher(map[string]action.Action{
			"transcribe": tr,
			"test":       action.Test{App: appName},
		}),
	}
}

// uiExecutor is the platform UI context owned by the process.
type uiExecutor interface {
	action.UIExecutor
	Close()
}
