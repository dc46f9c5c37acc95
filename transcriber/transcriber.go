// Package transcriber routes a recording to the local recognizer or to a
// remote transcription service.
package transcriber

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"handy/encoder"
	"handy/log"
	"handy/settings"
)

const DeepgramURL = "https://api.deepgram.com/v1/listen"

const msgNoBaseURL = "Remote transcription selected but no API base URL is configured in settings"

// Recognizer is the local speech recognition engine.
type Recognizer interface {
	// InitiateModelLoad starts loading the model in the background.
	InitiateModelLoad()
	Transcribe(samples []float32) (string, error)
}

// KeySource resolves API keys kept in secure storage.
type KeySource interface {
	Fetch(provider string) (string, bool)
}

type Config struct {
	Local       Recognizer
	Keys        KeySource
	HTTPClient  *http.Client
	DeepgramURL string
}

type Router struct {
	local       Recognizer
	keys        KeySource
	client      *TracedClient
	deepgramURL string
}

func NewRouter(cfg Config) *Router {
	r := &Router{
		local:       cfg.Local,
		keys:        cfg.Keys,
		client:      NewTracedClient(cfg.HTTPClient),
		deepgramURL: cfg.DeepgramURL,
	}
	if r.deepgramURL == "" {
		r.deepgramURL = DeepgramURL
	}
	return r
}

func (r *Router) Transcribe(ctx context.Context, s settings.Settings, samples []float32) (string, error) {
	if s.Provider == settings.ProviderLocal {
		return r.transcribeLocal(samples)
	}
	return r.transcribeRemote(ctx, s, samples)
}

// InitiateModelLoad forwards to the local recognizer, if any.
func (r *Router) InitiateModelLoad() {
	if r.local != nil {
		r.local.InitiateModelLoad()
	}
}

func (r *Router) transcribeLocal(samples []float32) (string, error) {
	if r.local == nil {
		return "", &Error{Kind: KindLocal, Msg: "Local transcription engine is not configured"}
	}
	start := time.Now()
	text, err := r.local.Transcribe(samples)
	if err != nil {
		return "", &Error{Kind: KindLocal, Msg: err.Error(), Err: err}
	}
	log.Transcription("local", "", 0, len(text), time.Since(start))
	return text, nil
}

func (r *Router) transcribeRemote(ctx context.Context, s settings.Settings, samples []float32) (string, error) {
	base := s.BaseURL()
	key, hasKey := "", false
	if s.Provider == settings.ProviderDeepgram {
		key, hasKey = r.deepgramKey(s)
	}
	if base == "" && !hasKey {
		return "", configError(msgNoBaseURL)
	}

	wav, err := encoder.WAV(samples)
	if err != nil {
		return "", &Error{Kind: KindTransport, Msg: "Failed to encode audio: " + err.Error(), Err: err}
	}
	lang := s.Language()

	switch s.Provider {
	case settings.ProviderDeepgram:
		model := DeepgramModel(s)
		if base == "" {
			return r.deepgramDirect(ctx, wav, key, model, lang)
		}
		body := deepgramRequest{
			AudioBlob: dataURI(wav),
			Model:     model,
			Language:  lang,
		}
		if s.UsageMode == settings.UsageOwnKeys && hasKey {
			body.APIKey = key
		}
		return r.postBackend(ctx, base+"/api/transcribe/deepgram", s.AuthToken, body, "deepgram", model)
	case settings.ProviderOpenAI:
		body := unifiedRequest{
			Audio:    dataURI(wav),
			Provider: "openai",
			Model:    s.SelectedModel,
			Language: lang,
		}
		return r.postBackend(ctx, base+"/api/transcribe", s.AuthToken, body, "openai", s.SelectedModel)
	}
	return "", configError("Remote transcription requested while provider is set to " + string(s.Provider))
}

// deepgramKey returns the Deepgram key from secure storage or from settings,
// depending on the storage toggle.
func (r *Router) deepgramKey(s settings.Settings) (string, bool) {
	var key string
	if s.SecureKeyStorage {
		if r.keys == nil {
			return "", false
		}
		key, _ = r.keys.Fetch("deepgram")
	} else {
		key = s.DeepgramAPIKey
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

// DeepgramModel picks the Deepgram model for s. Anything that is not a
// nova or general model falls back to nova-3.
func DeepgramModel(s settings.Settings) string {
	selected := strings.TrimSpace(s.DeepgramModel)
	if selected == "" {
		return "nova-3"
	}
	lowered := strings.ToLower(selected)
	if strings.HasPrefix(lowered, "nova") || strings.HasPrefix(lowered, "general") {
		return selected
	}
	log.Warnf("selected model %q is not a Deepgram model; defaulting to nova-3", selected)
	return "nova-3"
}

// Warm pre-connects to the endpoint s would use.
func (r *Router) Warm(ctx context.Context, s settings.Settings) {
	if !s.Provider.Remote() {
		return
	}
	target := s.BaseURL()
	if target == "" {
		if s.Provider != settings.ProviderDeepgram {
			return
		}
		u, err := url.Parse(r.deepgramURL)
		if err != nil {
			return
		}
		target = u.Scheme + "://" + u.Host
	}
	if d := r.client.Warm(ctx, target); d > 0 {
		log.Debugf("warmed connection to %s (handshake %s)", target, d)
	}
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return strconv.Itoa(code) + " " + t
	}
	return strconv.Itoa(code)
}
