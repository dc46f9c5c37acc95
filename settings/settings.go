// Package settings holds the user configuration as an immutable snapshot.
// Every operation reads one Snapshot at its start and never observes a
// change partway through.
package settings

import (
	"strings"
	"sync/atomic"
)

type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderOpenAI   Provider = "openai"
	ProviderDeepgram Provider = "deepgram"
)

func (p Provider) Remote() bool {
	return p == ProviderOpenAI || p == ProviderDeepgram
}

type MicMode string

const (
	MicOnDemand MicMode = "on_demand"
	MicAlwaysOn MicMode = "always_on"
)

type UsageMode string

const (
	UsageOwnKeys UsageMode = "own_keys"
	UsageManaged UsageMode = "managed"
)

// LLMProvider is an OpenAI-compatible chat endpoint used for rewriting.
type LLMProvider struct {
	ID      string `mapstructure:"id"`
	Label   string `mapstructure:"label"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

type Prompt struct {
	ID     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	Prompt string `mapstructure:"prompt"`
}

type PostProcess struct {
	Enabled          bool              `mapstructure:"enabled"`
	ProviderID       string            `mapstructure:"provider_id"`
	Providers        []LLMProvider     `mapstructure:"providers" validate:"dive"`
	Models           map[string]string `mapstructure:"models"`
	APIKeys          map[string]string `mapstructure:"api_keys"`
	Prompts          []Prompt          `mapstructure:"prompts"`
	SelectedPromptID string            `mapstructure:"selected_prompt_id"`
}

// Whisper configures the local whisper.cpp recognizer.
type Whisper struct {
	Binary  string `mapstructure:"binary"`
	Model   string `mapstructure:"model"`
	Threads int    `mapstructure:"threads" validate:"gte=0"`
}

type Settings struct {
	Provider         Provider    `mapstructure:"provider" validate:"oneof=local openai deepgram"`
	APIBaseURL       string      `mapstructure:"api_base_url" validate:"omitempty,url"`
	AuthToken        string      `mapstructure:"auth_token"`
	DeepgramAPIKey   string      `mapstructure:"deepgram_api_key"`
	DeepgramModel    string      `mapstructure:"deepgram_model"`
	SelectedModel    string      `mapstructure:"selected_model"`
	SelectedLanguage string      `mapstructure:"selected_language"`
	MicMode          MicMode     `mapstructure:"mic_mode" validate:"oneof=on_demand always_on"`
	AudioFeedback    bool        `mapstructure:"audio_feedback"`
	SecureKeyStorage bool        `mapstructure:"secure_key_storage"`
	UsageMode        UsageMode   `mapstructure:"usage_mode" validate:"oneof=own_keys managed"`
	PostProcess      PostProcess `mapstructure:"post_process"`
	Whisper          Whisper     `mapstructure:"whisper"`
	// HistoryEnabled keeps transcriptions and their audio in the history store.
	HistoryEnabled   bool `mapstructure:"history_enabled"`
	RestoreClipboard bool `mapstructure:"restore_clipboard"`
}

func Default() Settings {
	return Settings{
		Provider:         ProviderLocal,
		SelectedLanguage: "auto",
		MicMode:          MicOnDemand,
		AudioFeedback:    true,
		UsageMode:        UsageOwnKeys,
		Whisper:          Whisper{Binary: "whisper-cli"},
		HistoryEnabled:   true,
		RestoreClipboard: true,
		PostProcess: PostProcess{
			Providers: []LLMProvider{
				{ID: "openai", Label: "OpenAI", BaseURL: "https://api.openai.com/v1"},
			},
			Prompts: []Prompt{
				{ID: "default_improve_transcriptions", Name: "Improve transcriptions", Prompt: defaultPrompt},
			},
		},
	}
}

const defaultPrompt = `Clean this transcript:
1. Fix spelling, capitalization, and punctuation errors
2. Convert number words to digits
3. Remove filler words (um, uh, like)
4. Keep the language in the original version

Return only the cleaned transcript.

Transcript:
${output}`

// ActivePostProcessProvider returns the selected rewrite provider.
func (s Settings) ActivePostProcessProvider() (LLMProvider, bool) {
	for _, p := range s.PostProcess.Providers {
		if p.ID == s.PostProcess.ProviderID {
			return p, true
		}
	}
	return LLMProvider{}, false
}

func (s Settings) SelectedPrompt() (Prompt, bool) {
	if s.PostProcess.SelectedPromptID == "" {
		return Prompt{}, false
	}
	for _, p := range s.PostProcess.Prompts {
		if p.ID == s.PostProcess.SelectedPromptID {
			return p, true
		}
	}
	return Prompt{}, false
}

// Language returns the selected language or "" for auto detection.
func (s Settings) Language() string {
	if s.SelectedLanguage == "auto" {
		return ""
	}
	return s.SelectedLanguage
}

func (s Settings) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
}

// Clone returns a deep copy so the snapshot shares no maps or slices with s.
func (s Settings) Clone() Settings {
	c := s
	pp := &c.PostProcess
	pp.Providers = append([]LLMProvider(nil), s.PostProcess.Providers...)
	pp.Prompts = append([]Prompt(nil), s.PostProcess.Prompts...)
	pp.Models = cloneMap(s.PostProcess.Models)
	pp.APIKeys = cloneMap(s.PostProcess.APIKeys)
	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds the current settings. Readers get a private copy.
type Store struct {
	cur atomic.Pointer[Settings]
}

func NewStore(s Settings) *Store {
	st := &Store{}
	c := s.Clone()
	st.cur.Store(&c)
	return st
}

func (st *Store) Snapshot() Settings {
	return st.cur.Load().Clone()
}

// Update applies fn to a copy and publishes it. Concurrent updates retry.
func (st *Store) Update(fn func(*Settings)) {
	for {
		old := st.cur.Load()
		next := old.Clone()
		fn(&next)
		if st.cur.CompareAndSwap(old, &next) {
			return
		}
	}
}
