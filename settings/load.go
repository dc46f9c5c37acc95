package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "HANDY"

// DefaultPath returns <user config dir>/handy/settings.yaml.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "handy", "settings.yaml"), nil
}

// Load reads .env from envFile (optional), then the YAML file at path
// (optional), then HANDY_* environment overrides.
func Load(path, envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Settings{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("deepgram_api_key", envPrefix+"_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if s.PostProcess.APIKeys == nil {
			s.PostProcess.APIKeys = make(map[string]string)
		}
		if s.PostProcess.APIKeys["openai"] == "" {
			s.PostProcess.APIKeys["openai"] = key
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("provider", string(d.Provider))
	v.SetDefault("api_base_url", d.APIBaseURL)
	v.SetDefault("auth_token", d.AuthToken)
	v.SetDefault("deepgram_api_key", d.DeepgramAPIKey)
	v.SetDefault("deepgram_model", d.DeepgramModel)
	v.SetDefault("selected_model", d.SelectedModel)
	v.SetDefault("selected_language", d.SelectedLanguage)
	v.SetDefault("mic_mode", string(d.MicMode))
	v.SetDefault("audio_feedback", d.AudioFeedback)
	v.SetDefault("secure_key_storage", d.SecureKeyStorage)
	v.SetDefault("usage_mode", string(d.UsageMode))
	v.SetDefault("whisper.binary", d.Whisper.Binary)
	v.SetDefault("whisper.model", d.Whisper.Model)
	v.SetDefault("whisper.threads", d.Whisper.Threads)
	v.SetDefault("history_enabled", d.HistoryEnabled)
	v.SetDefault("restore_clipboard", d.RestoreClipboard)
	v.SetDefault("post_process.enabled", d.PostProcess.Enabled)
	v.SetDefault("post_process.provider_id", d.PostProcess.ProviderID)
	v.SetDefault("post_process.selected_prompt_id", d.PostProcess.SelectedPromptID)
	v.SetDefault("post_process.providers", toMaps(d.PostProcess.Providers, func(p LLMProvider) map[string]any {
		return map[string]any{"id": p.ID, "label": p.Label, "base_url": p.BaseURL}
	}))
	v.SetDefault("post_process.prompts", toMaps(d.PostProcess.Prompts, func(p Prompt) map[string]any {
		return map[string]any{"id": p.ID, "name": p.Name, "prompt": p.Prompt}
	}))
}

func toMaps[T any](in []T, fn func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report keys as they appear in settings.yaml.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks enumerated fields and URLs. All violations are reported
// together, keyed by their dotted settings path.
func (s Settings) Validate() error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate settings: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldPath(e.Namespace())+": "+describe(e))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", e.Value())
	case "oneof":
		return fmt.Sprintf("unknown value %q (want one of: %s)", e.Value(), e.Param())
	case "gte":
		return "must be at least " + e.Param()
	default:
		return "is invalid"
	}
}
