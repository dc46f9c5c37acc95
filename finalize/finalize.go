// Package finalize turns raw transcription text into the text that gets
// pasted: Chinese script conversion or an LLM rewrite, never both.
package finalize

import (
	"context"
	"strings"
	"sync"

	"handy/log"
	"handy/settings"
)

// Placeholder is replaced with the raw transcription in rewrite prompts.
const Placeholder = "${output}"

// OpenCC configurations for the two Chinese script targets.
const (
	toSimplified  = "tw2sp"
	toTraditional = "s2twp"
)

type Converter interface {
	Convert(text string) (string, error)
}

type ConverterFactory func(config string) (Converter, error)

// Rewriter sends one chat completion to an OpenAI-compatible endpoint.
type Rewriter interface {
	Rewrite(ctx context.Context, provider settings.LLMProvider, apiKey, model, prompt string) (string, error)
}

type KeySource interface {
	Fetch(provider string) (string, bool)
}

// Result is the output of Finalize. Rewritten and Prompt are empty when no
// rewrite was applied; Prompt is also empty for script conversion.
type Result struct {
	Text      string
	Rewritten string
	Prompt    string
}

type Finalizer struct {
	newConverter ConverterFactory
	rewriter     Rewriter
	keys         KeySource

	mu         sync.Mutex
	converters map[string]Converter
}

func New(newConverter ConverterFactory, rewriter Rewriter, keys KeySource) *Finalizer {
	return &Finalizer{
		newConverter: newConverter,
		rewriter:     rewriter,
		keys:         keys,
		converters:   make(map[string]Converter),
	}
}

func (f *Finalizer) Finalize(ctx context.Context, s settings.Settings, raw string) Result {
	var config string
	switch s.SelectedLanguage {
	case "zh-Hans":
		config = toSimplified
	case "zh-Hant":
		config = toTraditional
	}
	if config != "" {
		converted, ok := f.convert(config, raw)
		if !ok {
			return Result{Text: raw}
		}
		log.Rewrite("opencc_"+config, "", len(raw), len(converted))
		return Result{Text: converted, Rewritten: converted}
	}

	if rewritten, prompt, ok := f.rewrite(ctx, s, raw); ok {
		return Result{Text: rewritten, Rewritten: rewritten, Prompt: prompt}
	}
	return Result{Text: raw}
}

func (f *Finalizer) convert(config, raw string) (string, bool) {
	c, err := f.converter(config)
	if err != nil {
		log.Errorf("failed to initialize OpenCC converter %s: %v; falling back to original transcription", config, err)
		return "", false
	}
	out, err := c.Convert(raw)
	if err != nil {
		log.Errorf("OpenCC conversion %s failed: %v; falling back to original transcription", config, err)
		return "", false
	}
	return out, true
}

func (f *Finalizer) converter(config string) (Converter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.converters[config]; ok {
		return c, nil
	}
	if f.newConverter == nil {
		return nil, errNoConverter
	}
	c, err := f.newConverter(config)
	if err != nil {
		return nil, err
	}
	f.converters[config] = c
	return c, nil
}

// rewrite runs the LLM post-processing step when it is enabled and fully
// configured. Any failure is logged and reported as !ok.
func (f *Finalizer) rewrite(ctx context.Context, s settings.Settings, raw string) (string, string, bool) {
	pp := s.PostProcess
	if !pp.Enabled || f.rewriter == nil {
		return "", "", false
	}
	provider, ok := s.ActivePostProcessProvider()
	if !ok {
		log.Debugf("post-processing enabled but no provider is selected")
		return "", "", false
	}
	model := strings.TrimSpace(pp.Models[provider.ID])
	if model == "" {
		log.Debugf("post-processing skipped because provider %q has no model configured", provider.ID)
		return "", "", false
	}
	prompt, ok := s.SelectedPrompt()
	if !ok {
		log.Debugf("post-processing skipped because prompt %q was not found", pp.SelectedPromptID)
		return "", "", false
	}
	if strings.TrimSpace(prompt.Prompt) == "" {
		log.Debugf("post-processing skipped because the selected prompt is empty")
		return "", "", false
	}

	apiKey := pp.APIKeys[provider.ID]
	if s.SecureKeyStorage && f.keys != nil {
		apiKey, _ = f.keys.Fetch(provider.ID)
	}

	content := strings.ReplaceAll(prompt.Prompt, Placeholder, raw)
	out, err := f.rewriter.Rewrite(ctx, provider, apiKey, model, content)
	if err != nil {
		log.Errorf("LLM post-processing failed for provider %q: %v; falling back to original transcription", provider.ID, err)
		return "", "", false
	}
	log.Rewrite("llm", provider.ID, len(raw), len(out))
	return out, prompt.Prompt, true
}
