package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"handy/log"
)

const (
	deepgramTranscriptPath = "results.channels.0.alternatives.0.transcript"
	deepgramDurationPath   = "results.channels.0.alternatives.0.words.@reverse.0.end"
)

// deepgramDirect calls the Deepgram listen API with the user's key. A 403 on
// a nova-3 model is retried once with nova-2; every other failure is final.
func (r *Router) deepgramDirect(ctx context.Context, wav []byte, key, model, lang string) (string, error) {
	models := []string{model}
	if strings.HasPrefix(model, "nova-3") {
		models = append(models, "nova-2")
	}

	var lastErr error
	for _, m := range models {
		text, status, err := r.deepgramOnce(ctx, wav, key, m, lang)
		if err == nil {
			return text, nil
		}
		if status == http.StatusForbidden && strings.HasPrefix(m, "nova-3") {
			log.Warnf("Deepgram denied access to model %q, retrying with nova-2", m)
			lastErr = err
			continue
		}
		return "", err
	}
	return "", lastErr
}

func (r *Router) deepgramOnce(ctx context.Context, wav []byte, key, model, lang string) (string, int, error) {
	u, err := url.Parse(r.deepgramURL)
	if err != nil {
		return "", 0, transportError("Failed to parse Deepgram URL", err)
	}
	q := u.Query()
	q.Set("smart_format", "true")
	if lang != "" {
		q.Set("language", lang)
	}
	q.Set("model", model)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(wav))
	if err != nil {
		return "", 0, transportError("Deepgram request failed", err)
	}
	req.Header.Set("Authorization", "Token "+key)
	req.Header.Set("Content-Type", "audio/wav")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, transportError("Deepgram request failed", err)
	}
	resp.Timings.log("deepgram")

	valid := gjson.ValidBytes(resp.Body)
	if resp.OK() {
		if !valid {
			return "", resp.StatusCode, &Error{Kind: KindTransport, Msg: "Failed to parse Deepgram response JSON"}
		}
		transcript := gjson.GetBytes(resp.Body, deepgramTranscriptPath)
		if !transcript.Exists() || transcript.Type != gjson.String {
			return "", resp.StatusCode, providerError("Deepgram response missing transcript")
		}
		log.Debugf("Deepgram direct transcript length %d, duration %.2fs (model %s, request %s)",
			len(transcript.Str), gjson.GetBytes(resp.Body, deepgramDurationPath).Float(), model,
			firstNonEmpty(resp.Header, "dg-request-id", "X-Request-Id"))
		log.Transcription("deepgram", model, resp.StatusCode, len(transcript.Str), time.Since(start))
		return transcript.Str, resp.StatusCode, nil
	}

	msg := "Unknown Deepgram error"
	if valid {
		for _, field := range []string{"err_msg", "error"} {
			if v := gjson.GetBytes(resp.Body, field); v.Type == gjson.String {
				msg = v.Str
				break
			}
		}
	}
	err = providerError(fmt.Sprintf("Deepgram transcription failed (%s): %s", statusText(resp.StatusCode), msg))
	return "", resp.StatusCode, err
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
