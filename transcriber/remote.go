package transcriber

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"handy/log"
)

type unifiedRequest struct {
	Audio    string `json:"audio"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

type deepgramRequest struct {
	AudioBlob string `json:"audioBlob"`
	APIKey    string `json:"apiKey,omitempty"`
	Model     string `json:"model,omitempty"`
	Language  string `json:"language,omitempty"`
}

type remoteResponse struct {
	Text    *string `json:"text"`
	Success *bool   `json:"success"`
	Error   *string `json:"error"`
}

func dataURI(wav []byte) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
}

// postBackend sends a JSON transcription request to the configured backend
// and interprets its {text, success, error} envelope.
func (r *Router) postBackend(ctx context.Context, endpoint, token string, body any, provider, model string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", transportError("Failed to serialize remote transcription request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", transportError("Remote transcription request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t := strings.TrimSpace(token); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	log.Debugf("sending remote transcription request to %s for provider %q", endpoint, provider)
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return "", transportError("Remote transcription request failed", err)
	}
	resp.Timings.log(provider)

	var parsed remoteResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		if !resp.OK() {
			return "", providerError("Remote transcription failed with status " + statusText(resp.StatusCode))
		}
		return "", transportError("Failed to parse remote transcription response", err)
	}

	if parsed.Success != nil && !*parsed.Success && parsed.Error != nil {
		return "", providerError(*parsed.Error)
	}
	if !resp.OK() {
		if parsed.Error != nil {
			return "", providerError(*parsed.Error)
		}
		return "", providerError("Remote transcription failed with status " + statusText(resp.StatusCode))
	}
	if parsed.Text == nil {
		return "", providerError("Remote transcription returned no text")
	}

	log.Transcription(provider, model, resp.StatusCode, len(*parsed.Text), time.Since(start))
	return *parsed.Text, nil
}
