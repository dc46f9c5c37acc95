package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"handy/settings"
)

type countingTransport struct{ n atomic.Int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.n.Add(1)
	return nil, errors.New("network disabled in test")
}

type keyMap map[string]string

func (k keyMap) Fetch(provider string) (string, bool) {
	v, ok := k[provider]
	return v, ok
}

func remoteSettings(p settings.Provider, base string) settings.Settings {
	s := settings.Default()
	s.Provider = p
	s.APIBaseURL = base
	return s
}

var samples = []float32{0, 0.1, -0.1, 0.2}

func TestTracedClientTimings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "r1")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := NewTracedClient(srv.Client())
	for i, wantReused := range []bool{false, true} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := c.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.OK() || resp.StatusCode != http.StatusTeapot {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if string(resp.Body) != "short and stout" || resp.Header.Get("X-Request-Id") != "r1" {
			t.Errorf("response = %q %v", resp.Body, resp.Header)
		}
		if resp.Timings.Total <= 0 || resp.Timings.TTFB > resp.Timings.Total {
			t.Errorf("request %d: timings = %+v", i, resp.Timings)
		}
		if resp.Timings.Reused != wantReused {
			t.Errorf("request %d: reused = %v, want %v", i, resp.Timings.Reused, wantReused)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Request-Id", "abc")

	if got := firstNonEmpty(h, "dg-request-id", "X-Request-Id"); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestDeepgramModel(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"", "nova-3"},
		{"  ", "nova-3"},
		{"nova-2", "nova-2"},
		{"Nova-3-medical", "Nova-3-medical"},
		{"general", "general"},
		{"whisper-large", "nova-3"},
		{"gpt-4o-transcribe", "nova-3"},
	} {
		t.Run(tt.in, func(t *testing.T) {
			s := settings.Default()
			s.DeepgramModel = tt.in
			if got := DeepgramModel(s); got != tt.want {
				t.Errorf("DeepgramModel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalNeverTouchesNetwork(t *testing.T) {
	ct := &countingTransport{}
	fake := NewFake("local text", nil)
	r := NewRouter(Config{Local: fake, HTTPClient: &http.Client{Transport: ct}})

	s := settings.Default()
	s.Provider = settings.ProviderLocal
	s.APIBaseURL = "https://backend.example.com"
	s.DeepgramAPIKey = "k"

	got, err := r.Transcribe(context.Background(), s, samples)
	if err != nil {
		t.Fatal(err)
	}
	if got != "local text" {
		t.Errorf("got %q", got)
	}
	if ct.n.Load() != 0 {
		t.Errorf("round trips = %d, want 0", ct.n.Load())
	}
}

func TestLocalErrorIsTyped(t *testing.T) {
	r := NewRouter(Config{Local: NewFake("", errors.New("model not loaded"))})
	s := settings.Default()

	_, err := r.Transcribe(context.Background(), s, samples)
	if !IsKind(err, KindLocal) {
		t.Fatalf("err = %v, want local kind", err)
	}
	if err.Error() != "model not loaded" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestMissingRemoteConfigFailsBeforeHTTP(t *testing.T) {
	secure := remoteSettings(settings.ProviderDeepgram, "")
	secure.SecureKeyStorage = true
	secure.DeepgramAPIKey = "ignored-when-secure"

	blankKey := remoteSettings(settings.ProviderDeepgram, " ")
	blankKey.DeepgramAPIKey = "   "

	for name, s := range map[string]settings.Settings{
		"openai without base":         remoteSettings(settings.ProviderOpenAI, ""),
		"deepgram without key":        remoteSettings(settings.ProviderDeepgram, ""),
		"deepgram blank key":          blankKey,
		"deepgram secure store empty": secure,
		"openai with deepgram key set": func() settings.Settings {
			s := remoteSettings(settings.ProviderOpenAI, "")
			s.DeepgramAPIKey = "k"
			return s
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			ct := &countingTransport{}
			r := NewRouter(Config{Keys: keyMap{}, HTTPClient: &http.Client{Transport: ct}})
			_, err := r.Transcribe(context.Background(), s, samples)
			if !IsKind(err, KindConfig) {
				t.Fatalf("err = %v, want config kind", err)
			}
			if err.Error() != msgNoBaseURL {
				t.Errorf("message = %q", err.Error())
			}
			if ct.n.Load() != 0 {
				t.Errorf("round trips = %d, want 0", ct.n.Load())
			}
		})
	}
}

type capturedRequest struct {
	Path   string
	Auth   string
	Header http.Header
	Body   map[string]any
}

func backend(t *testing.T, status int, reply string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		json.Unmarshal(raw, &body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Header: r.Header, Body: body})
		mu.Unlock()
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestBackendUnifiedRequest(t *testing.T) {
	srv, reqs := backend(t, http.StatusOK, `{"text":"hello","success":true}`)
	r := NewRouter(Config{})

	s := remoteSettings(settings.ProviderOpenAI, srv.URL+"/")
	s.AuthToken = "  tok  "

	got, err := r.Transcribe(context.Background(), s, samples)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	if len(*reqs) != 1 {
		t.Fatalf("requests = %d", len(*reqs))
	}
	req := (*reqs)[0]
	if req.Path != "/api/transcribe" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Auth != "Bearer tok" {
		t.Errorf("auth = %q", req.Auth)
	}
	if req.Body["provider"] != "openai" {
		t.Errorf("provider = %v", req.Body["provider"])
	}
	if audio, _ := req.Body["audio"].(string); !strings.HasPrefix(audio, "data:audio/wav;base64,") {
		t.Errorf("audio = %.40q", audio)
	}
	for _, k := range []string{"model", "language"} {
		if _, ok := req.Body[k]; ok {
			t.Errorf("%s should be omitted, body has %v", k, req.Body[k])
		}
	}
}

func TestBackendUnifiedModelAndLanguage(t *testing.T) {
	srv, reqs := backend(t, http.StatusOK, `{"text":"hallo"}`)
	r := NewRouter(Config{})

	s := remoteSettings(settings.ProviderOpenAI, srv.URL)
	s.SelectedModel = "gpt-4o-mini-transcribe"
	s.SelectedLanguage = "de"

	if _, err := r.Transcribe(context.Background(), s, samples); err != nil {
		t.Fatal(err)
	}
	req := (*reqs)[0]
	if req.Body["model"] != "gpt-4o-mini-transcribe" || req.Body["language"] != "de" {
		t.Errorf("body = %v", req.Body)
	}
	if req.Auth != "" {
		t.Errorf("auth header sent without token: %q", req.Auth)
	}
}

func TestBackendDeepgramRequest(t *testing.T) {
	for _, tt := range []struct {
		name    string
		usage   settings.UsageMode
		secure  bool
		wantKey any
	}{
		{"own keys from settings", settings.UsageOwnKeys, false, "settings-key"},
		{"own keys from secure store", settings.UsageOwnKeys, true, "stored-key"},
		{"managed omits key", settings.UsageManaged, false, nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := backend(t, http.StatusOK, `{"text":"ok","success":true}`)
			r := NewRouter(Config{Keys: keyMap{"deepgram": "stored-key"}})

			s := remoteSettings(settings.ProviderDeepgram, srv.URL)
			s.UsageMode = tt.usage
			s.SecureKeyStorage = tt.secure
			s.DeepgramAPIKey = "settings-key"
			s.SelectedLanguage = "en"

			if _, err := r.Transcribe(context.Background(), s, samples); err != nil {
				t.Fatal(err)
			}
			req := (*reqs)[0]
			if req.Path != "/api/transcribe/deepgram" {
				t.Errorf("path = %q", req.Path)
			}
			if req.Body["apiKey"] != tt.wantKey {
				t.Errorf("apiKey = %v, want %v", req.Body["apiKey"], tt.wantKey)
			}
			if req.Body["model"] != "nova-3" || req.Body["language"] != "en" {
				t.Errorf("body = %v", req.Body)
			}
			if blob, _ := req.Body["audioBlob"].(string); !strings.HasPrefix(blob, "data:audio/wav;base64,") {
				t.Errorf("audioBlob = %.40q", blob)
			}
		})
	}
}

func TestBackendResponses(t *testing.T) {
	for _, tt := range []struct {
		name    string
		status  int
		reply   string
		want    string
		wantErr string
	}{
		{"explicit failure", 200, `{"success":false,"error":"quota exceeded"}`, "", "quota exceeded"},
		{"status with error field", 400, `{"error":"bad audio"}`, "", "bad audio"},
		{"status without error field", 500, `{}`, "", "Remote transcription failed with status 500 Internal Server Error"},
		{"non-json error page", 502, `<html>bad gateway</html>`, "", "Remote transcription failed with status 502 Bad Gateway"},
		{"missing text", 200, `{"success":true}`, "", "Remote transcription returned no text"},
		{"success false without error", 200, `{"success":false,"text":"still here"}`, "still here", ""},
		{"empty text is not an error", 200, `{"text":""}`, "", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := backend(t, tt.status, tt.reply)
			r := NewRouter(Config{})
			got, err := r.Transcribe(context.Background(), remoteSettings(settings.ProviderOpenAI, srv.URL), samples)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if !IsKind(err, KindProvider) {
					t.Errorf("kind: got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBackendUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	r := NewRouter(Config{})
	_, err := r.Transcribe(context.Background(), remoteSettings(settings.ProviderOpenAI, base), samples)
	if !IsKind(err, KindTransport) {
		t.Fatalf("err = %v, want transport kind", err)
	}
	if !strings.HasPrefix(err.Error(), "Remote transcription request failed: ") {
		t.Errorf("message = %q", err.Error())
	}
}

type deepgramCall struct {
	Model, Language, SmartFormat, Auth, ContentType string
	BodyLen                                         int
}

// deepgramServer answers each call with the next (status, body) pair.
func deepgramServer(t *testing.T, replies ...[2]string) (*httptest.Server, func() []deepgramCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []deepgramCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		q := r.URL.Query()
		mu.Lock()
		i := len(calls)
		calls = append(calls, deepgramCall{
			Model:       q.Get("model"),
			Language:    q.Get("language"),
			SmartFormat: q.Get("smart_format"),
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
			BodyLen:     len(body),
		})
		mu.Unlock()
		if i >= len(replies) {
			t.Errorf("unexpected extra Deepgram call %d", i+1)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		code := http.StatusOK
		switch replies[i][0] {
		case "403":
			code = http.StatusForbidden
		case "401":
			code = http.StatusUnauthorized
		case "500":
			code = http.StatusInternalServerError
		}
		w.WriteHeader(code)
		io.WriteString(w, replies[i][1])
	}))
	t.Cleanup(srv.Close)
	return srv, func() []deepgramCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]deepgramCall(nil), calls...)
	}
}

const dgOK = `{"results":{"channels":[{"alternatives":[{"transcript":"hi there","words":[{"end":0.4},{"end":1.25}]}]}]}}`

func directSettings(model string) settings.Settings {
	s := remoteSettings(settings.ProviderDeepgram, "")
	s.DeepgramAPIKey = "dg-key"
	s.DeepgramModel = model
	return s
}

func TestDeepgramDirectSuccess(t *testing.T) {
	srv, calls := deepgramServer(t, [2]string{"200", dgOK})
	r := NewRouter(Config{DeepgramURL: srv.URL + "/v1/listen"})

	s := directSettings("")
	s.SelectedLanguage = "en"
	got, err := r.Transcribe(context.Background(), s, samples)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi there" {
		t.Errorf("got %q", got)
	}
	c := calls()
	if len(c) != 1 {
		t.Fatalf("calls = %d, want 1", len(c))
	}
	if c[0].Model != "nova-3" || c[0].Language != "en" || c[0].SmartFormat != "true" {
		t.Errorf("query = %+v", c[0])
	}
	if c[0].Auth != "Token dg-key" || c[0].ContentType != "audio/wav" {
		t.Errorf("headers = %+v", c[0])
	}
	if c[0].BodyLen != 44+len(samples)*2 {
		t.Errorf("body length = %d, want raw wav", c[0].BodyLen)
	}
}

func TestDeepgramDirectNova3ForbiddenRetriesOnce(t *testing.T) {
	srv, calls := deepgramServer(t,
		[2]string{"403", `{"err_msg":"model not permitted"}`},
		[2]string{"200", dgOK},
	)
	r := NewRouter(Config{DeepgramURL: srv.URL})

	got, err := r.Transcribe(context.Background(), directSettings("nova-3"), samples)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi there" {
		t.Errorf("got %q", got)
	}
	c := calls()
	if len(c) != 2 || c[0].Model != "nova-3" || c[1].Model != "nova-2" {
		t.Fatalf("calls = %+v, want nova-3 then nova-2", c)
	}
}

func TestDeepgramDirectBothForbidden(t *testing.T) {
	srv, calls := deepgramServer(t,
		[2]string{"403", `{"err_msg":"nova-3 denied"}`},
		[2]string{"403", `{"err_msg":"nova-2 denied"}`},
	)
	r := NewRouter(Config{DeepgramURL: srv.URL})

	_, err := r.Transcribe(context.Background(), directSettings("nova-3-general"), samples)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Deepgram transcription failed (403 Forbidden): nova-2 denied"; err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
	if n := len(calls()); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestDeepgramDirectNoRetry(t *testing.T) {
	for _, tt := range []struct {
		name    string
		model   string
		status  string
		body    string
		wantErr string
	}{
		{"non-403 on nova-3", "nova-3", "500", `{"error":"internal"}`, "Deepgram transcription failed (500 Internal Server Error): internal"},
		{"401 on nova-3", "", "401", `{}`, "Deepgram transcription failed (401 Unauthorized): Unknown Deepgram error"},
		{"403 on nova-2", "nova-2", "403", `{"err_msg":"denied"}`, "Deepgram transcription failed (403 Forbidden): denied"},
		{"403 on general", "general", "403", `not json`, "Deepgram transcription failed (403 Forbidden): Unknown Deepgram error"},
		{"missing transcript", "nova-3", "200", `{"results":{"channels":[]}}`, "Deepgram response missing transcript"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := deepgramServer(t, [2]string{tt.status, tt.body})
			r := NewRouter(Config{DeepgramURL: srv.URL})

			_, err := r.Transcribe(context.Background(), directSettings(tt.model), samples)
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
			if n := len(calls()); n != 1 {
				t.Errorf("calls = %d, want 1", n)
			}
		})
	}
}

func TestDeepgramDirectUsesSecureStore(t *testing.T) {
	srv, calls := deepgramServer(t, [2]string{"200", dgOK})
	r := NewRouter(Config{DeepgramURL: srv.URL, Keys: keyMap{"deepgram": "from-keyring"}})

	s := directSettings("nova-2")
	s.SecureKeyStorage = true
	s.DeepgramAPIKey = ""

	if _, err := r.Transcribe(context.Background(), s, samples); err != nil {
		t.Fatal(err)
	}
	if c := calls(); c[0].Auth != "Token from-keyring" || c[0].Model != "nova-2" {
		t.Errorf("call = %+v", c[0])
	}
}

func TestWarmSkipsLocal(t *testing.T) {
	ct := &countingTransport{}
	r := NewRouter(Config{HTTPClient: &http.Client{Transport: ct}})
	r.Warm(context.Background(), settings.Default())
	if ct.n.Load() != 0 {
		t.Errorf("round trips = %d, want 0", ct.n.Load())
	}

	r.Warm(context.Background(), remoteSettings(settings.ProviderOpenAI, "https://backend.example.com"))
	if ct.n.Load() != 1 {
		t.Errorf("round trips = %d, want 1", ct.n.Load())
	}
}
