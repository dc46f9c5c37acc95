package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"handy/log"
)

// Timings are the phases of one HTTP round trip. Phases that did not happen,
// such as DNS on a reused connection, stay zero.
type Timings struct {
	DNS     time.Duration
	Connect time.Duration
	TLS     time.Duration
	TTFB    time.Duration // request written to first response byte
	Total   time.Duration
	Reused  bool
}

func (t *Timings) log(provider string) {
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	log.Network(provider, ms(t.DNS), ms(t.Connect), ms(t.TLS), ms(t.TTFB), ms(t.Total), t.Reused)
}

// trace returns a ClientTrace that fills t. The callbacks run on the
// transport's goroutines but never concurrently for one request.
func (t *Timings) trace() *httptrace.ClientTrace {
	var dnsStart, connStart, tlsStart, wrote time.Time
	return &httptrace.ClientTrace{
		GotConn:              func(info httptrace.GotConnInfo) { t.Reused = info.Reused },
		DNSStart:             func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:              func(httptrace.DNSDoneInfo) { t.DNS = time.Since(dnsStart) },
		ConnectStart:         func(_, _ string) { connStart = time.Now() },
		ConnectDone:          func(_, _ string, _ error) { t.Connect = time.Since(connStart) },
		TLSHandshakeStart:    func() { tlsStart = time.Now() },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { t.TLS = time.Since(tlsStart) },
		WroteRequest:         func(httptrace.WroteRequestInfo) { wrote = time.Now() },
		GotFirstResponseByte: func() { t.TTFB = time.Since(wrote) },
	}
}

// TracedClient is an http.Client that reads whole bodies and records the
// Timings of every request.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient(hc *http.Client) *TracedClient {
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}
	return &TracedClient{client: hc}
}

type TracedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Timings    Timings
}

func (r *TracedResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	out := &TracedResponse{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), out.Timings.trace()))

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out.Body, err = io.ReadAll(resp.Body); err != nil {
		return nil, err
	}
	out.Timings.Total = time.Since(start)
	out.StatusCode = resp.StatusCode
	out.Header = resp.Header
	return out, nil
}

// Warm sends a HEAD to url so the connection is pooled before the real
// request. It returns the handshake time, or 0 if nothing was opened.
func (c *TracedClient) Warm(ctx context.Context, url string) time.Duration {
	var t Timings
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, t.trace()), http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if t.Reused {
		return 0
	}
	return t.Connect + t.TLS
}
