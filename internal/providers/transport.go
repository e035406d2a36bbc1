package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 60 * time.Second

	// maxResponseBytes bounds how much of a vendor response is read
	maxResponseBytes = 10 << 20
)

// newHTTPClient builds a client with separate connect and overall timeouts
func newHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// httpBackend is shared by the JSON-over-HTTPS adapters
type httpBackend struct {
	client  *http.Client
	auth    Authenticator
	apiKey  string
	baseURL string
	headers map[string]string
}

func newHTTPBackend(config ProviderConfig, defaultBaseURL string, auth Authenticator, headers map[string]string) *httpBackend {
	baseURL := defaultBaseURL
	if config.BaseURL != "" {
		baseURL = config.BaseURL
	}

	return &httpBackend{
		client:  newHTTPClient(config.ConnectTimeout, config.RequestTimeout),
		auth:    auth,
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
	}
}

// postJSON sends payload to baseURL+path and decodes a 2xx body into out.
// It returns the HTTP status and round-trip latency.
func (b *httpBackend) postJSON(ctx context.Context, path string, payload, out any) (int, time.Duration, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, 0, &Error{Kind: KindClientError, Message: "failed to marshal request: " + err.Error(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, 0, &Error{Kind: KindTransport, Message: sanitize(err.Error(), b.apiKey), Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	// Apply authentication
	authCtx, err := b.auth.Authenticate(ctx)
	if err != nil {
		return 0, 0, &Error{Kind: KindUnauthorized, Message: err.Error(), Err: err}
	}
	if err := authCtx.ApplyToRequest(ctx, httpReq); err != nil {
		return 0, 0, &Error{Kind: KindTransport, Message: sanitize("failed to apply auth: "+err.Error(), b.apiKey), Err: err}
	}

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return 0, time.Since(start), transportError(err, b.apiKey)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	latency := time.Since(start)
	if err != nil {
		return resp.StatusCode, latency, transportError(err, b.apiKey)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, latency, statusError(resp.StatusCode, respBody, b.apiKey)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, latency, badResponse(resp.StatusCode, "malformed JSON in provider response")
	}

	return resp.StatusCode, latency, nil
}

func (b *httpBackend) close() {
	b.client.CloseIdleConnections()
}
