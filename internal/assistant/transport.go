// ABOUTME: HTTP transport for the assistant with retry on 429/5xx and exponential backoff
// ABOUTME: Respects HTTP_PROXY/HTTPS_PROXY; the request body is replayed on each attempt

package assistant

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 10 * time.Second
)

type transport struct {
	httpClient *http.Client
	headers    map[string]string
	// backoff returns the wait before attempt n+1; replaced in tests.
	backoff func(attempt int) time.Duration
}

func newTransport(headers map[string]string) *transport {
	return &transport{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				MaxIdleConns:          4,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		headers: headers,
		backoff: exponentialBackoff,
	}
}

// post sends body to url, retrying retryable statuses. The last response is
// returned even when every attempt was retryable.
func (t *transport) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", url, err)
		}
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		if !isRetryable(resp.StatusCode) || attempt == maxAttempts-1 {
			return resp, nil
		}
		resp.Body.Close()

		if err := sleepWithContext(ctx, t.backoff(attempt)); err != nil {
			return nil, fmt.Errorf("canceled during retry backoff: %w", err)
		}
	}
}

func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func exponentialBackoff(attempt int) time.Duration {
	d := baseBackoff << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
