package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Prober checks that a service answers HTTP requests.
type Prober interface {
	Probe(ctx context.Context, url string) (int, error)
}

type Options struct {
	Retries int
	WaitMin time.Duration
	WaitMax time.Duration
	Logger  *slog.Logger
}

// HTTPProber issues GET requests, retrying connection errors and 5xx responses.
type HTTPProber struct {
	client *retryablehttp.Client
}

func NewHTTPProber(opts Options) *HTTPProber {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	if opts.WaitMin > 0 {
		client.RetryWaitMin = opts.WaitMin
	}
	if opts.WaitMax > 0 {
		client.RetryWaitMax = opts.WaitMax
	}
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = opts.Logger
	}
	return &HTTPProber{client: client}
}

// Probe returns the response status code. Any status of 400 or above is an error.
func (p *HTTPProber) Probe(ctx context.Context, url string) (int, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s responded with %s", url, resp.Status)
	}
	return resp.StatusCode, nil
}

// LocalURL returns the loopback URL of a service on port.
func LocalURL(port int, path string) string {
	if path == "" {
		path = "/"
	}
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + path
}
