// Package client implements a small JSON HTTP client for the tally node API.
// Requests are retried on transport errors so tests and tooling survive a
// node that is still coming up; HTTP-level errors are returned untouched for
// the caller to assert on.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/tally-z-sandbox/api"
	"github.com/vocdoni/tally-z-sandbox/log"
)

const (
	// DefaultRetries is how many times a request is attempted when the
	// transport fails before giving up.
	DefaultRetries = 3
	// DefaultTimeout bounds every single HTTP attempt.
	DefaultTimeout = 10 * time.Second
)

// HTTPclient is the tally node API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New parses the host address, checks the node answers the ping endpoint and
// returns the client handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host address: %w", err)
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{
				IdleConnTimeout:    DefaultTimeout,
				DisableCompression: false,
				WriteBufferSize:    1 << 20,
				ReadBufferSize:     1 << 20,
			},
			Timeout: DefaultTimeout,
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	body, status, err := c.Request(http.MethodGet, nil, nil, api.PingEndpoint)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ping returned status %d (%s)", status, body)
	}
	log.Debugw("http client created", "host", hostURL.String())
	return c, nil
}

// Request performs a JSON request against the API. jsonBody is marshaled and
// attached when non-nil; params are flat [key, value, ...] query parameter
// pairs; urlPath segments are joined onto the host path. It returns the raw
// response body and the status code, leaving JSON decoding and error-code
// handling to the caller.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 1 {
		values := url.Values{}
		for i := 0; i+1 < len(params); i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}
	log.Debugw("http client request", "method", method, "url", u.String(), "bodyBytes", len(body))

	var resp *http.Response
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		resp, err = c.do(method, u.String(), body)
		if err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", attempt, "retries", c.retries)
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("request failed after %d attempts: %w", c.retries, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err.Error())
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// do runs one HTTP attempt with a fresh request, so retried attempts never
// share a consumed body reader.
func (c *HTTPclient) do(method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	}
	return c.c.Do(req)
}
