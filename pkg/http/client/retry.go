package client

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// retryTransport retries requests that die on a transient connection error,
// immediately and without backoff. When the whole pool looks dead it drops
// the idle connections and tries once more on a fresh one.
type retryTransport struct {
	base       http.RoundTripper
	transport  *http.Transport
	maxRetries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= t.maxRetries; {
		resp, err := t.doRequest(req, attempt)
		if err == nil {
			return resp, nil
		}

		// An expired connection is routine rotation, not a failure.
		if errors.Is(err, ErrConnExpired) {
			continue
		}

		if !isRetryableError(err) {
			return nil, err
		}
		attempt++
	}

	if t.transport != nil {
		t.transport.CloseIdleConnections()
	}
	return t.doRequest(req, t.maxRetries+1)
}

func (t *retryTransport) doRequest(req *http.Request, attempt int) (*http.Response, error) {
	reqToSend := req
	// The body may already be consumed on a retry.
	if attempt > 0 {
		reqToSend = req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			reqToSend.Body = body
		}
	}
	return t.base.RoundTrip(reqToSend)
}

func isRetryableError(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		return true
	}
	return false
}
