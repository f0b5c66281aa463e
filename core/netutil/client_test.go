package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"dial", dial, true},
		{"timeout", timeoutErr{}, true},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://x", Err: dial}, true},
		{"read", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	var calls atomic.Int32
	rt := &RetryTransport{
		MaxRetries: 2,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		}),
	}
	req, err := http.NewRequest(http.MethodPost, "http://example.test", strings.NewReader("a=b"))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryTransportKeepsStatusErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Options{Timeout: time.Second, Retries: 3})
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCRMOptionsHaveNoRetries(t *testing.T) {
	client := NewClient(CRMOptions(10 * time.Second))
	assert.Equal(t, 10*time.Second, client.Timeout)
	_, retrying := client.Transport.(*RetryTransport)
	assert.False(t, retrying)

	client = NewClient(TelegramOptions())
	_, retrying = client.Transport.(*RetryTransport)
	assert.True(t, retrying)
}
