package auth

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxEndpointBody bounds how much of a token endpoint reply is kept.
const maxEndpointBody = 1 << 20

// endpointReply is what the token endpoint answered during one exchange.
// oauth2 accepts any 2xx status; callers check status themselves.
type endpointReply struct {
	status int
	body   []byte
}

// formParamTransport adds fixed form parameters to token endpoint requests
// that do not already carry them. oauth2 omits redirect_uri on refresh,
// while the CRM requires it. With reply set, the response status and body
// are recorded there.
type formParamTransport struct {
	base   http.RoundTripper
	params url.Values
	reply  *endpointReply
}

var _ http.RoundTripper = (*formParamTransport)(nil)

func (t *formParamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Method != http.MethodPost || req.Body == nil || req.Body == http.NoBody {
		return t.record(base.RoundTrip(req))
	}

	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}
	for key, values := range t.params {
		if !form.Has(key) {
			form[key] = values
		}
	}

	encoded := form.Encode()
	newReq := req.Clone(req.Context())
	newReq.Body = io.NopCloser(strings.NewReader(encoded))
	newReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(encoded)), nil
	}
	newReq.ContentLength = int64(len(encoded))
	return t.record(base.RoundTrip(newReq))
}

// record copies the reply into t.reply and hands oauth2 an unread body.
func (t *formParamTransport) record(resp *http.Response, err error) (*http.Response, error) {
	if err != nil || resp == nil || t.reply == nil {
		return resp, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEndpointBody))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	t.reply.status = resp.StatusCode
	t.reply.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
