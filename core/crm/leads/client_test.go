package leads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken struct {
	token string
	err   error
	calls atomic.Int32
}

func (s *staticToken) AccessToken(context.Context) (string, error) {
	s.calls.Add(1)
	return s.token, s.err
}

var testFields = Fields{Phone: 931725, Age: 931775, Handle: 932703}

type captured struct {
	auth        string
	contentType string
	body        []byte
}

func newLeadServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Pointer[captured]) {
	t.Helper()
	var last atomic.Pointer[captured]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v4/leads" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		last.Store(&captured{
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        data,
		})
		w.Header().Set("Content-Type", "application/hal+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestClient(t *testing.T, srv *httptest.Server, tokens TokenSource, format string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL + "/", Fields: testFields, NameFormat: format}, tokens, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestSubmitReturnsLeadID(t *testing.T) {
	srv, last := newLeadServer(t, http.StatusOK, `{"_links":{},"_embedded":{"leads":[{"id":42,"request_id":"0"}]}}`)
	c := newTestClient(t, srv, &staticToken{token: "B"}, "")

	id, err := c.Submit(t.Context(), Lead{Name: "Ann", Phone: "+79001234567", AgeBracket: "5-8", ContactHandle: "@ann"})
	require.NoError(t, err)
	assert.Equal(t, LeadID(42), id)

	req := last.Load()
	require.NotNil(t, req)
	assert.Equal(t, "Bearer B", req.auth)
	assert.Equal(t, "application/json", req.contentType)
	assert.JSONEq(t, `[{
		"name": "Lead from Ann",
		"custom_fields_values": [
			{"field_id": 931725, "values": [{"value": "+79001234567"}]},
			{"field_id": 931775, "values": [{"value": "5-8"}]},
			{"field_id": 932703, "values": [{"value": "@ann"}]}
		]
	}]`, string(req.body))
}

func TestPayloadMapsFourScalarsToThreeFields(t *testing.T) {
	data, err := buildPayload(Lead{Name: "Bob", Phone: "p", AgeBracket: "12-14", ContactHandle: "Не указан"}, testFields, "Заявка от %s")
	require.NoError(t, err)

	var batch []leadRequest
	require.NoError(t, json.Unmarshal(data, &batch))
	require.Len(t, batch, 1)
	assert.Equal(t, "Заявка от Bob", batch[0].Name)

	byID := make(map[int64]string, len(batch[0].CustomFieldsValues))
	for _, f := range batch[0].CustomFieldsValues {
		require.Len(t, f.Values, 1)
		byID[f.FieldID] = f.Values[0].Value
	}
	assert.Equal(t, map[int64]string{
		testFields.Phone:  "p",
		testFields.Age:    "12-14",
		testFields.Handle: "Не указан",
	}, byID)
}

func TestSubmitServerError(t *testing.T) {
	srv, _ := newLeadServer(t, http.StatusInternalServerError, `{"title":"Internal error"}`)
	c := newTestClient(t, srv, &staticToken{token: "B"}, "")

	_, err := c.Submit(t.Context(), Lead{Name: "Ann"})
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.NotErrorIs(t, err, ErrAuthFailed)
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindRequestFailed, se.Kind)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Contains(t, se.Body, "Internal error")
	assert.Equal(t, "CRM_REQUEST_FAILED", se.Code())
}

func TestSubmitMalformedResponses(t *testing.T) {
	bodies := map[string]string{
		"not json":        `<html>`,
		"no embedded":     `{}`,
		"empty leads":     `{"_embedded":{"leads":[]}}`,
		"lead without id": `{"_embedded":{"leads":[{"request_id":"0"}]}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv, _ := newLeadServer(t, http.StatusOK, body)
			c := newTestClient(t, srv, &staticToken{token: "B"}, "")

			_, err := c.Submit(t.Context(), Lead{Name: "Ann"})
			assert.ErrorIs(t, err, ErrRequestFailed)
		})
	}
}

func TestSubmitAuthFailure(t *testing.T) {
	srv, last := newLeadServer(t, http.StatusOK, `{"_embedded":{"leads":[{"id":1}]}}`)
	cause := errors.New("no credentials")
	tokens := &staticToken{err: cause}
	c := newTestClient(t, srv, tokens, "")

	_, err := c.Submit(t.Context(), Lead{Name: "Ann"})
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, last.Load())
	assert.Equal(t, int32(1), tokens.calls.Load())
}

func TestSubmitTransportFailure(t *testing.T) {
	srv, _ := newLeadServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv, &staticToken{token: "B"}, "")
	srv.Close()

	_, err := c.Submit(t.Context(), Lead{Name: "Ann"})
	require.ErrorIs(t, err, ErrRequestFailed)
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Zero(t, se.StatusCode)
	assert.Error(t, se.Err)
}

func TestNewValidatesConfig(t *testing.T) {
	tokens := &staticToken{token: "x"}
	_, err := New(Config{}, tokens)
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "https://x"}, nil)
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "https://x", NameFormat: "no verb"}, tokens)
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "https://x.amocrm.ru/"}, tokens)
	require.NoError(t, err)
	assert.Equal(t, "https://x.amocrm.ru/api/v4/leads", c.endpoint)
	assert.Equal(t, DefaultNameFormat, c.nameFormat)
}
