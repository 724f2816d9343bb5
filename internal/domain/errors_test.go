package domain

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func response(status int, body string) *http.Response {
	u, _ := url.Parse("https://tube.switch.ch/api/v1/channels")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    &http.Request{Method: http.MethodGet, URL: u},
	}
}

func TestRemoteErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusNotFound, KindNotFound},
		{http.StatusGone, KindNotFound},
		{http.StatusBadRequest, KindInvalidRequest},
		{http.StatusConflict, KindInvalidRequest},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := RemoteErrorFromResponse(response(tt.status, ""))
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestRemoteErrorFromResponse(t *testing.T) {
	err := RemoteErrorFromResponse(response(http.StatusUnauthorized, "  {\"detail\":\"invalid token\"}\n"))

	assert.Equal(t, http.MethodGet, err.Method)
	assert.Equal(t, "https://tube.switch.ch/api/v1/channels", err.URL)
	assert.Equal(t, `{"detail":"invalid token"}`, err.Body)
	assert.Contains(t, err.Error(), "unexpected status 401")
}

func TestRemoteErrorBodyIsLimited(t *testing.T) {
	err := RemoteErrorFromResponse(response(http.StatusBadGateway, strings.Repeat("x", 3*maxErrorBody)))
	assert.Len(t, err.Body, maxErrorBody)
}

func TestRemoteErrorMatchesSentinels(t *testing.T) {
	auth := fmt.Errorf("listing channels: %w", &RemoteError{Status: http.StatusUnauthorized})
	assert.ErrorIs(t, auth, ErrAuthFailed)
	assert.NotErrorIs(t, auth, ErrNotFound)

	missing := fmt.Errorf("upload: %w", &RemoteError{Status: http.StatusNotFound})
	assert.ErrorIs(t, missing, ErrNotFound)
	assert.NotErrorIs(t, missing, ErrAuthFailed)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindNetwork, KindOf(&TransportError{Op: "read", Err: io.ErrUnexpectedEOF}))
	assert.Equal(t, KindProtocol, KindOf(fmt.Errorf("page 2: %w", &ProtocolError{Reason: "bad link"})))
	assert.Equal(t, KindPolicyMismatch, KindOf(&OffsetMismatchError{Expected: 10, Actual: 4}))
	assert.Equal(t, KindAuth, KindOf(fmt.Errorf("x: %w", ErrAuthFailed)))
	assert.Equal(t, KindNotFound, KindOf(ErrSessionGone))
	assert.Equal(t, KindNetwork, KindOf(ErrServerOffline))
}

func TestTransportErrorUnwraps(t *testing.T) {
	err := &TransportError{Op: "read", Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "transport read: unexpected EOF", err.Error())
}

func TestTransportErrorServerOffline(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := fmt.Errorf("listing channels: %w", &TransportError{Op: "request", Err: &url.Error{Op: "Get", URL: "https://tube.switch.ch", Err: dial}})
	assert.ErrorIs(t, err, ErrServerOffline)

	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	assert.NotErrorIs(t, &TransportError{Op: "request", Err: read}, ErrServerOffline)
	assert.NotErrorIs(t, &TransportError{Op: "write", Err: dial}, ErrServerOffline)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "policy_mismatch", KindPolicyMismatch.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
