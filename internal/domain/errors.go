package domain

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const maxErrorBody = 4096

// Sentinel errors for domain operations
var (
	// ErrAuthFailed indicates the access token was rejected
	ErrAuthFailed = errors.New("access token is invalid")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerOffline indicates the service is unreachable
	ErrServerOffline = errors.New("service is unreachable")

	// ErrSessionGone indicates the server no longer knows an upload session
	ErrSessionGone = errors.New("upload session no longer exists")
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAuth
	KindServerError
	KindNotFound
	KindPolicyMismatch
	KindInvalidRequest // 4xx other than auth and not found
	KindProtocol       // response violates the wire contract
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindServerError:
		return "server_error"
	case KindNotFound:
		return "not_found"
	case KindPolicyMismatch:
		return "policy_mismatch"
	case KindInvalidRequest:
		return "invalid_request"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, ErrAuthFailed):
		return KindAuth
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionGone):
		return KindNotFound
	case errors.Is(err, ErrServerOffline):
		return KindNetwork
	}
	return KindUnknown
}

// RemoteError is a non-success HTTP response.
type RemoteError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// RemoteErrorFromResponse builds a RemoteError and drains, then closes, resp.Body.
func RemoteErrorFromResponse(resp *http.Response) *RemoteError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &RemoteError{
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(data)),
	}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}
	return e
}

// Kind maps the status code onto the error taxonomy.
func (e *RemoteError) Kind() Kind {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return KindAuth
	case e.Status == http.StatusNotFound || e.Status == http.StatusGone:
		return KindNotFound
	case e.Status >= 500:
		return KindServerError
	default:
		return KindInvalidRequest
	}
}

// Is lets callers match a RemoteError against the sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Kind() == KindAuth
	case ErrNotFound:
		return e.Kind() == KindNotFound
	}
	return false
}

// TransportError is a connection or I/O fault while moving bytes.
type TransportError struct {
	Op  string // "request", "read", "write", "seek"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() Kind { return KindNetwork }

// Is matches ErrServerOffline when the request never reached the server.
func (e *TransportError) Is(target error) bool {
	if target != ErrServerOffline || e.Op != "request" {
		return false
	}
	var opErr *net.OpError
	return errors.As(e.Err, &opErr) && opErr.Op == "dial"
}

// ProtocolError reports a response that breaks the expected wire contract,
// such as a malformed continuation link or an offset moving backwards.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Reason
}

func (e *ProtocolError) Kind() Kind { return KindProtocol }

// OffsetMismatchError is raised when an upload session cannot be reconciled
// with the offset the client expected.
type OffsetMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("upload offset mismatch: expected %d, server reports %d", e.Expected, e.Actual)
}

func (e *OffsetMismatchError) Kind() Kind { return KindPolicyMismatch }
