package redditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrorKind classifies why a page could not be fetched.
type ErrorKind string

const (
	// HTTPError is a non-2xx response.
	HTTPError ErrorKind = "http_error"
	// MalformedResponse is a 2xx body that is not a listing.
	MalformedResponse ErrorKind = "malformed_response"
	// NetworkFailure covers transport errors, timeouts and cancellation.
	NetworkFailure ErrorKind = "network_failure"
)

// Reasons refining an HTTPError.
const (
	ReasonRateLimited  = "rate_limited"
	ReasonNotFound     = "not_found"
	ReasonForbidden    = "forbidden"
	ReasonPrivate      = "private"
	ReasonBanned       = "banned"
	ReasonQuarantined  = "quarantined"
	ReasonSuspended    = "suspended"
	ReasonUnauthorized = "unauthorized"
	ReasonBadRequest   = "bad_request"
	ReasonServerError  = "server_error"
)

// FetchError is returned by every failed FetchPage call.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int    // upstream status for HTTPError
	Reason     string // refinement for HTTPError
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("fetch ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether repeating the same request later may succeed.
func (e *FetchError) Temporary() bool {
	switch e.Kind {
	case NetworkFailure:
		return !errors.Is(e.Err, context.Canceled)
	case HTTPError:
		return e.Reason == ReasonRateLimited || e.Reason == ReasonServerError || e.Reason == ReasonUnauthorized
	}
	return false
}

// redditErrorBody is the JSON shape of Reddit error responses.
type redditErrorBody struct {
	Message string `json:"message"`
	Error   int    `json:"error"`
	Reason  string `json:"reason"`
}

// classifyResponse builds an HTTPError from a non-2xx response. The body is
// consumed.
func classifyResponse(resp *http.Response) *FetchError {
	fe := &FetchError{Kind: HTTPError, StatusCode: resp.StatusCode}

	var bodyText string
	var body redditErrorBody
	if resp.Body != nil {
		if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
			bodyText = strings.ToLower(string(b))
			_ = json.Unmarshal(b, &body)
		}
	}
	mentions := func(word string) bool {
		return strings.EqualFold(body.Reason, word) || strings.Contains(bodyText, word)
	}

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		fe.Reason, fe.Message = ReasonRateLimited, "rate limited by Reddit"
	case code == http.StatusNotFound:
		fe.Reason, fe.Message = ReasonNotFound, "not found"
		switch {
		case mentions("private"):
			fe.Reason, fe.Message = ReasonPrivate, "subreddit is private"
		case mentions("banned"):
			fe.Reason, fe.Message = ReasonBanned, "subreddit is banned"
		}
	case code == http.StatusForbidden:
		fe.Reason, fe.Message = ReasonForbidden, "forbidden"
		switch {
		case mentions("quarantined"):
			fe.Reason, fe.Message = ReasonQuarantined, "subreddit is quarantined"
		case mentions("private"):
			fe.Reason, fe.Message = ReasonPrivate, "subreddit is private"
		case mentions("suspended"):
			fe.Reason, fe.Message = ReasonSuspended, "account is suspended"
		}
	case code == http.StatusUnauthorized:
		fe.Reason, fe.Message = ReasonUnauthorized, "unauthorized; token may be expired"
	case code >= 500:
		fe.Reason, fe.Message = ReasonServerError, "Reddit server error"
	default:
		fe.Reason, fe.Message = ReasonBadRequest, "request rejected"
	}
	if body.Message != "" && !strings.EqualFold(body.Message, fe.Message) {
		fe.Message += ": " + body.Message
	}
	return fe
}

// AsFetchError unwraps err to a *FetchError when possible.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	ok := errors.As(err, &fe)
	return fe, ok
}
