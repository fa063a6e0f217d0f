// Package fault classifies transport and oracle failures so callers can pick
// a fallback by class instead of inspecting raw errors.
package fault

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/nhle/smart-inbox/internal/source"
)

// Class is the kind of failure.
type Class int

const (
	// Transport is any network or provider failure not covered below.
	Transport Class = iota
	// RateLimit means the provider rejected the call for quota reasons.
	RateLimit
	// Auth means credentials are missing, expired or rejected.
	Auth
	// MalformedOutput means the oracle answered with something unparseable.
	MalformedOutput
	// InvalidTime means a date-time input could not be interpreted.
	InvalidTime
)

func (c Class) String() string {
	switch c {
	case RateLimit:
		return "rate_limit"
	case Auth:
		return "auth"
	case MalformedOutput:
		return "malformed_output"
	case InvalidTime:
		return "invalid_time"
	default:
		return "transport"
	}
}

// Error is a classified failure of one operation.
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Class)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with an explicit class.
func New(class Class, op string, err error) *Error {
	return &Error{Class: class, Op: op, Err: err}
}

// statusCoder is implemented by HTTP-backed errors that expose their status.
type statusCoder interface {
	HTTPStatus() int
}

// rateLimitMarkers are substrings providers use in quota rejections.
var rateLimitMarkers = []string{
	"rate_limit",
	"rate limit",
	"429",
	"quota",
	"resource_exhausted",
	"too many requests",
}

// Classify wraps err as a *Error for op. An err that is already classified
// keeps its class. A nil err returns nil.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Class: fe.Class, Op: op, Err: err}
	}

	return &Error{Class: classOf(err), Op: op, Err: err}
}

func classOf(err error) Class {
	if source.IsAuthError(err) {
		return Auth
	}

	if code, ok := statusOf(err); ok {
		switch code {
		case http.StatusTooManyRequests:
			return RateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return Auth
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return RateLimit
		}
	}

	return Transport
}

func statusOf(err error) (int, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code, true
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus(), true
	}

	return 0, false
}

// ClassOf returns the class of err, classifying it if needed.
func ClassOf(err error) Class {
	return Classify("", err).Class
}
