package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// RateLimitMessage is reported once rate-limit retries are exhausted.
const RateLimitMessage = "API rate limit reached. Please wait a moment and try again."

// StatusError is a non-2xx response from the chat endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("non-2xx status: %d", e.Code)
	}
	return fmt.Sprintf("non-2xx status: %d: %s", e.Code, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 from the endpoint.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// ErrorKind groups AI failures by how callers react to them.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTerminal    ErrorKind = "terminal"
	KindParse       ErrorKind = "parse"
	KindDisabled    ErrorKind = "disabled"
)

// AIError is the structured failure of one AI operation.
type AIError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
}

func (e *AIError) Unwrap() error { return e.Cause }

// KindOf returns the AIError kind in err's chain, or KindTerminal.
func KindOf(err error) ErrorKind {
	var ae *AIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTerminal
}

// ErrNoJSON means the model answer held no JSON object.
var ErrNoJSON = errors.New("no JSON object in response")
