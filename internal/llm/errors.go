package llm

import (
	"fmt"
	"io"
	"net/http"
)

// ErrorKind discriminates the failure classes of the messaging API.
type ErrorKind int

const (
	// ErrorKindNetwork means no response was obtained at all.
	ErrorKindNetwork ErrorKind = iota
	// ErrorKindAPI means the API returned a non-success response.
	ErrorKindAPI
	// ErrorKindInvalidModel means the requested model does not exist.
	ErrorKindInvalidModel
	// ErrorKindRateLimit means the API rate-limited the request.
	ErrorKindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNetwork:
		return "network"
	case ErrorKindAPI:
		return "api"
	case ErrorKindInvalidModel:
		return "invalid model"
	case ErrorKindRateLimit:
		return "rate limit"
	}
	return "unknown"
}

// Error is a classified messaging API failure. It is propagated as a value;
// callers switch on Kind rather than on concrete types.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == ErrorKindNetwork {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// NetworkError wraps a failure to obtain any response.
func NetworkError(err error) *Error {
	return &Error{Kind: ErrorKindNetwork, Err: err}
}

// ClassifyStatus maps a non-success status code to an error kind.
func ClassifyStatus(statusCode int, body string) *Error {
	kind := ErrorKindAPI
	switch statusCode {
	case http.StatusNotFound:
		kind = ErrorKindInvalidModel
	case http.StatusTooManyRequests:
		kind = ErrorKindRateLimit
	}
	return &Error{Kind: kind, StatusCode: statusCode, Body: body}
}

// ClassifyResponse vets a response before decoding begins. It returns nil for
// a success response with a readable body; otherwise the body is drained,
// closed and folded into the returned error.
func ClassifyResponse(response *http.Response) *Error {
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var body []byte
		if response.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(response.Body, 1<<16))
			response.Body.Close()
		}
		return ClassifyStatus(response.StatusCode, string(body))
	}
	if response.Body == nil {
		return &Error{Kind: ErrorKindAPI, StatusCode: response.StatusCode, Body: "response has no body"}
	}
	return nil
}
