package socket

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrTimeout            = errors.New("request timed out")
	ErrClosed             = errors.New("socket closed")
	ErrUnexpectedResponse = errors.New("unexpected response payload")
)

// ErrorCode is the numeric code of a realtime server error.
type ErrorCode int

const (
	ErrorRuntimeException ErrorCode = iota
	ErrorUnrecognizedPayload
	ErrorMissingPayload
	ErrorBadInput
	ErrorMatchNotFound
	ErrorMatchJoinRejected
	ErrorRuntimeFunctionNotFound
	ErrorRuntimeFunctionException
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorRuntimeException:
		return "runtime_exception"
	case ErrorUnrecognizedPayload:
		return "unrecognized_payload"
	case ErrorMissingPayload:
		return "missing_payload"
	case ErrorBadInput:
		return "bad_input"
	case ErrorMatchNotFound:
		return "match_not_found"
	case ErrorMatchJoinRejected:
		return "match_join_rejected"
	case ErrorRuntimeFunctionNotFound:
		return "runtime_function_not_found"
	case ErrorRuntimeFunctionException:
		return "runtime_function_exception"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// ServerError is an error payload received in response to a request.
type ServerError struct {
	Code    ErrorCode
	Message string
	Context map[string]string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", int(e.Code), e.Code, e.Message)
}

func newServerError(p *ServerErrorPayload) *ServerError {
	return &ServerError{Code: p.Code, Message: p.Message, Context: p.Context}
}

// TransportError reports a connection-level failure affecting a request.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response frame that carried a known cid but could not
// be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// unexpected reports a response that lacks the payload its request implies.
func unexpected(want string, env *Envelope) error {
	return fmt.Errorf("%w: want %s, got %v", ErrUnexpectedResponse, want, env.Kinds())
}
