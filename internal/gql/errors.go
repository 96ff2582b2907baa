package gql

import "errors"

// Codes follow the Apollo/GraphQL conventions.
const (
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
	CodeBadUserInput        = "BAD_USER_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeBadGateway          = "BAD_GATEWAY"
)

// Error is a GraphQL-friendly error with code + extensions. It wraps an
// underlying cause for logs; the cause message is intentionally not exposed
// in extensions.
type Error struct {
	Message string
	Code    string

	meta  map[string]interface{}
	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// Extensions is picked up by the executor and rendered into the error's
// extensions object alongside the code.
func (e *Error) Extensions() map[string]interface{} {
	ext := make(map[string]interface{}, len(e.meta)+1)
	for k, v := range e.meta {
		ext[k] = v
	}
	ext["code"] = e.Code
	return ext
}

// WithMeta adds a single k/v to extensions (copy-on-write).
func (e *Error) WithMeta(k string, v interface{}) *Error {
	cp := *e
	cp.meta = make(map[string]interface{}, len(e.meta)+1)
	for mk, mv := range e.meta {
		cp.meta[mk] = mv
	}
	cp.meta[k] = v
	return &cp
}

// New builds a GraphQL error with code/message, wrapping an optional cause.
func New(code, message string, cause error) *Error {
	return &Error{
		Message: message,
		Code:    code,
		cause:   cause,
	}
}

// CodeOf extracts the GraphQL error code, if present.
func CodeOf(err error) (string, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	return "", false
}

// Convenience constructors

func InternalServerError(err error) *Error {
	return New(CodeInternalServerError, "internal server error", err)
}

func NotFound(err error) *Error {
	return New(CodeNotFound, "not found", err)
}

func BadUserInput(message string, err error) *Error {
	if message == "" {
		message = "bad request"
	}
	return New(CodeBadUserInput, message, err)
}

func BadGateway(err error) *Error {
	return New(CodeBadGateway, "bad gateway", err)
}
