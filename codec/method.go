package codec

import "fmt"

// MethodCall is the logical unit decoded from a method-channel payload.
// Immutable once decoded.
type MethodCall struct {
	Method    string
	Arguments Value
}

// ResultStatus discriminates method-call outcomes.
type ResultStatus int

const (
	// StatusSuccess carries a result value.
	StatusSuccess ResultStatus = iota
	// StatusError carries a stable code, an optional message and optional
	// structured details.
	StatusError
	// StatusNotImplemented signals that no handler served the call. On the
	// wire it is a zero-length reply, distinct from Success(Null).
	StatusNotImplemented
)

func (s ResultStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	case StatusNotImplemented:
		return "NotImplemented"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MethodResult is the outcome of a method call. The zero MethodResult is
// Success(Null).
type MethodResult struct {
	status  ResultStatus
	value   Value
	code    string
	message string
	details Value
}

// Success returns a successful result carrying value.
func Success(value Value) MethodResult {
	return MethodResult{status: StatusSuccess, value: value}
}

// ErrorResult returns an error result. message may be empty; it encodes as
// null on the wire.
func ErrorResult(code, message string, details Value) MethodResult {
	return MethodResult{status: StatusError, code: code, message: message, details: details}
}

// NotImplemented returns the not-implemented result.
func NotImplemented() MethodResult {
	return MethodResult{status: StatusNotImplemented}
}

// Status returns the result discriminant.
func (r MethodResult) Status() ResultStatus {
	return r.status
}

// IsSuccess reports whether the result is a success.
func (r MethodResult) IsSuccess() bool {
	return r.status == StatusSuccess
}

// IsError reports whether the result is an error.
func (r MethodResult) IsError() bool {
	return r.status == StatusError
}

// IsNotImplemented reports whether the result is not-implemented.
func (r MethodResult) IsNotImplemented() bool {
	return r.status == StatusNotImplemented
}

// Value returns the success value; Null for other statuses.
func (r MethodResult) Value() Value {
	return r.value
}

// Code returns the error code; empty for other statuses.
func (r MethodResult) Code() string {
	return r.code
}

// Message returns the error message; empty when the wire carried null.
func (r MethodResult) Message() string {
	return r.message
}

// Details returns the error details; Null for other statuses.
func (r MethodResult) Details() Value {
	return r.details
}

// Equal reports deep equality of two results.
func (r MethodResult) Equal(other MethodResult) bool {
	if r.status != other.status {
		return false
	}
	switch r.status {
	case StatusSuccess:
		return r.value.Equal(other.value)
	case StatusError:
		return r.code == other.code && r.message == other.message && r.details.Equal(other.details)
	default:
		return true
	}
}
