package xrpc

import (
	"fmt"
	"net/http"
)

// ErrorResponse is the wire shape of a failed XRPC call. The server fills
// in Code and Message; Status records the HTTP status the response came
// back with.
type ErrorResponse struct {
	Code    Code   `json:"error"`
	Message string `json:"message"`

	Status int `json:"-"`
	// Inner is a private internal error associated with the response.
	Inner error `json:"-"`
}

func (er *ErrorResponse) Error() string {
	if er.Inner != nil {
		return fmt.Sprintf("%s: %v", er.Message, er.Inner)
	}
	return er.Message
}

func (er *ErrorResponse) Unwrap() error {
	return er.Inner
}

// Cause is for [errors.Cause].
func (er *ErrorResponse) Cause() error {
	return er.Inner
}

func Wrapf(err error, code Code, format string, args ...any) *ErrorResponse {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code Code, msg string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: msg,
		Inner:   err,
	}
}

// Wrap sets the Inner error field.
func (er *ErrorResponse) Wrap(err error) *ErrorResponse {
	er.Inner = err
	return er
}

// WithStatus sets the Status field.
func (er *ErrorResponse) WithStatus(status int) *ErrorResponse {
	er.Status = status
	return er
}

type Code string

const (
	Unknown              Code = "Unknown"
	InvalidResponse      Code = "InvalidResponse"
	Success              Code = "Success"
	InvalidRequest       Code = "InvalidRequest"
	AuthRequired         Code = "AuthRequired"
	Forbidden            Code = "Forbidden"
	XRPCNotSupported     Code = "XRPCNotSupported"
	RateLimitExceeded    Code = "RateLimitExceeded"
	InternalServerError  Code = "InternalServerError"
	MethodNotImplemented Code = "MethodNotImplemented"
	UpstreamFailure      Code = "UpstreamFailure"
	UpstreamTimeout      Code = "UpstreamTimeout"
)

// Account status codes returned by getProfile and createSession when the
// subject account is not in a normal active state.
const (
	AccountDeactivated Code = "AccountDeactivated"
	AccountSuspended   Code = "AccountSuspended"
	AccountTakedown    Code = "AccountTakedown"
	ActorNotFound      Code = "ActorNotFound"
	RecordNotFound     Code = "RecordNotFound"
	RepoNotFound       Code = "RepoNotFound"
)

func CodeFromStatus(status int) Code {
	switch status {
	case http.StatusOK:
		return Success
	case http.StatusBadRequest:
		return InvalidRequest
	case http.StatusUnauthorized:
		return AuthRequired
	case http.StatusForbidden:
		return Forbidden
	case http.StatusNotFound:
		return XRPCNotSupported
	case http.StatusTooManyRequests:
		return RateLimitExceeded
	case http.StatusInternalServerError:
		return InternalServerError
	case http.StatusNotImplemented:
		return MethodNotImplemented
	case http.StatusBadGateway:
		return UpstreamFailure
	case http.StatusGatewayTimeout:
		return UpstreamTimeout
	default:
		if status >= 200 && status < 300 {
			return Success
		} else if status >= 400 && status < 500 {
			return InvalidRequest
		}
		return InternalServerError
	}
}

func (c Code) String() string { return string(c) }

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
