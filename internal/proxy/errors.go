package proxy

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies dispatcher failures.
type ErrorKind int

const (
	// KindUnknownService means no service is registered under the requested name.
	KindUnknownService ErrorKind = iota + 1

	// KindAuthRequired means the service requires an identity and none was supplied.
	KindAuthRequired

	// KindUpstreamUnavailable means the upstream could not be reached in time.
	KindUpstreamUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknownService:
		return "unknown service"
	case KindAuthRequired:
		return "authentication required"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	default:
		return "gateway error"
	}
}

// Sentinels for errors.Is; they match any GatewayError of the same kind.
var (
	ErrUnknownService      = &GatewayError{Kind: KindUnknownService}
	ErrAuthRequired        = &GatewayError{Kind: KindAuthRequired}
	ErrUpstreamUnavailable = &GatewayError{Kind: KindUpstreamUnavailable}
)

// GatewayError is returned by Dispatcher.Forward.
type GatewayError struct {
	Kind    ErrorKind
	Service string

	// StatusCode is the HTTP status the gateway answers with.
	StatusCode int

	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

func (e *GatewayError) Error() string {
	msg := e.Kind.String()
	if e.Service != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Service)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	return ok && t.Kind == e.Kind
}

// Status returns the HTTP status for the error.
func (e *GatewayError) Status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Kind {
	case KindUnknownService:
		return http.StatusNotFound
	case KindAuthRequired:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func unknownService(name string) *GatewayError {
	return &GatewayError{Kind: KindUnknownService, Service: name, StatusCode: http.StatusNotFound}
}

func authRequired(name string) *GatewayError {
	return &GatewayError{Kind: KindAuthRequired, Service: name, StatusCode: http.StatusUnauthorized}
}

func upstreamUnavailable(name string, status int, err error) *GatewayError {
	return &GatewayError{Kind: KindUpstreamUnavailable, Service: name, StatusCode: status, Err: err}
}
