package internal

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	MethodNotAllowed       ErrorKind = "MethodNotAllowed"
	InvalidRequestBody     ErrorKind = "InvalidRequestBody"
	MissingField           ErrorKind = "MissingField"
	MalformedParameter     ErrorKind = "MalformedParameter"
	UpstreamTransportError ErrorKind = "UpstreamTransportError"
	UpstreamResponseError  ErrorKind = "UpstreamResponseError"
)

// RelayError carries the kind of failure and the status it surfaces as.
type RelayError struct {
	Kind    ErrorKind
	Status  int
	Message string

	// Body holds the raw processor payload for upstream errors.
	Body []byte
	// MerchantTxnNo is set for sale failures after the envelope was sent.
	MerchantTxnNo string
	Cause         error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

func IsKind(err error, kind ErrorKind) bool {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Kind == kind
	}
	return false
}

func errMethodNotAllowed() *RelayError {
	return &RelayError{Kind: MethodNotAllowed, Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}
}

func errInvalidRequestBody(cause error) *RelayError {
	return &RelayError{Kind: InvalidRequestBody, Status: http.StatusBadRequest, Message: "Invalid JSON", Cause: cause}
}

func errMissingField(message string, fields ...string) *RelayError {
	err := &RelayError{Kind: MissingField, Status: http.StatusBadRequest, Message: message}
	if len(fields) > 0 {
		err.Cause = fmt.Errorf("missing %v", fields)
	}
	return err
}

// errMalformedParameter is raised for values that cannot be rendered for signing.
// status is 400 when the value came from the caller and 500 when it was built internally.
func errMalformedParameter(name string, value any, status int) *RelayError {
	return &RelayError{
		Kind:    MalformedParameter,
		Status:  status,
		Message: fmt.Sprintf("Malformed parameter: %s", name),
		Cause:   fmt.Errorf("unsupported value type %T", value),
	}
}

func errUpstreamTransport(cause error) *RelayError {
	return &RelayError{Kind: UpstreamTransportError, Status: http.StatusBadGateway, Message: "Payment gateway unavailable", Cause: cause}
}

func errUpstreamResponse(status int, body []byte, cause error) *RelayError {
	return &RelayError{Kind: UpstreamResponseError, Status: status, Message: "Invalid payment gateway response", Body: body, Cause: cause}
}
