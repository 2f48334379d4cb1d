package oracle

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// Kind classifies why a query produced no decision. None of them is retried
// within the cycle; the next tick is the retry.
type Kind string

const (
	KindTransport Kind = "transport"
	KindMalformed Kind = "malformed"
	KindSchema    Kind = "schema"
)

// Error is an oracle failure.
type Error struct {
	Kind       Kind
	HTTPStatus int // 0 when unknown or not an HTTP failure
	Err        error
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("oracle %s failure (http %d): %v", e.Kind, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("oracle %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsFailure reports whether err is an oracle failure of the given kind.
func IsFailure(err error, kind Kind) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == kind
}

// wrapTransport classifies a provider SDK error.
func wrapTransport(err error) error {
	if err == nil {
		return nil
	}
	var oe *Error
	if errors.As(err, &oe) {
		return err
	}
	return &Error{Kind: KindTransport, HTTPStatus: httpStatus(err), Err: err}
}

// httpStatus extracts a status code from an SDK error, falling back to
// scanning the message for the common codes.
func httpStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	msg := err.Error()
	for _, code := range []int{
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusPaymentRequired,
		http.StatusBadRequest,
	} {
		if strings.Contains(msg, fmt.Sprintf("%d", code)) {
			return code
		}
	}
	return 0
}
