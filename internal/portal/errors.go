package portal

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a portal failure so callers can dispatch on the cause
// without matching message substrings.
type Kind int

const (
	// KindNoSavedCredentials means a reconnect was attempted with nothing to
	// reconnect with.
	KindNoSavedCredentials Kind = iota
	// KindSessionExpired is detected via login-page redirects or upstream 401s
	// and triggers at most one reconnect-and-retry.
	KindSessionExpired
	// KindInvalidCredentials means the upstream login POST was rejected.
	KindInvalidCredentials
	// KindInputValidation covers local precondition failures (code length,
	// empty fields, malformed dates). No network call is made.
	KindInputValidation
	// KindContractViolation means the upstream answered with an unexpected
	// shape: missing anti-forgery token, unparseable JSON.
	KindContractViolation
	// KindUpstreamRejected is a non-2xx portal response not otherwise
	// classified; carries a truncated body for diagnostics.
	KindUpstreamRejected
	// KindTransport is a network-level failure reaching the portal.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNoSavedCredentials:
		return "no_saved_credentials"
	case KindSessionExpired:
		return "session_expired"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInputValidation:
		return "input_validation"
	case KindContractViolation:
		return "contract_violation"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

// Error is a classified portal failure. Body, when set, holds a truncated
// upstream response for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Body    string
	cause   error
}

func (e *Error) Error() string {
	if e.Body != "" {
		return e.Message + ": " + e.Body
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two portal errors of the same kind.
func (e *Error) Is(target error) bool {
	var pe *Error
	if errors.As(target, &pe) {
		return pe.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// ErrNoSavedCredentials is returned by reconnect paths when no credential
// record exists for the user. Callers must be able to tell it apart from
// transient failures.
var ErrNoSavedCredentials = &Error{
	Kind:    KindNoSavedCredentials,
	Message: "no saved portal credentials for this user",
}

// IsKind reports whether err is a portal error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// HTTPStatus maps a portal error onto the local API status code: session
// problems surface as 404, rejected logins and bad input as 400, everything
// else as a server-side failure.
func HTTPStatus(err error) int {
	var pe *Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case KindSessionExpired:
		return http.StatusNotFound
	case KindNoSavedCredentials, KindInvalidCredentials, KindInputValidation:
		return http.StatusBadRequest
	case KindUpstreamRejected, KindContractViolation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// truncateBody bounds an upstream body for inclusion in error messages.
const maxBodyPreview = 200

func truncateBody(body string) string {
	if len(body) > maxBodyPreview {
		return body[:maxBodyPreview] + "..."
	}
	return body
}
