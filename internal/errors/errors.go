package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPetNotFound is returned when a pet is not found.
	ErrPetNotFound = errors.New("pet not found")
	// ErrPetUnavailable is returned when a payment targets a pet that is not available.
	ErrPetUnavailable = errors.New("pet is not available for adoption")
	// ErrPaymentNotFound is returned when no payment record can be resolved.
	ErrPaymentNotFound = errors.New("payment record not found")
	// ErrPaymentNotRetryable is returned when a reference regeneration is
	// requested for a payment that is neither pending nor failed.
	ErrPaymentNotRetryable = errors.New("payment is not in a retryable state")
	// ErrInvalidTransition is returned when an administrative status change
	// is not allowed from the payment's current status.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrDuplicateTransaction is returned when the legacy gateway reports a
	// previously-processed transaction.
	ErrDuplicateTransaction = errors.New("duplicate transaction reported by gateway")
	// ErrSignatureInvalid is returned when a gateway callback signature does
	// not match. Treated as tampering, never accepted.
	ErrSignatureInvalid = errors.New("gateway signature mismatch")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailNotVerified is returned when an unverified user attempts a
	// payment or login.
	ErrEmailNotVerified = errors.New("email address not verified")
)

// GatewayError reports a network or HTTP failure talking to a payment gateway.
type GatewayError struct {
	Reason      string
	RawResponse string
}

func (e *GatewayError) Error() string {
	return e.Reason
}

// ProtocolError reports a malformed gateway callback payload.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed gateway callback: %s", e.Reason)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var gwErr *GatewayError
	var protoErr *ProtocolError
	switch {
	case errors.Is(err, ErrPetNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PET_NOT_FOUND")
	case errors.Is(err, ErrPetUnavailable):
		return NewHTTPError(http.StatusConflict, err.Error(), "PET_UNAVAILABLE")
	case errors.Is(err, ErrPaymentNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "PAYMENT_NOT_FOUND")
	case errors.Is(err, ErrPaymentNotRetryable):
		return NewHTTPError(http.StatusConflict, err.Error(), "PAYMENT_NOT_RETRYABLE")
	case errors.Is(err, ErrInvalidTransition):
		return NewHTTPError(http.StatusConflict, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, ErrDuplicateTransaction):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_TRANSACTION")
	case errors.Is(err, ErrSignatureInvalid):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "SIGNATURE_INVALID")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrEmailNotVerified):
		return NewHTTPError(http.StatusForbidden, err.Error(), "EMAIL_NOT_VERIFIED")
	case errors.As(err, &gwErr):
		return NewHTTPError(http.StatusBadGateway, gwErr.Reason, "GATEWAY_ERROR")
	case errors.As(err, &protoErr):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "PROTOCOL_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
