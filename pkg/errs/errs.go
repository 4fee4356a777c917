package errs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"encore.dev"
)

// Error codes
const (
	// 400 Bad Request
	InvalidArgument    = "INVALID_ARGUMENT"
	ValidationFailed   = "VALIDATION_FAILED"
	FailedPrecondition = "FAILED_PRECONDITION"

	// 401 Unauthorized
	Unauthenticated = "UNAUTHENTICATED"
	TokenExpired    = "TOKEN_EXPIRED"

	// 403 Forbidden
	Forbidden        = "FORBIDDEN"
	PermissionDenied = "PERMISSION_DENIED"

	// 404 Not Found
	NotFound = "NOT_FOUND"

	// 409 Conflict
	Conflict      = "CONFLICT"
	AlreadyExists = "ALREADY_EXISTS"

	// 422 Unprocessable Entity
	UnprocessableEntity = "UNPROCESSABLE_ENTITY"

	// 429 Too Many Requests
	TooManyRequests   = "TOO_MANY_REQUESTS"
	ResourceExhausted = "RESOURCE_EXHAUSTED"

	// 500 Internal Server Error
	Internal      = "INTERNAL_ERROR"
	Unimplemented = "UNIMPLEMENTED"

	// 503 Service Unavailable
	ServiceUnavailable = "SERVICE_UNAVAILABLE"

	// 504 Gateway Timeout
	DeadlineExceeded = "DEADLINE_EXCEEDED"

	// Authentication domain codes (AUTH)
	AuthEmailTaken              = "AUTH_EMAIL_TAKEN"
	AuthInvalidCredentials      = "AUTH_INVALID_CREDENTIALS"
	AuthUserNotFound            = "AUTH_USER_NOT_FOUND"
	AuthUserInactive            = "AUTH_USER_INACTIVE"
	AuthWeakPassword            = "AUTH_WEAK_PASSWORD"
	AuthInvalidVerificationCode = "AUTH_INVALID_VERIFICATION_CODE"
	AuthVerificationCodeExpired = "AUTH_VERIFICATION_CODE_EXPIRED"
	AuthVerificationCodeUsed    = "AUTH_VERIFICATION_CODE_USED"
	AuthEmailAlreadyVerified    = "AUTH_EMAIL_ALREADY_VERIFIED"
	AuthInvalidRefreshToken     = "AUTH_INVALID_REFRESH_TOKEN"
	AuthRateLimitExceeded       = "AUTH_RATE_LIMIT_EXCEEDED"
	AuthTokenExpired            = "AUTH_TOKEN_EXPIRED"
	AuthUnauthenticated         = "AUTH_UNAUTHENTICATED"
	AuthForbidden               = "AUTH_FORBIDDEN"
	AuthEmailVerifyRequired     = "AUTH_EMAIL_VERIFY_REQUIRED"

	// Catalog domain codes (CAT)
	CatProductNotFound    = "CAT_PRODUCT_NOT_FOUND"
	CatCategoryNotFound   = "CAT_CATEGORY_NOT_FOUND"
	CatCategoryDepth      = "CAT_CATEGORY_DEPTH_EXCEEDED"
	CatCategoryHasItems   = "CAT_CATEGORY_HAS_ITEMS"
	CatSlugTaken          = "CAT_SLUG_TAKEN"
	CatProductUnavailable = "CAT_PRODUCT_UNAVAILABLE"

	// Cart domain codes (CRT)
	CrtItemNotFound    = "CRT_ITEM_NOT_FOUND"
	CrtEmpty           = "CRT_EMPTY"
	CrtSessionNotFound = "CRT_SESSION_NOT_FOUND"
	CrtQuantityInvalid = "CRT_QUANTITY_INVALID"
	CrtStockExceeded   = "CRT_STOCK_EXCEEDED"

	// Order domain codes (ORD)
	OrdNotFound          = "ORD_NOT_FOUND"
	OrdInvalidTransition = "ORD_INVALID_TRANSITION"
	OrdAddressRequired   = "ORD_ADDRESS_REQUIRED"

	// Content domain codes (CNT)
	CntContactNotFound     = "CNT_CONTACT_NOT_FOUND"
	CntAlreadySubscribed   = "CNT_ALREADY_SUBSCRIBED"
	CntSubscriberNotFound  = "CNT_SUBSCRIBER_NOT_FOUND"
	CntTestimonialNotFound = "CNT_TESTIMONIAL_NOT_FOUND"
	CntPageNotFound        = "CNT_PAGE_NOT_FOUND"

	// Notification domain codes (NTF)
	NtfInvalidTemplate   = "NTF_INVALID_TEMPLATE"
	NtfTemplateNotFound  = "NTF_TEMPLATE_NOT_FOUND"
	NtfQueueInsertFailed = "NTF_QUEUE_INSERT_FAILED"
	NtfQueueQueryFailed  = "NTF_QUEUE_QUERY_FAILED"
	NtfNotFound          = "NTF_NOT_FOUND"

	// Settings domain codes (SET)
	SetUnknownKey   = "SET_UNKNOWN_KEY"
	SetInvalidValue = "SET_INVALID_VALUE"
)

// Error represents a structured error
type Error struct {
	Code          string      `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Details       interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("[%s] %s: %s", e.CorrelationID, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code for the error
func (e *Error) HTTPStatus() int {
	switch e.Code {
	// Authentication domain mappings
	case AuthEmailTaken:
		return http.StatusConflict
	case AuthInvalidCredentials, AuthUserNotFound, AuthUserInactive:
		return http.StatusUnauthorized
	case AuthWeakPassword, AuthInvalidVerificationCode:
		return http.StatusBadRequest
	case AuthVerificationCodeExpired:
		return http.StatusGone
	case AuthVerificationCodeUsed, AuthEmailAlreadyVerified:
		return http.StatusConflict
	case AuthInvalidRefreshToken, AuthTokenExpired, AuthUnauthenticated:
		return http.StatusUnauthorized
	case AuthRateLimitExceeded:
		return http.StatusTooManyRequests
	case AuthForbidden, AuthEmailVerifyRequired:
		return http.StatusForbidden

	// Catalog domain mappings
	case CatProductNotFound, CatCategoryNotFound:
		return http.StatusNotFound
	case CatSlugTaken, CatCategoryHasItems:
		return http.StatusConflict
	case CatCategoryDepth:
		return http.StatusBadRequest
	case CatProductUnavailable:
		return http.StatusConflict

	// Cart domain mappings
	case CrtItemNotFound, CrtSessionNotFound:
		return http.StatusNotFound
	case CrtEmpty, CrtQuantityInvalid:
		return http.StatusBadRequest
	case CrtStockExceeded:
		return http.StatusConflict

	// Order domain mappings
	case OrdNotFound:
		return http.StatusNotFound
	case OrdInvalidTransition:
		return http.StatusConflict
	case OrdAddressRequired:
		return http.StatusBadRequest

	// Content domain mappings
	case CntContactNotFound, CntSubscriberNotFound, CntTestimonialNotFound, CntPageNotFound:
		return http.StatusNotFound
	case CntAlreadySubscribed:
		return http.StatusConflict

	// Notification domain mappings
	case NtfInvalidTemplate:
		return http.StatusBadRequest
	case NtfTemplateNotFound, NtfNotFound:
		return http.StatusNotFound
	case NtfQueueInsertFailed, NtfQueueQueryFailed:
		return http.StatusInternalServerError

	// Settings domain mappings
	case SetUnknownKey:
		return http.StatusNotFound
	case SetInvalidValue:
		return http.StatusBadRequest

	// Generic mappings
	case InvalidArgument, ValidationFailed:
		return http.StatusBadRequest
	case FailedPrecondition:
		return http.StatusBadRequest
	case Unauthenticated, TokenExpired:
		return http.StatusUnauthorized
	case Forbidden, PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, AlreadyExists:
		return http.StatusConflict
	case UnprocessableEntity:
		return http.StatusUnprocessableEntity
	case TooManyRequests, ResourceExhausted:
		return http.StatusTooManyRequests
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	case Unimplemented:
		return http.StatusNotImplemented
	case DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		// Heuristics for domain-prefixed codes and common terms
		lc := strings.ToLower(e.Code)
		switch {
		case strings.Contains(lc, "not_found"):
			return http.StatusNotFound
		case strings.Contains(lc, "conflict"):
			return http.StatusConflict
		case strings.Contains(lc, "unauth"):
			return http.StatusUnauthorized
		case strings.Contains(lc, "forbidden"):
			return http.StatusForbidden
		case strings.Contains(lc, "rate_limit") || strings.Contains(lc, "too_many"):
			return http.StatusTooManyRequests
		case strings.HasPrefix(strings.ToUpper(e.Code), "CAT_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "CRT_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "ORD_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "USR_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "CNT_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "NTF_") ||
			strings.HasPrefix(strings.ToUpper(e.Code), "SET_"):
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
}

// New creates a new error
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to an error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithCorrelationID adds correlation ID to an error
func (e *Error) WithCorrelationID(correlationID string) *Error {
	e.CorrelationID = correlationID
	return e
}

// CorrelationIDFromContext returns a correlation_id tied to current request if possible,
// otherwise generates a time-based fallback.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx != nil {
		if req := encore.CurrentRequest(); req != nil {
			// Encore does not expose a canonical request id yet; use path + timestamp surrogate
			if req.Path != "" {
				return fmt.Sprintf("%s-%d", req.Path, time.Now().UnixNano())
			}
		}
	}
	return fmt.Sprintf("cid-%d", time.Now().UnixNano())
}

// E creates a domain-coded error and auto-fills correlation_id from context.
func E(ctx context.Context, code, message string) *Error {
	return New(code, message).WithCorrelationID(CorrelationIDFromContext(ctx))
}

// EDetails creates a domain-coded error with details and auto correlation_id.
func EDetails(ctx context.Context, code, message string, details interface{}) *Error {
	return (&Error{Code: code, Message: message, Details: details}).WithCorrelationID(CorrelationIDFromContext(ctx))
}

// NewConflict creates a 409 Conflict error with optional details
func NewConflict(message string, details interface{}) *Error {
	return &Error{Code: Conflict, Message: message, Details: details}
}
