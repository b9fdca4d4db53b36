// Package apperr is the application's typed error taxonomy. Handlers
// return (T, *Error) rather than throwing; the HTTP boundary adapter maps
// Error.Code to a status code via HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes, grouped the way the HTTP status table groups them.
const (
	// 400 - validation
	CodeValidationError          = "VALIDATION_ERROR"
	CodeInvalidEmail             = "INVALID_EMAIL"
	CodeInvalidPassword          = "INVALID_PASSWORD"
	CodeInvalidAddressFields     = "INVALID_ADDRESS_FIELDS"
	CodeCartEmpty                = "CART_EMPTY"
	CodeUnsupportedImageFormat   = "UNSUPPORTED_IMAGE_FORMAT"
	CodeImageLimitExceeded       = "IMAGE_LIMIT_EXCEEDED"
	CodeAddressBookLimitExceeded = "ADDRESS_BOOK_LIMIT_EXCEEDED"

	// 401 - auth
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"

	// 402 - payment
	CodePaymentDeclined = "PAYMENT_DECLINED"

	// 403 - authorization
	CodeForbidden = "FORBIDDEN"

	// 404 - missing (aggregate-specific *_NOT_FOUND codes reuse this bucket)
	CodeProductNotFound  = "PRODUCT_NOT_FOUND"
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	CodeAddressNotFound  = "ADDRESS_NOT_FOUND"

	// 409 - conflict
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeVersionConflict      = "VERSION_CONFLICT"
	CodeWishlistDuplicate    = "WISHLIST_DUPLICATE"
	CodeCategoryHasProducts  = "CATEGORY_HAS_PRODUCTS"
	CodeOutOfStock           = "OUT_OF_STOCK"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeOrderAlreadyComplete = "ORDER_ALREADY_COMPLETED"
	CodeOrderAlreadyCanceled = "ORDER_ALREADY_CANCELLED"
	CodeOrderAlreadyRefunded = "ORDER_ALREADY_REFUNDED"

	// 410 - consumed
	CodeVerificationTokenExpired = "VERIFICATION_TOKEN_EXPIRED"
	CodeVerificationTokenUsed    = "VERIFICATION_TOKEN_USED"

	// 422 - semantic
	CodeOrderNotCancelled            = "ORDER_NOT_CANCELLED"
	CodeRefundTransactionNotFound    = "REFUND_TRANSACTION_NOT_FOUND"
	CodeInvalidOrderStatusTransition = "INVALID_ORDER_STATUS_TRANSITION"

	// 423 - locked
	CodeAccountLocked = "ACCOUNT_LOCKED"

	// 500 - unmapped
	CodeInternal = "INTERNAL_SERVER_ERROR"

	// 504 - gateway
	CodePaymentTimeout = "PAYMENT_TIMEOUT"
)

var statusByCode = map[string]int{
	CodeValidationError:          http.StatusBadRequest,
	CodeInvalidEmail:             http.StatusBadRequest,
	CodeInvalidPassword:          http.StatusBadRequest,
	CodeInvalidAddressFields:     http.StatusBadRequest,
	CodeCartEmpty:                http.StatusBadRequest,
	CodeUnsupportedImageFormat:   http.StatusBadRequest,
	CodeImageLimitExceeded:       http.StatusBadRequest,
	CodeAddressBookLimitExceeded: http.StatusBadRequest,

	CodeInvalidCredentials:  http.StatusUnauthorized,
	CodeTokenExpired:        http.StatusUnauthorized,
	CodeInvalidToken:        http.StatusUnauthorized,
	CodeInvalidRefreshToken: http.StatusUnauthorized,

	CodePaymentDeclined: http.StatusPaymentRequired,

	CodeForbidden: http.StatusForbidden,

	CodeProductNotFound:  http.StatusNotFound,
	CodeOrderNotFound:    http.StatusNotFound,
	CodeUserNotFound:     http.StatusNotFound,
	CodeCategoryNotFound: http.StatusNotFound,
	CodeAddressNotFound:  http.StatusNotFound,

	CodeDuplicateEmail:       http.StatusConflict,
	CodeVersionConflict:      http.StatusConflict,
	CodeWishlistDuplicate:    http.StatusConflict,
	CodeCategoryHasProducts:  http.StatusConflict,
	CodeOutOfStock:           http.StatusConflict,
	CodeInsufficientStock:    http.StatusConflict,
	CodeOrderAlreadyComplete: http.StatusConflict,
	CodeOrderAlreadyCanceled: http.StatusConflict,
	CodeOrderAlreadyRefunded: http.StatusConflict,

	CodeVerificationTokenExpired: http.StatusGone,
	CodeVerificationTokenUsed:    http.StatusGone,

	CodeOrderNotCancelled:            http.StatusUnprocessableEntity,
	CodeRefundTransactionNotFound:    http.StatusUnprocessableEntity,
	CodeInvalidOrderStatusTransition: http.StatusUnprocessableEntity,

	CodeAccountLocked: http.StatusLocked,

	CodePaymentTimeout: http.StatusGatewayTimeout,
}

// Error is the application's sum-type result failure: a stable code plus
// optional human detail and field list, carrying an optional wrapped cause.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Err     error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus maps the error's code to its HTTP status. Unknown codes
// become 500 — the boundary never guesses at a 4xx for something it
// doesn't recognize.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates an Error with no wrapped cause.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error carrying an underlying cause.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// WithFields attaches the field names a VALIDATION_ERROR applies to.
func (e *Error) WithFields(fields ...string) *Error {
	e.Fields = fields
	return e
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Internal wraps an unexpected error as a 500, for errors that reached a
// command handler boundary without already being an *Error.
func Internal(err error) *Error {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, CodeInternal, "internal server error")
}
