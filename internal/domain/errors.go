package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind categorizes failures so transports can report them consistently
type ErrorKind string

const (
	KindInvalidQuantity      ErrorKind = "INVALID_QUANTITY"
	KindInvalidResolution    ErrorKind = "INVALID_RESOLUTION"
	KindInvalidParameter     ErrorKind = "INVALID_PARAMETER"
	KindMissingParameter     ErrorKind = "MISSING_PARAMETER"
	KindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	KindInsufficientHoldings ErrorKind = "INSUFFICIENT_HOLDINGS"
	KindUpstreamUnavailable  ErrorKind = "UPSTREAM_UNAVAILABLE"
	KindUnknownSymbol        ErrorKind = "UNKNOWN_SYMBOL"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindUnauthenticated      ErrorKind = "UNAUTHENTICATED"
	KindInternal             ErrorKind = "INTERNAL"
)

// IsValidation reports whether the kind is a client-caused validation failure
func (k ErrorKind) IsValidation() bool {
	switch k {
	case KindInvalidQuantity, KindInvalidResolution, KindInvalidParameter, KindMissingParameter:
		return true
	default:
		return false
	}
}

// Error is the categorized error returned by every fallible domain operation.
// Required/Available are set for business-rule rejections.
type Error struct {
	Kind      ErrorKind
	Message   string
	Required  *decimal.Decimal
	Available *decimal.Decimal
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Required != nil && e.Available != nil {
		msg = fmt.Sprintf("%s. Required: %s, Available: %s", msg, e.Required.String(), e.Available.String())
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized error with a formatted message
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError categorizes an underlying error
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewInsufficientFunds reports a BUY (or fee) that the cash balance cannot cover
func NewInsufficientFunds(required, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientFunds,
		Message:   "insufficient balance",
		Required:  &required,
		Available: &available,
	}
}

// NewInsufficientHoldings reports a SELL larger than the held quantity
func NewInsufficientHoldings(required, available decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientHoldings,
		Message:   "insufficient holdings",
		Required:  &required,
		Available: &available,
	}
}

// KindOf returns the kind of a categorized error.
// Uncategorized errors are INTERNAL; a nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// AsError extracts the categorized error, if any
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	ok := errors.As(err, &domainErr)
	return domainErr, ok
}

// UpstreamError categorizes a provider failure. Errors already marked UNKNOWN_SYMBOL are kept,
// everything else (including timeouts) becomes UPSTREAM_UNAVAILABLE.
func UpstreamError(err error, format string, args ...any) error {
	if KindOf(err) == KindUnknownSymbol {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(KindUpstreamUnavailable, err, "provider timed out: "+format, args...)
	}
	return WrapError(KindUpstreamUnavailable, err, format, args...)
}
