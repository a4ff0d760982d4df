package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error so the transport layer can map it to a status code
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindValidation
	KindRuleViolation
	KindConflict
	KindForbidden
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRuleViolation:
		return "rule_violation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified, client-facing error
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	var inner *Error
	if e.Err == nil || errors.As(e.Err, &inner) {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a not-found error for the named entity
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func RuleViolation(message string) *Error {
	return &Error{Kind: KindRuleViolation, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Wrap returns a copy of a sentinel with a more specific message, keeping the sentinel reachable via errors.Is
func Wrap(sentinel *Error, message string) *Error {
	return &Error{Kind: sentinel.Kind, Message: message, Err: sentinel}
}

var (
	ErrAccessDenied = Forbidden("access denied")

	// Order workflow
	ErrCartEmpty          = RuleViolation("cart is empty")
	ErrInsufficientStock  = RuleViolation("insufficient stock")
	ErrSkuUnavailable     = RuleViolation("product is no longer available")
	ErrOrderNotCancelable = RuleViolation("cannot cancel order in current status")

	// Catalog and cart
	ErrInvalidQuantity     = Validation("quantity must be greater than 0")
	ErrProductUnavailable  = RuleViolation("product is not available")
	ErrAlreadyInWishlist   = RuleViolation("product already in wishlist")
	ErrAlreadyReviewed     = RuleViolation("you have already reviewed this product")
	ErrInvalidRating       = Validation("rating must be between 1 and 5")
	ErrNegativeStock       = Validation("quantity must not be negative")
	ErrNonPositivePrice    = Validation("price must be greater than 0")
	ErrNegativeAdjustments = Validation("shipping cost, tax and discount must not be negative")
)

// InsufficientStockFor names the product whose stock cannot cover the request
func InsufficientStockFor(productName string) *Error {
	return Wrap(ErrInsufficientStock, "insufficient stock for: "+productName)
}

// UnavailableSku names the product whose SKU was deleted or deactivated
func UnavailableSku(productName string) *Error {
	return Wrap(ErrSkuUnavailable, "product is no longer available: "+productName)
}
