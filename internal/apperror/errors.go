package apperror

import (
	"github.com/pkg/errors"
)

// Kind classifies an error for transport mapping and caller retry decisions.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
	KindTimeout
)

var (
	ErrInvalidPageSize  = Validation("page and pageSize must be positive integers")
	ErrMalformedOrderID = Validation("order_id is not a valid identifier")
	ErrInvalidStatus    = Validation("status must be one of pending, success, failed")
	ErrInvalidSortField = Validation("sortBy must be one of payment_time, transaction_amount, order_amount, status")
	ErrInvalidSortOrder = Validation("sortOrder must be asc or desc")

	ErrOrderNotFound    = NotFound("no order status row matches the given order id")
	ErrDuplicateOrderID = Conflict("an order with this custom_order_id already exists")

	ErrStoreUnavailable = Unavailable("store is unavailable")
	ErrQueryTimeout     = Timeout("query exceeded the caller deadline")
)

// Error carries a kind alongside a human-readable message. Wrapped causes are
// preserved for logging but never shown to external callers.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// Is matches the sentinel values above with errors.Is even after the error was
// copied by Wrap to carry a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind && t.msg == e.msg
}

func Validation(msg string) *Error  { return &Error{kind: KindValidation, msg: msg} }
func NotFound(msg string) *Error    { return &Error{kind: KindNotFound, msg: msg} }
func Conflict(msg string) *Error    { return &Error{kind: KindConflict, msg: msg} }
func Unavailable(msg string) *Error { return &Error{kind: KindUnavailable, msg: msg} }
func Timeout(msg string) *Error     { return &Error{kind: KindTimeout, msg: msg} }

// Wrap attaches a cause to a copy of the given sentinel.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{kind: sentinel.kind, msg: sentinel.msg, cause: cause}
}

// KindOf extracts the kind from any error in the chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}
