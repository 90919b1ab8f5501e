package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
var (
	ErrEmptyBook        = errors.New("empty_book")
	ErrSymbolMismatch   = errors.New("symbol_mismatch")
	ErrPositionNotFound = errors.New("position_not_found")
)

// ValidationError represents a malformed order construction input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UnknownSideError is returned when a side token is neither bid nor ask.
type UnknownSideError struct {
	Side string
}

func (e *UnknownSideError) Error() string {
	return fmt.Sprintf("unknown side %q, must be one of: bid, ask", e.Side)
}

// UnsupportedOrderTypeError reports an order kind outside {limit, market}.
// Reaching it means an order was built without going through the factory.
type UnsupportedOrderTypeError struct {
	Kind OrderKind
}

func (e *UnsupportedOrderTypeError) Error() string {
	return fmt.Sprintf("unsupported order type %q", string(e.Kind))
}
