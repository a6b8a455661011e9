package engine

import "errors"

var (
	// ErrInsufficientNotional means a sized leg lands below the exchange
	// minimum notional floor; the caller should suggest more capital.
	ErrInsufficientNotional = errors.New("notional below exchange minimum")

	// ErrInvalidInput means the collaborator handed the engine malformed
	// data (negative price, NaN, Inf). Never absorbed silently.
	ErrInvalidInput = errors.New("invalid input")
)
