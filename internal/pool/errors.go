package pool

import "errors"

var (
	ErrExceedsLiquidityCap = errors.New("exceeds liquidity cap")
	ErrFeeExceedsMaximum   = errors.New("exit fee exceeds maximum")
	ErrUnrecognizedTicket  = errors.New("unrecognized ticket")
	ErrAlreadyInitialized  = errors.New("already initialized")
	ErrNotInitialized      = errors.New("not initialized")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientTickets = errors.New("insufficient tickets")
	ErrTicketNotControlled = errors.New("ticket not controlled by pool")
	ErrInvalidConfig       = errors.New("invalid config")
)
