package pool

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FeeRequest describes a holder's ticket movement for fee purposes.
// Balance is the holder's ticket balance before the movement.
type FeeRequest struct {
	Holder  common.Address
	Ticket  common.Address
	Amount  *big.Int
	Balance *big.Int
	Now     time.Time
}

// FeeQuote is a policy's answer for an early exit.
type FeeQuote struct {
	Fee          *big.Int
	BurnedCredit *big.Int
	Timelock     time.Duration
}

// FeePolicy decides exit fees and timelock durations.
//
// Quote must not change state; Commit applies a quote once the withdrawal is
// certain. The pool clamps Fee to amount * maxExitFee and Timelock to the
// maximum timelock duration.
type FeePolicy interface {
	Validate(maxExitFee *big.Int) error
	Quote(ctx context.Context, req FeeRequest) (FeeQuote, error)
	Commit(ctx context.Context, req FeeRequest, quote FeeQuote) error
	OnDeposit(ctx context.Context, req FeeRequest) error
}

// ZeroFee never charges and never locks.
type ZeroFee struct{}

func (ZeroFee) Validate(*big.Int) error { return nil }

func (ZeroFee) Quote(context.Context, FeeRequest) (FeeQuote, error) {
	return FeeQuote{Fee: big.NewInt(0), BurnedCredit: big.NewInt(0)}, nil
}

func (ZeroFee) Commit(context.Context, FeeRequest, FeeQuote) error { return nil }

func (ZeroFee) OnDeposit(context.Context, FeeRequest) error { return nil }
