package runner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"prizePool/internal/fixedpoint"
	"prizePool/internal/model"
)

// ErrBalanceMismatch is returned by a balance op whose expected amount differs
// from the pool's balance.
var ErrBalanceMismatch = errors.New("balance mismatch")

// Apply executes one script operation against the world.
func (w *World) Apply(ctx context.Context, op model.ScriptOp) error {
	switch op.Op {
	case model.OpMint:
		to, err := ParseAddress(op.To)
		if err != nil {
			return fmt.Errorf("to: %w", err)
		}
		amount, err := fixedpoint.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		w.Token.Mint(to, amount)
		return nil

	case model.OpApprove:
		ticket, err := ParseAddress(op.Ticket)
		if err != nil {
			return fmt.Errorf("ticket: %w", err)
		}
		holder, err := ParseAddress(op.From)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}
		operator, err := ParseAddress(op.Operator)
		if err != nil {
			return fmt.Errorf("operator: %w", err)
		}
		amount, err := fixedpoint.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		return w.Tickets.Approve(ticket, holder, operator, amount)

	case model.OpDeposit:
		operator, err := ParseAddress(op.Operator)
		if err != nil {
			return fmt.Errorf("operator: %w", err)
		}
		to := operator
		if op.To != "" {
			if to, err = ParseAddress(op.To); err != nil {
				return fmt.Errorf("to: %w", err)
			}
		}
		ticket, err := ParseAddress(op.Ticket)
		if err != nil {
			return fmt.Errorf("ticket: %w", err)
		}
		var referrer common.Address
		if op.Referrer != "" {
			if referrer, err = ParseAddress(op.Referrer); err != nil {
				return fmt.Errorf("referrer: %w", err)
			}
		}
		amount, err := fixedpoint.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		return w.Pool.DepositTo(ctx, operator, to, amount, ticket, referrer)

	case model.OpWithdrawInstant:
		operator, from, ticket, amount, err := w.withdrawArgs(op)
		if err != nil {
			return err
		}
		maxFee := big.NewInt(0)
		if op.MaxFee != "" {
			if maxFee, err = fixedpoint.ParseMantissa(op.MaxFee); err != nil {
				return fmt.Errorf("max_fee: %w", err)
			}
		}
		fee, err := w.Pool.WithdrawInstantlyFrom(ctx, operator, from, amount, ticket, maxFee)
		if err != nil {
			return err
		}
		w.logger.Debug("withdraw instant applied", zap.String("fee", fee.String()))
		return nil

	case model.OpWithdrawTimelock:
		operator, from, ticket, amount, err := w.withdrawArgs(op)
		if err != nil {
			return err
		}
		unlock, err := w.Pool.WithdrawWithTimelockFrom(ctx, operator, from, amount, ticket)
		if err != nil {
			return err
		}
		w.logger.Debug("withdraw timelock applied", zap.Uint64("unlock", unlock))
		return nil

	case model.OpSweep:
		operator := w.cfg.Pool
		if op.Operator != "" {
			var err error
			if operator, err = ParseAddress(op.Operator); err != nil {
				return fmt.Errorf("operator: %w", err)
			}
		}
		users, err := ParseAddresses(op.Users)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		_, err = w.Pool.SweepTimelockBalances(ctx, operator, users)
		return err

	case model.OpAccrue:
		amount, err := fixedpoint.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		w.Rewards.Fund(amount)
		w.Rewards.Accrue(w.cfg.Pool, amount)
		return nil

	case model.OpAdvance:
		w.Clock.Advance(time.Duration(op.Seconds) * time.Second)
		return nil

	case model.OpBalance:
		balance, err := w.Pool.Balance(ctx)
		if err != nil {
			return err
		}
		w.logger.Info("pool balance", zap.String("balance", balance.String()))
		if op.Amount == "" {
			return nil
		}
		want, err := fixedpoint.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		if balance.Cmp(want) != 0 {
			return fmt.Errorf("%w: have %s, want %s", ErrBalanceMismatch, balance, want)
		}
		return nil

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// withdrawArgs reads operator, from (defaulting to operator), ticket and amount.
func (w *World) withdrawArgs(op model.ScriptOp) (common.Address, common.Address, common.Address, *big.Int, error) {
	var zero common.Address
	operator, err := ParseAddress(op.Operator)
	if err != nil {
		return zero, zero, zero, nil, fmt.Errorf("operator: %w", err)
	}
	from := operator
	if op.From != "" {
		if from, err = ParseAddress(op.From); err != nil {
			return zero, zero, zero, nil, fmt.Errorf("from: %w", err)
		}
	}
	ticket, err := ParseAddress(op.Ticket)
	if err != nil {
		return zero, zero, zero, nil, fmt.Errorf("ticket: %w", err)
	}
	amount, err := fixedpoint.ParseAmount(op.Amount)
	if err != nil {
		return zero, zero, zero, nil, err
	}
	return operator, from, ticket, amount, nil
}
