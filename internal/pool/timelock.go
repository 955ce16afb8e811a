package pool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"prizePool/internal/model"
)

type timelockState struct {
	balances map[common.Address]*big.Int
	unlocks  map[common.Address]uint64
	total    *big.Int
}

func newTimelockState() timelockState {
	return timelockState{
		balances: make(map[common.Address]*big.Int),
		unlocks:  make(map[common.Address]uint64),
		total:    big.NewInt(0),
	}
}

func (s timelockState) clone() timelockState {
	unlocks := make(map[common.Address]uint64, len(s.unlocks))
	for k, v := range s.unlocks {
		unlocks[k] = v
	}
	return timelockState{
		balances: cloneBalances(s.balances),
		unlocks:  unlocks,
		total:    new(big.Int).Set(s.total),
	}
}

// add locks amount for user until unlock. A later unlock applies to the
// user's whole timelocked balance.
func (s *timelockState) add(user common.Address, amount *big.Int, unlock uint64) {
	current, ok := s.balances[user]
	if !ok {
		current = new(big.Int)
	}
	s.balances[user] = new(big.Int).Add(current, amount)
	s.unlocks[user] = unlock
	s.total.Add(s.total, amount)
}

func (s *timelockState) remove(user common.Address) *big.Int {
	amount, ok := s.balances[user]
	if !ok {
		return big.NewInt(0)
	}
	delete(s.balances, user)
	delete(s.unlocks, user)
	s.total.Sub(s.total, amount)
	return amount
}

// WithdrawWithTimelockFrom burns amount of from's tickets and locks the full
// amount until the returned unix timestamp. The lock lasts as long as the fee
// policy needs to cover the exit fee with credit, bounded by the pool's maximum
// timelock. A lock that has already expired is paid out immediately.
func (p *Pool) WithdrawWithTimelockFrom(ctx context.Context, operator, from common.Address, amount *big.Int, ticket common.Address) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireTicket(ticket); err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, fmt.Errorf("withdraw: %w", ErrInvalidAmount)
	}

	req, err := p.withdrawRequest(ctx, from, amount, ticket)
	if err != nil {
		return 0, err
	}
	quote, err := p.fees.Quote(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("fee policy: %w", err)
	}
	duration := quote.Timelock
	if duration > p.cfg.MaxTimelock {
		duration = p.cfg.MaxTimelock
	}
	if duration < 0 {
		duration = 0
	}
	now := req.Now
	unlock := uint64(now.Add(duration).Unix())

	err = p.atomic("withdraw_timelock", func(tx *txn) error {
		if err := p.burn(ctx, operator, from, amount, ticket); err != nil {
			return err
		}
		if err := p.fees.Commit(ctx, req, quote); err != nil {
			return fmt.Errorf("fee policy: %w", err)
		}
		if _, err := p.sweep(ctx, tx, operator, []common.Address{from}, now); err != nil {
			return err
		}

		p.timelocks.add(from, amount, unlock)
		tx.emit(model.EventTimelockedWithdrawal, model.TimelockedWithdrawalData{
			Operator:        operator.Hex(),
			From:            from.Hex(),
			Ticket:          ticket.Hex(),
			Amount:          amount.String(),
			UnlockTimestamp: unlock,
		})

		if duration == 0 {
			if _, err := p.sweep(ctx, tx, operator, []common.Address{from}, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("timelocked withdrawal",
		zap.String("from", from.Hex()),
		zap.String("ticket", ticket.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("unlock", unlock),
	)
	return unlock, nil
}

// SweepTimelockBalances pays out every unlocked timelock balance among users
// and returns the total paid.
func (p *Pool) SweepTimelockBalances(ctx context.Context, operator common.Address, users []common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitialized(); err != nil {
		return nil, err
	}

	var swept *big.Int
	err := p.atomic("sweep", func(tx *txn) error {
		var err error
		swept, err = p.sweep(ctx, tx, operator, users, p.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if swept.Sign() > 0 {
		p.logger.Info("swept timelocks", zap.String("amount", swept.String()), zap.Int("users", len(users)))
	}
	return swept, nil
}

func (p *Pool) sweep(ctx context.Context, tx *txn, operator common.Address, users []common.Address, now time.Time) (*big.Int, error) {
	nowTs := uint64(now.Unix())
	total := big.NewInt(0)
	due := make([]common.Address, 0, len(users))
	seen := make(map[common.Address]struct{}, len(users))
	for _, user := range users {
		if _, ok := seen[user]; ok {
			continue
		}
		seen[user] = struct{}{}

		bal, ok := p.timelocks.balances[user]
		if !ok || bal.Sign() == 0 || p.timelocks.unlocks[user] > nowTs {
			continue
		}
		total.Add(total, bal)
		due = append(due, user)
	}
	if total.Sign() == 0 {
		return total, nil
	}

	if _, err := p.yield.Redeem(ctx, total); err != nil {
		return nil, fmt.Errorf("redeem timelocks: %w", err)
	}
	for _, user := range due {
		amount := p.timelocks.remove(user)
		if err := p.asset.Transfer(ctx, p.cfg.Address, user, amount); err != nil {
			return nil, fmt.Errorf("pay timelock %s: %w", user.Hex(), err)
		}
		tx.emit(model.EventTimelockedWithdrawalSwept, model.TimelockedWithdrawalSweptData{
			Operator: operator.Hex(),
			From:     user.Hex(),
			Amount:   amount.String(),
			Redeemed: amount.String(),
		})
	}
	return total, nil
}

// TimelockBalanceOf returns user's locked amount.
func (p *Pool) TimelockBalanceOf(user common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bal, ok := p.timelocks.balances[user]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// UnlockTimestampOf returns when user's locked amount becomes sweepable.
func (p *Pool) UnlockTimestampOf(user common.Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timelocks.unlocks[user]
}

// TimelockTotal returns the sum of all locked amounts.
func (p *Pool) TimelockTotal() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.timelocks.total)
}
