package pool

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"prizePool/internal/fixedpoint"
)

// CreditPlan configures credit accrual for one ticket. Both values are 1e18
// mantissas: Limit is the fraction of a balance that can accrue as credit and
// is also the full exit fee; Rate is the fraction accrued per second.
type CreditPlan struct {
	LimitMantissa *big.Int
	RateMantissa  *big.Int
}

type creditKey struct {
	holder common.Address
	ticket common.Address
}

type creditBalance struct {
	amount    *big.Int
	timestamp time.Time
}

// CreditPolicy charges early exits the part of amount * limit not yet covered
// by accrued credit. Holders with no recorded credit are treated as fully
// accrued; a deposit records their credit from then on.
type CreditPolicy struct {
	plans map[common.Address]CreditPlan

	mu      sync.Mutex
	credits map[creditKey]creditBalance
}

// NewCreditPolicy builds a policy. Tickets without a plan are never charged.
func NewCreditPolicy(plans map[common.Address]CreditPlan) *CreditPolicy {
	if plans == nil {
		plans = make(map[common.Address]CreditPlan)
	}
	return &CreditPolicy{
		plans:   plans,
		credits: make(map[creditKey]creditBalance),
	}
}

// Validate rejects plans whose limit exceeds the pool's maximum exit fee.
func (c *CreditPolicy) Validate(maxExitFee *big.Int) error {
	for ticket, plan := range c.plans {
		if plan.LimitMantissa == nil || plan.RateMantissa == nil {
			return fmt.Errorf("%w: incomplete credit plan for %s", ErrInvalidConfig, ticket.Hex())
		}
		if plan.LimitMantissa.Sign() < 0 || plan.RateMantissa.Sign() < 0 {
			return fmt.Errorf("%w: negative credit plan for %s", ErrInvalidConfig, ticket.Hex())
		}
		if maxExitFee != nil && plan.LimitMantissa.Cmp(maxExitFee) > 0 {
			return fmt.Errorf("%w: credit limit %s for %s above max exit fee %s",
				ErrInvalidConfig,
				fixedpoint.FormatMantissa(plan.LimitMantissa),
				ticket.Hex(),
				fixedpoint.FormatMantissa(maxExitFee),
			)
		}
	}
	return nil
}

// CreditOf returns the holder's credit accrued up to now on balance.
func (c *CreditPolicy) CreditOf(holder, ticket common.Address, balance *big.Int, now time.Time) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.plans[ticket]
	if !ok {
		return big.NewInt(0)
	}
	return c.accrued(plan, creditKey{holder: holder, ticket: ticket}, balance, now)
}

func (c *CreditPolicy) accrued(plan CreditPlan, key creditKey, balance *big.Int, now time.Time) *big.Int {
	limit := fixedpoint.MulMantissa(balance, plan.LimitMantissa)
	current, ok := c.credits[key]
	if !ok {
		return limit
	}

	total := new(big.Int).Set(current.amount)
	if seconds := int64(now.Sub(current.timestamp) / time.Second); seconds > 0 {
		earned := new(big.Int).Mul(balance, plan.RateMantissa)
		earned.Mul(earned, big.NewInt(seconds))
		total.Add(total, earned.Quo(earned, fixedpoint.One()))
	}
	if total.Cmp(limit) > 0 {
		return limit
	}
	return total
}

func (c *CreditPolicy) Quote(_ context.Context, req FeeRequest) (FeeQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[req.Ticket]
	if !ok {
		return FeeQuote{Fee: big.NewInt(0), BurnedCredit: big.NewInt(0)}, nil
	}

	credit := c.accrued(plan, creditKey{holder: req.Holder, ticket: req.Ticket}, req.Balance, req.Now)
	exitFee := fixedpoint.MulMantissa(req.Amount, plan.LimitMantissa)
	burned := fixedpoint.Min(credit, exitFee)
	fee := new(big.Int).Sub(exitFee, burned)

	return FeeQuote{
		Fee:          fee,
		BurnedCredit: burned,
		Timelock:     timelockFor(fee, req.Amount, plan.RateMantissa),
	}, nil
}

// timelockFor is how long amount must sit for its credit to cover fee:
// ceil(fee * 1e18 / (amount * rate)) seconds.
func timelockFor(fee, amount, rate *big.Int) time.Duration {
	if fee.Sign() == 0 {
		return 0
	}
	scaledRate := new(big.Int).Mul(amount, rate)
	if scaledRate.Sign() == 0 {
		return time.Duration(math.MaxInt64)
	}
	seconds := new(big.Int).Mul(fee, fixedpoint.One())
	seconds.Add(seconds, new(big.Int).Sub(scaledRate, big.NewInt(1)))
	seconds.Quo(seconds, scaledRate)
	maxSeconds := big.NewInt(int64(math.MaxInt64 / int64(time.Second)))
	if seconds.Cmp(maxSeconds) > 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds.Int64()) * time.Second
}

// Commit burns the credit the quote consumed.
func (c *CreditPolicy) Commit(_ context.Context, req FeeRequest, quote FeeQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[req.Ticket]
	if !ok {
		return nil
	}
	key := creditKey{holder: req.Holder, ticket: req.Ticket}
	credit := c.accrued(plan, key, req.Balance, req.Now)
	burned := quote.BurnedCredit
	if burned == nil {
		burned = big.NewInt(0)
	}
	if credit.Cmp(burned) < 0 {
		return fmt.Errorf("burn credit %s: only %s accrued", burned, credit)
	}
	c.credits[key] = creditBalance{amount: credit.Sub(credit, burned), timestamp: req.Now}
	return nil
}

// OnDeposit settles credit accrued on the balance held before the deposit.
func (c *CreditPolicy) OnDeposit(_ context.Context, req FeeRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[req.Ticket]
	if !ok {
		return nil
	}
	key := creditKey{holder: req.Holder, ticket: req.Ticket}
	credit := c.accrued(plan, key, req.Balance, req.Now)
	c.credits[key] = creditBalance{amount: credit, timestamp: req.Now}
	return nil
}

func (c *CreditPolicy) Checkpoint() func() {
	c.mu.Lock()
	saved := make(map[creditKey]creditBalance, len(c.credits))
	for k, v := range c.credits {
		saved[k] = creditBalance{amount: new(big.Int).Set(v.amount), timestamp: v.timestamp}
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.credits = saved
		c.mu.Unlock()
	}
}
