package pool

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"prizePool/internal/model"
)

func newCreditHarness(t *testing.T) *harness {
	t.Helper()
	policy := NewCreditPolicy(map[common.Address]CreditPlan{
		ticketAddr: {LimitMantissa: mantissa(t, "0.1"), RateMantissa: mantissa(t, "0.001")},
	})
	h := newHarness(t, policy)
	h.initialize(t, func(c *Config) { c.Tickets[0].Cap = nil })
	return h
}

func (h *harness) credit(t *testing.T) *CreditPolicy {
	t.Helper()
	policy, ok := h.pool.fees.(*CreditPolicy)
	require.True(t, ok)
	return policy
}

type fixedFee struct {
	fee *big.Int
}

func (fixedFee) Validate(*big.Int) error { return nil }

func (f fixedFee) Quote(context.Context, FeeRequest) (FeeQuote, error) {
	return FeeQuote{Fee: new(big.Int).Set(f.fee), BurnedCredit: big.NewInt(0)}, nil
}

func (fixedFee) Commit(context.Context, FeeRequest, FeeQuote) error { return nil }

func (fixedFee) OnDeposit(context.Context, FeeRequest) error { return nil }

func TestCreditPlanAboveMaxExitFeeRejected(t *testing.T) {
	policy := NewCreditPolicy(map[common.Address]CreditPlan{
		ticketAddr: {LimitMantissa: mantissa(t, "0.6"), RateMantissa: mantissa(t, "0.001")},
	})
	h := newHarness(t, policy)

	err := h.pool.Initialize(context.Background(), defaultConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFreshDepositorPaysFullExitFee(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1_000_000, ticketAddr)
	ctx := context.Background()

	_, err := h.pool.WithdrawInstantlyFrom(ctx, aliceAddr, aliceAddr, big.NewInt(100_000), ticketAddr, mantissa(t, "0.05"))
	require.ErrorIs(t, err, ErrFeeExceedsMaximum)
	requireAmount(t, 1_000_000, h.ticketBalance(t, ticketAddr, aliceAddr), "tickets after rejected withdrawal")
	requireAmount(t, 1_000_000, h.principal(t), "principal after rejected withdrawal")

	fee, err := h.pool.WithdrawInstantlyFrom(ctx, aliceAddr, aliceAddr, big.NewInt(100_000), ticketAddr, mantissa(t, "0.1"))
	require.NoError(t, err)
	requireAmount(t, 10_000, fee, "fee")
	requireAmount(t, 90_000, h.assetBalance(t, aliceAddr), "payout")
	requireAmount(t, 10_000, h.assetBalance(t, poolAddr), "retained fee")

	award, err := h.pool.AwardBalance(ctx)
	require.NoError(t, err)
	requireAmount(t, 10_000, award, "award")

	last := h.sink.events[len(h.sink.events)-1].Data.(model.InstantWithdrawalData)
	require.Equal(t, "10000", last.ExitFee)
}

func TestAccruedCreditCoversExitFee(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1_000_000, ticketAddr)
	h.clock.Advance(50 * time.Second)

	requireAmount(t, 50_000, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(1_000_000), h.clock.Now()), "credit")

	fee, err := h.pool.WithdrawInstantlyFrom(context.Background(), aliceAddr, aliceAddr, big.NewInt(100_000), ticketAddr, big.NewInt(0))
	require.NoError(t, err)
	requireAmount(t, 0, fee, "fee")
	requireAmount(t, 100_000, h.assetBalance(t, aliceAddr), "payout")
	requireAmount(t, 40_000, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(900_000), h.clock.Now()), "credit left")
}

func TestCreditIsCappedAtLimit(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1_000_000, ticketAddr)
	h.clock.Advance(24 * time.Hour)

	requireAmount(t, 100_000, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(1_000_000), h.clock.Now()), "credit")
}

func TestPartialCreditQuote(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1_000_000, ticketAddr)
	h.clock.Advance(5 * time.Second)

	quote, err := h.credit(t).Quote(context.Background(), FeeRequest{
		Holder:  aliceAddr,
		Ticket:  ticketAddr,
		Amount:  big.NewInt(100_000),
		Balance: big.NewInt(1_000_000),
		Now:     h.clock.Now(),
	})
	require.NoError(t, err)
	requireAmount(t, 5_000, quote.Fee, "fee")
	requireAmount(t, 5_000, quote.BurnedCredit, "burned")
	require.Equal(t, 50*time.Second, quote.Timelock)
}

func TestUntrackedHolderIsFullyAccrued(t *testing.T) {
	policy := NewCreditPolicy(map[common.Address]CreditPlan{
		ticketAddr: {LimitMantissa: mantissa(t, "0.1"), RateMantissa: mantissa(t, "0.001")},
	})
	quote, err := policy.Quote(context.Background(), FeeRequest{
		Holder:  bobAddr,
		Ticket:  ticketAddr,
		Amount:  big.NewInt(1000),
		Balance: big.NewInt(1000),
		Now:     time.Unix(0, 0),
	})
	require.NoError(t, err)
	requireAmount(t, 0, quote.Fee, "fee")
	require.Zero(t, quote.Timelock)
}

func TestTicketWithoutPlanIsFree(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1000, sponsorshipAddr)

	fee, err := h.pool.WithdrawInstantlyFrom(context.Background(), aliceAddr, aliceAddr, big.NewInt(1000), sponsorshipAddr, nil)
	require.NoError(t, err)
	requireAmount(t, 0, fee, "fee")
}

func TestFailedWithdrawalKeepsCredit(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 1_000_000, ticketAddr)
	h.clock.Advance(50 * time.Second)
	h.hook.failBurn = true

	_, err := h.pool.WithdrawInstantlyFrom(context.Background(), aliceAddr, aliceAddr, big.NewInt(100_000), ticketAddr, nil)
	require.ErrorIs(t, err, errHookRejected)
	requireAmount(t, 50_000, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(1_000_000), h.clock.Now()), "credit")
}

func TestExitFeeClampedToPoolMaximum(t *testing.T) {
	h := newHarness(t, fixedFee{fee: big.NewInt(1_000_000)})
	h.initialize(t, nil)
	h.deposit(t, aliceAddr, 100, ticketAddr)

	fee, err := h.pool.WithdrawInstantlyFrom(context.Background(), aliceAddr, aliceAddr, big.NewInt(100), ticketAddr, mantissa(t, "1"))
	require.NoError(t, err)
	requireAmount(t, 50, fee, "fee")
	requireAmount(t, 50, h.assetBalance(t, aliceAddr), "payout")
}

func TestTimelockFor(t *testing.T) {
	rate := big.NewInt(1_000_000_000_000_000) // 0.001

	require.Zero(t, timelockFor(big.NewInt(0), big.NewInt(100_000), rate))
	require.Equal(t, 100*time.Second, timelockFor(big.NewInt(10_000), big.NewInt(100_000), rate))
	require.Equal(t, 101*time.Second, timelockFor(big.NewInt(10_001), big.NewInt(100_000), rate))
	require.Equal(t, 100*time.Second, timelockFor(big.NewInt(1), big.NewInt(10), rate))
	require.Equal(t, 34*time.Second, timelockFor(big.NewInt(1), big.NewInt(30), rate))
	require.Equal(t, time.Duration(math.MaxInt64), timelockFor(big.NewInt(1), big.NewInt(10), big.NewInt(0)))
}

func TestSmallBalanceAccruesCredit(t *testing.T) {
	h := newCreditHarness(t)
	h.deposit(t, aliceAddr, 100, ticketAddr)
	h.clock.Advance(50 * time.Second)

	requireAmount(t, 5, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(100), h.clock.Now()), "credit")

	quote, err := h.credit(t).Quote(context.Background(), FeeRequest{
		Holder:  aliceAddr,
		Ticket:  ticketAddr,
		Amount:  big.NewInt(100),
		Balance: big.NewInt(100),
		Now:     h.clock.Now(),
	})
	require.NoError(t, err)
	requireAmount(t, 5, quote.Fee, "fee")
	requireAmount(t, 5, quote.BurnedCredit, "burned")
	require.Equal(t, 50*time.Second, quote.Timelock)

	h.clock.Advance(7 * time.Second)
	requireAmount(t, 5, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(100), h.clock.Now()), "credit rounds down")
	h.clock.Advance(3 * time.Second)
	requireAmount(t, 6, h.credit(t).CreditOf(aliceAddr, ticketAddr, big.NewInt(100), h.clock.Now()), "credit after 60s")
}
