// Package pool implements the depositor-facing ledger of a prize pool:
// deposits, instant and timelocked withdrawals, liquidity caps and exit fees.
package pool

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"prizePool/internal/fixedpoint"
	"prizePool/internal/model"
)

// TicketConfig registers a ticket. A nil Cap means unlimited.
type TicketConfig struct {
	Address common.Address
	Cap     *big.Int
}

// Config holds pool parameters fixed at initialization.
type Config struct {
	Address     common.Address
	Asset       common.Address
	Staking     common.Address
	Rewards     common.Address
	Tickets     []TicketConfig
	MaxExitFee  *big.Int
	MaxTimelock time.Duration
}

// Deps are the collaborators a pool drives.
type Deps struct {
	Yield   YieldSource
	Asset   AssetTransferer
	Tickets TicketLedger
	Fees    FeePolicy
	Hooks   []Hook
	Sinks   []EventSink
	// Journal lists collaborators restored when an operation fails.
	Journal []Checkpointer
	Now     func() time.Time
	Logger  *zap.Logger
}

// Pool is a prize pool ledger. All methods are safe for concurrent use and
// are applied one at a time.
type Pool struct {
	yield   YieldSource
	asset   AssetTransferer
	tickets TicketLedger
	fees    FeePolicy
	hooks   []Hook
	sinks   []EventSink
	journal []Checkpointer
	now     func() time.Time
	logger  *zap.Logger

	mu          sync.Mutex
	initialized bool
	cfg         Config
	caps        map[common.Address]*big.Int
	seq         uint64
	timelocks   timelockState
}

func New(deps Deps) *Pool {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Fees == nil {
		deps.Fees = ZeroFee{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	journal := append([]Checkpointer(nil), deps.Journal...)
	if cp, ok := deps.Fees.(Checkpointer); ok {
		journal = append(journal, cp)
	}

	return &Pool{
		yield:     deps.Yield,
		asset:     deps.Asset,
		tickets:   deps.Tickets,
		fees:      deps.Fees,
		hooks:     deps.Hooks,
		sinks:     deps.Sinks,
		journal:   journal,
		now:       deps.Now,
		logger:    deps.Logger,
		timelocks: newTimelockState(),
	}
}

// Initialize validates cfg and activates the pool. It succeeds at most once.
func (p *Pool) Initialize(ctx context.Context, cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return ErrAlreadyInitialized
	}
	if p.yield == nil || p.asset == nil || p.tickets == nil {
		return fmt.Errorf("%w: missing collaborators", ErrInvalidConfig)
	}
	if cfg.Address == (common.Address{}) {
		return fmt.Errorf("%w: pool address is required", ErrInvalidConfig)
	}
	if cfg.Asset != p.yield.Token() {
		return fmt.Errorf("%w: asset %s does not match yield token %s", ErrInvalidConfig, cfg.Asset.Hex(), p.yield.Token().Hex())
	}
	if cfg.Staking != p.yield.Staking() {
		return fmt.Errorf("%w: staking %s does not match yield staking %s", ErrInvalidConfig, cfg.Staking.Hex(), p.yield.Staking().Hex())
	}
	if cfg.Rewards != p.yield.Rewards() {
		return fmt.Errorf("%w: rewards %s does not match yield rewards %s", ErrInvalidConfig, cfg.Rewards.Hex(), p.yield.Rewards().Hex())
	}
	if len(cfg.Tickets) == 0 {
		return fmt.Errorf("%w: at least one ticket is required", ErrInvalidConfig)
	}
	if cfg.MaxExitFee == nil {
		cfg.MaxExitFee = big.NewInt(0)
	}
	if cfg.MaxExitFee.Sign() < 0 || cfg.MaxExitFee.Cmp(fixedpoint.One()) > 0 {
		return fmt.Errorf("%w: max exit fee %s out of range", ErrInvalidConfig, fixedpoint.FormatMantissa(cfg.MaxExitFee))
	}
	if cfg.MaxTimelock < 0 {
		return fmt.Errorf("%w: negative max timelock", ErrInvalidConfig)
	}
	if err := p.fees.Validate(cfg.MaxExitFee); err != nil {
		return err
	}

	caps := make(map[common.Address]*big.Int, len(cfg.Tickets))
	tickets := make([]string, 0, len(cfg.Tickets))
	for _, tc := range cfg.Tickets {
		if _, dup := caps[tc.Address]; dup {
			return fmt.Errorf("%w: duplicate ticket %s", ErrInvalidConfig, tc.Address.Hex())
		}
		if tc.Cap != nil && tc.Cap.Sign() < 0 {
			return fmt.Errorf("%w: negative cap for %s", ErrInvalidConfig, tc.Address.Hex())
		}
		controller, err := p.tickets.Controller(ctx, tc.Address)
		if err != nil {
			return fmt.Errorf("ticket controller %s: %w", tc.Address.Hex(), err)
		}
		if controller != cfg.Address {
			return fmt.Errorf("%w: %s is controlled by %s", ErrTicketNotControlled, tc.Address.Hex(), controller.Hex())
		}
		caps[tc.Address] = tc.Cap
		tickets = append(tickets, tc.Address.Hex())
	}

	p.cfg = cfg
	p.caps = caps
	p.initialized = true

	p.publish([]pendingEvent{{
		name: model.EventPoolInitialized,
		data: model.PoolInitializedData{
			Staking:         cfg.Staking.Hex(),
			Rewards:         cfg.Rewards.Hex(),
			Asset:           cfg.Asset.Hex(),
			Tickets:         tickets,
			MaxExitFee:      fixedpoint.FormatMantissa(cfg.MaxExitFee),
			MaxTimelockSecs: uint64(cfg.MaxTimelock / time.Second),
		},
	}})

	p.logger.Info("pool initialized",
		zap.String("pool", cfg.Address.Hex()),
		zap.String("asset", cfg.Asset.Hex()),
		zap.String("staking", cfg.Staking.Hex()),
		zap.Int("tickets", len(cfg.Tickets)),
	)
	return nil
}

// Token returns the underlying asset.
func (p *Pool) Token() common.Address {
	return p.yield.Token()
}

// Tickets returns the registered tickets in configuration order.
func (p *Pool) Tickets() []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]common.Address, 0, len(p.cfg.Tickets))
	for _, tc := range p.cfg.Tickets {
		out = append(out, tc.Address)
	}
	return out
}

// LiquidityCap returns ticket's cap, nil when unlimited.
func (p *Pool) LiquidityCap(ticket common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireTicket(ticket); err != nil {
		return nil, err
	}
	if c := p.caps[ticket]; c != nil {
		return new(big.Int).Set(c), nil
	}
	return nil, nil
}

// Balance returns the pool's total assets as reported by the yield adapter.
func (p *Pool) Balance(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.yield.Balance(ctx)
}

// DepositTo takes amount of the asset from operator and mints amount of
// ticket to `to`.
func (p *Pool) DepositTo(ctx context.Context, operator, to common.Address, amount *big.Int, ticket, referrer common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireTicket(ticket); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("deposit: %w", ErrInvalidAmount)
	}

	supply, err := p.tickets.TotalSupply(ctx, ticket)
	if err != nil {
		return fmt.Errorf("ticket supply: %w", err)
	}
	if limit := p.caps[ticket]; limit != nil {
		if next := new(big.Int).Add(supply, amount); next.Cmp(limit) > 0 {
			return fmt.Errorf("deposit %s: %w (supply %s, cap %s)", amount, ErrExceedsLiquidityCap, supply, limit)
		}
	}

	err = p.atomic("deposit", func(tx *txn) error {
		balance, err := p.tickets.BalanceOf(ctx, ticket, to)
		if err != nil {
			return fmt.Errorf("ticket balance: %w", err)
		}
		if err := p.fees.OnDeposit(ctx, FeeRequest{Holder: to, Ticket: ticket, Amount: amount, Balance: balance, Now: p.now()}); err != nil {
			return fmt.Errorf("fee policy: %w", err)
		}
		if err := p.asset.Transfer(ctx, operator, p.cfg.Address, amount); err != nil {
			return fmt.Errorf("pull deposit: %w", err)
		}
		if err := p.yield.Supply(ctx, amount); err != nil {
			return fmt.Errorf("supply: %w", err)
		}
		notice := MintNotice{Operator: operator, To: to, Ticket: ticket, Amount: amount, Referrer: referrer}
		for _, h := range p.hooks {
			if err := h.BeforeMint(ctx, notice); err != nil {
				return fmt.Errorf("mint hook: %w", err)
			}
		}
		if err := p.tickets.Mint(ctx, ticket, to, amount); err != nil {
			return fmt.Errorf("mint: %w", err)
		}

		tx.emit(model.EventDeposited, model.DepositedData{
			Operator: operator.Hex(),
			To:       to.Hex(),
			Ticket:   ticket.Hex(),
			Amount:   amount.String(),
			Referrer: referrer.Hex(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	p.logger.Info("deposit",
		zap.String("operator", operator.Hex()),
		zap.String("to", to.Hex()),
		zap.String("ticket", ticket.Hex()),
		zap.String("amount", amount.String()),
	)
	return nil
}

// WithdrawInstantlyFrom burns amount of from's tickets and pays amount minus
// the exit fee. maxFeeFraction is the caller's tolerance as a 1e18 mantissa.
// The fee stays in the pool.
func (p *Pool) WithdrawInstantlyFrom(ctx context.Context, operator, from common.Address, amount *big.Int, ticket common.Address, maxFeeFraction *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireTicket(ticket); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("withdraw: %w", ErrInvalidAmount)
	}
	if maxFeeFraction == nil {
		maxFeeFraction = big.NewInt(0)
	}
	if maxFeeFraction.Sign() < 0 {
		return nil, fmt.Errorf("withdraw: %w: negative fee tolerance", ErrInvalidAmount)
	}

	req, err := p.withdrawRequest(ctx, from, amount, ticket)
	if err != nil {
		return nil, err
	}
	quote, err := p.fees.Quote(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fee policy: %w", err)
	}
	fee := fixedpoint.Min(quote.Fee, fixedpoint.MulMantissa(amount, p.cfg.MaxExitFee))
	if tolerated := fixedpoint.MulMantissa(amount, maxFeeFraction); fee.Cmp(tolerated) > 0 {
		return nil, fmt.Errorf("withdraw %s: %w (fee %s, tolerated %s)", amount, ErrFeeExceedsMaximum, fee, tolerated)
	}

	var redeemed *big.Int
	err = p.atomic("withdraw_instant", func(tx *txn) error {
		var err error
		redeemed, err = p.yield.Redeem(ctx, amount)
		if err != nil {
			return fmt.Errorf("redeem: %w", err)
		}
		if err := p.burn(ctx, operator, from, amount, ticket); err != nil {
			return err
		}
		if err := p.fees.Commit(ctx, req, quote); err != nil {
			return fmt.Errorf("fee policy: %w", err)
		}
		payout := new(big.Int).Sub(amount, fee)
		if err := p.asset.Transfer(ctx, p.cfg.Address, from, payout); err != nil {
			return fmt.Errorf("pay out: %w", err)
		}

		tx.emit(model.EventInstantWithdrawal, model.InstantWithdrawalData{
			Operator: operator.Hex(),
			From:     from.Hex(),
			Ticket:   ticket.Hex(),
			Amount:   amount.String(),
			Redeemed: redeemed.String(),
			ExitFee:  fee.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("instant withdrawal",
		zap.String("from", from.Hex()),
		zap.String("ticket", ticket.Hex()),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
	)
	return fee, nil
}

// AwardBalance is what the pool holds beyond ticket supply and timelocked
// funds: accrued yield and retained exit fees.
func (p *Pool) AwardBalance(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	balance, err := p.yield.Balance(ctx)
	if err != nil {
		return nil, err
	}
	return p.awardBalance(ctx, balance)
}

func (p *Pool) awardBalance(ctx context.Context, balance *big.Int) (*big.Int, error) {
	if err := p.requireInitialized(); err != nil {
		return nil, err
	}
	owedToHolders := new(big.Int).Set(p.timelocks.total)
	for _, tc := range p.cfg.Tickets {
		supply, err := p.tickets.TotalSupply(ctx, tc.Address)
		if err != nil {
			return nil, fmt.Errorf("ticket supply: %w", err)
		}
		owedToHolders.Add(owedToHolders, supply)
	}
	award := new(big.Int).Sub(balance, owedToHolders)
	if award.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return award, nil
}

// Snapshot reports the pool's holdings and ticket supplies.
func (p *Pool) Snapshot(ctx context.Context) (model.PoolSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitialized(); err != nil {
		return model.PoolSnapshot{}, err
	}
	h, err := p.yield.Holdings(ctx)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	balance := h.Total()
	award, err := p.awardBalance(ctx, balance)
	if err != nil {
		return model.PoolSnapshot{}, err
	}

	tickets := make([]model.TicketSnapshot, 0, len(p.cfg.Tickets))
	for _, tc := range p.cfg.Tickets {
		supply, err := p.tickets.TotalSupply(ctx, tc.Address)
		if err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("ticket supply: %w", err)
		}
		ts := model.TicketSnapshot{Ticket: tc.Address.Hex(), TotalSupply: supply.String()}
		if tc.Cap != nil {
			ts.Cap = tc.Cap.String()
		}
		tickets = append(tickets, ts)
	}

	return model.PoolSnapshot{
		Pool:          p.cfg.Address.Hex(),
		Asset:         p.cfg.Asset.Hex(),
		Balance:       balance.String(),
		Local:         fixedpoint.String(h.Local),
		Staked:        fixedpoint.String(h.Staked),
		Owed:          fixedpoint.String(h.Owed),
		AwardBalance:  award.String(),
		TimelockTotal: p.timelocks.total.String(),
		Tickets:       tickets,
		Timestamp:     uint64(p.now().Unix()),
	}, nil
}

func (p *Pool) requireInitialized() error {
	if !p.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (p *Pool) requireTicket(ticket common.Address) error {
	if err := p.requireInitialized(); err != nil {
		return err
	}
	if _, ok := p.caps[ticket]; !ok {
		return fmt.Errorf("%w: %s", ErrUnrecognizedTicket, ticket.Hex())
	}
	return nil
}

// withdrawRequest checks that from holds amount of ticket.
func (p *Pool) withdrawRequest(ctx context.Context, from common.Address, amount *big.Int, ticket common.Address) (FeeRequest, error) {
	balance, err := p.tickets.BalanceOf(ctx, ticket, from)
	if err != nil {
		return FeeRequest{}, fmt.Errorf("ticket balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return FeeRequest{}, fmt.Errorf("withdraw %s: %w (balance %s)", amount, ErrInsufficientTickets, balance)
	}
	supply, err := p.tickets.TotalSupply(ctx, ticket)
	if err != nil {
		return FeeRequest{}, fmt.Errorf("ticket supply: %w", err)
	}
	if supply.Cmp(amount) < 0 {
		return FeeRequest{}, fmt.Errorf("withdraw %s: %w (supply %s)", amount, ErrInsufficientTickets, supply)
	}
	return FeeRequest{Holder: from, Ticket: ticket, Amount: amount, Balance: balance, Now: p.now()}, nil
}

func (p *Pool) burn(ctx context.Context, operator, from common.Address, amount *big.Int, ticket common.Address) error {
	notice := BurnNotice{Operator: operator, From: from, Ticket: ticket, Amount: amount}
	for _, h := range p.hooks {
		if err := h.BeforeBurn(ctx, notice); err != nil {
			return fmt.Errorf("burn hook: %w", err)
		}
	}
	if err := p.tickets.BurnFrom(ctx, ticket, operator, from, amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	return nil
}
