// Package runner replays operation scripts against a prize pool wired to
// in-memory collaborators.
package runner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"prizePool/internal/pool"
	"prizePool/internal/sim"
	"prizePool/internal/yield"
)

// TicketSpec registers a ticket. Cap nil is unlimited; Credit nil charges no
// exit fee on that ticket.
type TicketSpec struct {
	Address common.Address
	Cap     *big.Int
	Credit  *pool.CreditPlan
}

// WorldConfig describes a simulated deployment.
type WorldConfig struct {
	Pool        common.Address
	Asset       common.Address
	Staking     common.Address
	Rewards     common.Address
	Tickets     []TicketSpec
	MaxExitFee  *big.Int
	MaxTimelock time.Duration
	Start       time.Time
}

// World is an initialized pool and the collaborators it drives.
type World struct {
	cfg WorldConfig

	Token   *sim.Token
	Staking *sim.Staking
	Rewards *sim.Rewards
	Tickets *sim.Tickets
	Clock   *sim.Clock
	Yield   *yield.Adapter
	Pool    *pool.Pool

	logger *zap.Logger
}

// NewWorld builds the collaborators and initializes the pool. Events go to
// every sink in order.
func NewWorld(ctx context.Context, cfg WorldConfig, sinks []pool.EventSink, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now().UTC()
	}

	token := sim.NewToken(cfg.Asset)
	staking := sim.NewStaking(cfg.Staking, token)
	rewards := sim.NewRewards(cfg.Rewards, token)
	tickets := sim.NewTickets()
	clock := sim.NewClock(cfg.Start)

	plans := make(map[common.Address]pool.CreditPlan)
	ticketCfgs := make([]pool.TicketConfig, 0, len(cfg.Tickets))
	for _, ts := range cfg.Tickets {
		tickets.Add(ts.Address, cfg.Pool)
		ticketCfgs = append(ticketCfgs, pool.TicketConfig{Address: ts.Address, Cap: ts.Cap})
		if ts.Credit != nil {
			plans[ts.Address] = *ts.Credit
		}
	}

	var fees pool.FeePolicy = pool.ZeroFee{}
	if len(plans) > 0 {
		fees = pool.NewCreditPolicy(plans)
	}

	adapter := yield.NewAdapter(yield.Config{Pool: cfg.Pool, Token: cfg.Asset, Staking: staking.Address(), Rewards: rewards.Address()}, token, staking, rewards, logger)
	p := pool.New(pool.Deps{
		Yield:   adapter,
		Asset:   token,
		Tickets: tickets,
		Fees:    fees,
		Hooks:   []pool.Hook{NewLogHook(logger)},
		Sinks:   sinks,
		Journal: []pool.Checkpointer{token, staking, rewards, tickets},
		Now:     clock.Now,
		Logger:  logger,
	})

	err := p.Initialize(ctx, pool.Config{
		Address:     cfg.Pool,
		Asset:       cfg.Asset,
		Staking:     cfg.Staking,
		Rewards:     cfg.Rewards,
		Tickets:     ticketCfgs,
		MaxExitFee:  cfg.MaxExitFee,
		MaxTimelock: cfg.MaxTimelock,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize pool: %w", err)
	}

	return &World{
		cfg:     cfg,
		Token:   token,
		Staking: staking,
		Rewards: rewards,
		Tickets: tickets,
		Clock:   clock,
		Yield:   adapter,
		Pool:    p,
		logger:  logger,
	}, nil
}
