// Package yield moves the pool's asset between local custody and an external
// staking facility and reports the pool's total assets.
package yield

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrInsufficientLiquidity is returned when a redeem exceeds the reconcilable balance.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientLocal is returned when Supply asks for more than the pool holds locally.
	ErrInsufficientLocal = errors.New("insufficient local balance")
	// ErrNegativeAmount is returned for amounts below zero.
	ErrNegativeAmount = errors.New("negative amount")
)

// Config identifies the pool account, its asset and the facilities it uses.
type Config struct {
	Pool    common.Address
	Token   common.Address
	Staking common.Address
	Rewards common.Address
}

// Adapter reconciles local custody, staked principal and unclaimed rewards.
type Adapter struct {
	cfg     Config
	asset   AssetReader
	staking StakingFacility
	rewards RewardsFacility
	logger  *zap.Logger
}

// NewAdapter builds an Adapter over the given facilities.
func NewAdapter(cfg Config, asset AssetReader, staking StakingFacility, rewards RewardsFacility, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		cfg:     cfg,
		asset:   asset,
		staking: staking,
		rewards: rewards,
		logger:  logger,
	}
}

// Token returns the underlying asset.
func (a *Adapter) Token() common.Address {
	return a.cfg.Token
}

// Staking returns the staking facility's address.
func (a *Adapter) Staking() common.Address {
	return a.cfg.Staking
}

// Rewards returns the rewards facility's address.
func (a *Adapter) Rewards() common.Address {
	return a.cfg.Rewards
}

// Holdings returns the current split of pool assets.
func (a *Adapter) Holdings(ctx context.Context) (Holdings, error) {
	return ReadHoldings(ctx, a.asset, a.staking, a.rewards, a.cfg.Pool)
}

// Balance returns local + staked + owed.
func (a *Adapter) Balance(ctx context.Context) (*big.Int, error) {
	h, err := a.Holdings(ctx)
	if err != nil {
		return nil, err
	}
	return h.Total(), nil
}

// Supply stakes amount from local custody. The pool must already hold it.
func (a *Adapter) Supply(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("supply: %w", ErrNegativeAmount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	local, err := a.asset.BalanceOf(ctx, a.cfg.Pool)
	if err != nil {
		return fmt.Errorf("local balance: %w", err)
	}
	if local.Cmp(amount) < 0 {
		return fmt.Errorf("supply %s: %w (local %s)", amount, ErrInsufficientLocal, local)
	}
	if err := a.staking.Stake(ctx, a.cfg.Pool, amount); err != nil {
		return fmt.Errorf("stake: %w", err)
	}
	a.logger.Debug("supplied", zap.String("amount", amount.String()))
	return nil
}

// Redeem makes amount available in local custody and returns it.
//
// Funds already held locally are used first. Otherwise all owed rewards are
// claimed and any remaining shortfall is unstaked. Anything pulled in beyond
// amount is staked again, so the slow path leaves exactly amount locally.
//
// If a step fails after funds were pulled in, they are staked again before
// the error is returned, so Balance is unchanged. Claimed rewards come back
// as principal, not as owed rewards; callers that need the exact prior split
// must journal the facilities.
func (a *Adapter) Redeem(ctx context.Context, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("redeem: %w", ErrNegativeAmount)
	}
	if amount.Sign() == 0 {
		return big.NewInt(0), nil
	}

	h, err := a.Holdings(ctx)
	if err != nil {
		return nil, err
	}
	total := h.Total()
	if amount.Cmp(total) > 0 {
		return nil, fmt.Errorf("redeem %s: %w (balance %s)", amount, ErrInsufficientLiquidity, total)
	}

	have := h.Local
	if have.Cmp(amount) >= 0 {
		a.logger.Debug("redeem from local", zap.String("amount", amount.String()), zap.String("local", have.String()))
		return new(big.Int).Set(amount), nil
	}

	need := new(big.Int).Sub(amount, have)
	pulled := big.NewInt(0)
	claimed := big.NewInt(0)
	if h.Owed.Sign() > 0 {
		claimed, err = a.rewards.Claim(ctx, a.cfg.Pool)
		if err != nil {
			return nil, fmt.Errorf("claim rewards: %w", err)
		}
		pulled.Add(pulled, claimed)
	}

	remaining := new(big.Int).Sub(need, claimed)
	if remaining.Sign() > 0 {
		unstaked, err := a.staking.Unstake(ctx, a.cfg.Pool, remaining)
		if err != nil {
			return nil, a.restore(ctx, pulled, fmt.Errorf("unstake %s: %w", remaining, err))
		}
		pulled.Add(pulled, unstaked)
	}

	local, err := a.asset.BalanceOf(ctx, a.cfg.Pool)
	if err != nil {
		return nil, a.restore(ctx, pulled, fmt.Errorf("local balance: %w", err))
	}
	if local.Cmp(amount) < 0 {
		return nil, a.restore(ctx, pulled, fmt.Errorf("redeem %s: %w (local %s after unstake)", amount, ErrInsufficientLiquidity, local))
	}
	surplus := new(big.Int).Sub(local, amount)
	if surplus.Sign() > 0 {
		if err := a.staking.Stake(ctx, a.cfg.Pool, surplus); err != nil {
			return nil, a.restore(ctx, pulled, fmt.Errorf("restake surplus %s: %w", surplus, err))
		}
	}

	a.logger.Debug("redeem settled",
		zap.String("amount", amount.String()),
		zap.String("claimed", claimed.String()),
		zap.String("unstaked", clampZero(remaining).String()),
		zap.String("restaked", surplus.String()),
	)
	return new(big.Int).Set(amount), nil
}

// restore stakes pulled back after a failed redeem and returns cause.
func (a *Adapter) restore(ctx context.Context, pulled *big.Int, cause error) error {
	if pulled.Sign() == 0 {
		return cause
	}
	if err := a.staking.Stake(ctx, a.cfg.Pool, pulled); err != nil {
		a.logger.Error("restake after failed redeem",
			zap.String("amount", pulled.String()),
			zap.Error(err),
		)
		return fmt.Errorf("%w (restake %s failed: %v)", cause, pulled, err)
	}
	a.logger.Warn("redeem failed, funds restaked", zap.String("amount", pulled.String()), zap.Error(cause))
	return cause
}

func clampZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return v
}
