package yield

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetReader reports balances of the underlying asset.
type AssetReader interface {
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
}

// PrincipalReader reports principal staked on behalf of an account.
type PrincipalReader interface {
	PrincipalOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// RewardsReader reports rewards accrued but not yet claimed.
type RewardsReader interface {
	Owed(ctx context.Context, account common.Address) (*big.Int, error)
}

// StakingFacility custodies principal for the pool.
// Stake pulls amount of the asset from account; Unstake returns it.
type StakingFacility interface {
	PrincipalReader
	Stake(ctx context.Context, account common.Address, amount *big.Int) error
	Unstake(ctx context.Context, account common.Address, amount *big.Int) (*big.Int, error)
}

// RewardsFacility tracks yield on staked principal and pays it out on Claim.
type RewardsFacility interface {
	RewardsReader
	Claim(ctx context.Context, account common.Address) (*big.Int, error)
}

// Holdings is the three-way split of pool assets.
type Holdings struct {
	Local  *big.Int
	Staked *big.Int
	Owed   *big.Int
}

// Total returns local + staked + owed.
func (h Holdings) Total() *big.Int {
	total := new(big.Int)
	for _, part := range []*big.Int{h.Local, h.Staked, h.Owed} {
		if part != nil {
			total.Add(total, part)
		}
	}
	return total
}

// ReadHoldings queries the three locations of account's assets. Nothing is cached.
func ReadHoldings(ctx context.Context, asset AssetReader, staking PrincipalReader, rewards RewardsReader, account common.Address) (Holdings, error) {
	local, err := asset.BalanceOf(ctx, account)
	if err != nil {
		return Holdings{}, fmt.Errorf("local balance: %w", err)
	}
	staked, err := staking.PrincipalOf(ctx, account)
	if err != nil {
		return Holdings{}, fmt.Errorf("staked principal: %w", err)
	}
	owed, err := rewards.Owed(ctx, account)
	if err != nil {
		return Holdings{}, fmt.Errorf("rewards owed: %w", err)
	}
	return Holdings{Local: local, Staked: staked, Owed: owed}, nil
}
