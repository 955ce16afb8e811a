package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Views reads pool holdings from deployed contracts at one block height.
type Views struct {
	caller Caller
	block  *big.Int
}

// NewViews binds caller to blockNumber. Zero reads the latest block.
func NewViews(caller Caller, blockNumber uint64) *Views {
	var block *big.Int
	if blockNumber > 0 {
		block = new(big.Int).SetUint64(blockNumber)
	}
	return &Views{caller: caller, block: block}
}

// Token returns an asset balance view for token.
func (v *Views) Token(token common.Address) *TokenView {
	return &TokenView{views: v, token: token}
}

// Staking returns a principal view for the staking facility.
func (v *Views) Staking(staking common.Address) *StakingView {
	return &StakingView{views: v, staking: staking}
}

// Rewards returns an owed-rewards view for the rewards facility.
func (v *Views) Rewards(rewards common.Address) *RewardsView {
	return &RewardsView{views: v, rewards: rewards}
}

func (v *Views) callUint(ctx context.Context, target common.Address, parsed abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	if v.caller == nil {
		return nil, fmt.Errorf("chain caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := v.caller.CallContract(ctx, msg, v.block)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, target.Hex(), err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return asBigInt(values[0])
}

// TokenView reads ERC20 balances.
type TokenView struct {
	views *Views
	token common.Address
}

func (t *TokenView) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return t.views.callUint(ctx, t.token, parsed, "balanceOf", holder)
}

// StakingView reads principal staked by an account.
type StakingView struct {
	views   *Views
	staking common.Address
}

func (s *StakingView) PrincipalOf(ctx context.Context, account common.Address) (*big.Int, error) {
	parsed, err := FacilityABI()
	if err != nil {
		return nil, fmt.Errorf("parse facility abi: %w", err)
	}
	return s.views.callUint(ctx, s.staking, parsed, "balanceOf", account)
}

// RewardsView reads rewards accrued to an account but not claimed.
type RewardsView struct {
	views   *Views
	rewards common.Address
}

func (r *RewardsView) Owed(ctx context.Context, account common.Address) (*big.Int, error) {
	parsed, err := FacilityABI()
	if err != nil {
		return nil, fmt.Errorf("parse facility abi: %w", err)
	}
	return r.views.callUint(ctx, r.rewards, parsed, "owed", account)
}
