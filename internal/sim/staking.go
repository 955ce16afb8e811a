package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Staking custodies principal in its own token account and tracks it per staker.
type Staking struct {
	address common.Address
	token   *Token

	mu        sync.Mutex
	principal map[common.Address]*big.Int
}

func NewStaking(address common.Address, token *Token) *Staking {
	return &Staking{
		address:   address,
		token:     token,
		principal: make(map[common.Address]*big.Int),
	}
}

// Address returns the facility identifier.
func (s *Staking) Address() common.Address {
	return s.address
}

// PrincipalOf returns the principal attributed to account.
func (s *Staking) PrincipalOf(_ context.Context, account common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(balanceOrZero(s.principal, account)), nil
}

// Stake pulls amount from account into the facility.
func (s *Staking) Stake(ctx context.Context, account common.Address, amount *big.Int) error {
	if err := s.token.Transfer(ctx, account, s.address, amount); err != nil {
		return fmt.Errorf("stake: %w", err)
	}
	s.mu.Lock()
	s.principal[account] = new(big.Int).Add(balanceOrZero(s.principal, account), amount)
	s.mu.Unlock()
	return nil
}

// Unstake returns amount of account's principal to it.
func (s *Staking) Unstake(ctx context.Context, account common.Address, amount *big.Int) (*big.Int, error) {
	s.mu.Lock()
	current := balanceOrZero(s.principal, account)
	if current.Cmp(amount) < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("unstake %s: %w (principal %s)", amount, ErrInsufficientBalance, current)
	}
	s.mu.Unlock()

	if err := s.token.Transfer(ctx, s.address, account, amount); err != nil {
		return nil, fmt.Errorf("unstake: %w", err)
	}

	s.mu.Lock()
	s.principal[account] = new(big.Int).Sub(balanceOrZero(s.principal, account), amount)
	s.mu.Unlock()
	return new(big.Int).Set(amount), nil
}

func (s *Staking) Checkpoint() func() {
	s.mu.Lock()
	principal := copyBalances(s.principal)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.principal = principal
		s.mu.Unlock()
	}
}
