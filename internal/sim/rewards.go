package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Rewards accrues yield per account and pays it from its own token account.
// Funding and accrual are independent: Fund stocks the account, Accrue grows
// what an account is owed.
type Rewards struct {
	address common.Address
	token   *Token

	mu   sync.Mutex
	owed map[common.Address]*big.Int
}

func NewRewards(address common.Address, token *Token) *Rewards {
	return &Rewards{
		address: address,
		token:   token,
		owed:    make(map[common.Address]*big.Int),
	}
}

// Address returns the facility identifier.
func (r *Rewards) Address() common.Address {
	return r.address
}

// Fund mints amount of the token into the rewards account.
func (r *Rewards) Fund(amount *big.Int) {
	r.token.Mint(r.address, amount)
}

// Accrue adds amount to what account is owed.
func (r *Rewards) Accrue(account common.Address, amount *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owed[account] = new(big.Int).Add(balanceOrZero(r.owed, account), amount)
}

// Owed returns rewards accrued but not claimed by account.
func (r *Rewards) Owed(_ context.Context, account common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(balanceOrZero(r.owed, account)), nil
}

// Claim pays everything owed to account.
func (r *Rewards) Claim(ctx context.Context, account common.Address) (*big.Int, error) {
	r.mu.Lock()
	amount := new(big.Int).Set(balanceOrZero(r.owed, account))
	r.mu.Unlock()

	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := r.token.Transfer(ctx, r.address, account, amount); err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	r.mu.Lock()
	r.owed[account] = new(big.Int).Sub(balanceOrZero(r.owed, account), amount)
	r.mu.Unlock()
	return amount, nil
}

func (r *Rewards) Checkpoint() func() {
	r.mu.Lock()
	owed := copyBalances(r.owed)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.owed = owed
		r.mu.Unlock()
	}
}
