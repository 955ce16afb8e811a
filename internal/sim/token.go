// Package sim provides deterministic in-memory collaborators for a prize pool:
// an asset token, a staking facility, a rewards facility and a ticket ledger.
// Every type can be checkpointed and restored so a failed pool operation
// leaves no trace.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when a holder cannot cover a transfer or burn.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when an operator is not approved for an amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrUnknownTicket is returned for tickets the ledger was not created with.
	ErrUnknownTicket = errors.New("unknown ticket")
)

// Token is a fungible asset ledger keyed by holder.
type Token struct {
	address common.Address

	mu       sync.Mutex
	balances map[common.Address]*big.Int
	supply   *big.Int
}

func NewToken(address common.Address) *Token {
	return &Token{
		address:  address,
		balances: make(map[common.Address]*big.Int),
		supply:   big.NewInt(0),
	}
}

// Address returns the token identifier.
func (t *Token) Address() common.Address {
	return t.address
}

// Mint credits amount to holder out of thin air.
func (t *Token) Mint(to common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = new(big.Int).Add(balanceOrZero(t.balances, to), amount)
	t.supply.Add(t.supply, amount)
}

// BalanceOf returns holder's balance.
func (t *Token) BalanceOf(_ context.Context, holder common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(balanceOrZero(t.balances, holder)), nil
}

// TotalSupply returns the minted total.
func (t *Token) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.supply)
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("transfer: negative amount %s", amount)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	fromBal := balanceOrZero(t.balances, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s from %s: %w (have %s)", amount, from.Hex(), ErrInsufficientBalance, fromBal)
	}
	t.balances[from] = new(big.Int).Sub(fromBal, amount)
	t.balances[to] = new(big.Int).Add(balanceOrZero(t.balances, to), amount)
	return nil
}

// Checkpoint captures the ledger and returns a function restoring it.
func (t *Token) Checkpoint() func() {
	t.mu.Lock()
	balances := copyBalances(t.balances)
	supply := new(big.Int).Set(t.supply)
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.balances = balances
		t.supply = supply
		t.mu.Unlock()
	}
}

func balanceOrZero(m map[common.Address]*big.Int, key common.Address) *big.Int {
	if v, ok := m[key]; ok {
		return v
	}
	return new(big.Int)
}

func copyBalances(m map[common.Address]*big.Int) map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}
