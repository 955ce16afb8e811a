package sim

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type ticketState struct {
	controller common.Address
	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func (s *ticketState) clone() *ticketState {
	allowances := make(map[common.Address]map[common.Address]*big.Int, len(s.allowances))
	for holder, ops := range s.allowances {
		allowances[holder] = copyBalances(ops)
	}
	return &ticketState{
		controller: s.controller,
		supply:     new(big.Int).Set(s.supply),
		balances:   copyBalances(s.balances),
		allowances: allowances,
	}
}

// Tickets is a ledger of controlled ticket tokens, one balance sheet per ticket.
type Tickets struct {
	mu      sync.Mutex
	tickets map[common.Address]*ticketState
}

func NewTickets() *Tickets {
	return &Tickets{tickets: make(map[common.Address]*ticketState)}
}

// Add registers ticket with the pool that controls it.
func (t *Tickets) Add(ticket, controller common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickets[ticket] = &ticketState{
		controller: controller,
		supply:     big.NewInt(0),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (t *Tickets) state(ticket common.Address) (*ticketState, error) {
	s, ok := t.tickets[ticket]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicket, ticket.Hex())
	}
	return s, nil
}

// Controller returns the pool allowed to mint and burn ticket.
func (t *Tickets) Controller(_ context.Context, ticket common.Address) (common.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return common.Address{}, err
	}
	return s.controller, nil
}

func (t *Tickets) TotalSupply(_ context.Context, ticket common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(s.supply), nil
}

func (t *Tickets) BalanceOf(_ context.Context, ticket, holder common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(balanceOrZero(s.balances, holder)), nil
}

// Approve lets operator burn up to amount of holder's tickets.
func (t *Tickets) Approve(ticket, holder, operator common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return err
	}
	if s.allowances[holder] == nil {
		s.allowances[holder] = make(map[common.Address]*big.Int)
	}
	s.allowances[holder][operator] = new(big.Int).Set(amount)
	return nil
}

func (t *Tickets) Mint(_ context.Context, ticket, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return err
	}
	s.balances[to] = new(big.Int).Add(balanceOrZero(s.balances, to), amount)
	s.supply.Add(s.supply, amount)
	return nil
}

// BurnFrom destroys amount of from's tickets. An operator other than from
// spends its allowance.
func (t *Tickets) BurnFrom(_ context.Context, ticket, operator, from common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.state(ticket)
	if err != nil {
		return err
	}

	bal := balanceOrZero(s.balances, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn %s from %s: %w (have %s)", amount, from.Hex(), ErrInsufficientBalance, bal)
	}
	if operator != from {
		allowance := balanceOrZero(s.allowances[from], operator)
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("burn %s by %s: %w (allowance %s)", amount, operator.Hex(), ErrInsufficientAllowance, allowance)
		}
		if ops := s.allowances[from]; ops != nil {
			ops[operator] = new(big.Int).Sub(allowance, amount)
		}
	}

	s.balances[from] = new(big.Int).Sub(bal, amount)
	s.supply.Sub(s.supply, amount)
	return nil
}

func (t *Tickets) Checkpoint() func() {
	t.mu.Lock()
	saved := make(map[common.Address]*ticketState, len(t.tickets))
	for k, v := range t.tickets {
		saved[k] = v.clone()
	}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.tickets = saved
		t.mu.Unlock()
	}
}
