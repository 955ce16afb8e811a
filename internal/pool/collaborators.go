package pool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"prizePool/internal/model"
	"prizePool/internal/yield"
)

// YieldSource is the pool's view of the yield adapter.
type YieldSource interface {
	Token() common.Address
	Staking() common.Address
	Rewards() common.Address
	Supply(ctx context.Context, amount *big.Int) error
	Redeem(ctx context.Context, amount *big.Int) (*big.Int, error)
	Balance(ctx context.Context) (*big.Int, error)
	Holdings(ctx context.Context) (yield.Holdings, error)
}

// AssetTransferer moves the underlying asset between accounts.
type AssetTransferer interface {
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// TicketLedger mints and burns tickets on behalf of their controlling pool.
type TicketLedger interface {
	Controller(ctx context.Context, ticket common.Address) (common.Address, error)
	TotalSupply(ctx context.Context, ticket common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, ticket, holder common.Address) (*big.Int, error)
	Mint(ctx context.Context, ticket, to common.Address, amount *big.Int) error
	BurnFrom(ctx context.Context, ticket, operator, from common.Address, amount *big.Int) error
}

// MintNotice describes tickets about to be minted.
type MintNotice struct {
	Operator common.Address
	To       common.Address
	Ticket   common.Address
	Amount   *big.Int
	Referrer common.Address
}

// BurnNotice describes tickets about to be burned.
type BurnNotice struct {
	Operator common.Address
	From     common.Address
	Ticket   common.Address
	Amount   *big.Int
}

// Hook observes ticket mints and burns. An error aborts the operation.
type Hook interface {
	BeforeMint(ctx context.Context, notice MintNotice) error
	BeforeBurn(ctx context.Context, notice BurnNotice) error
}

// EventSink receives events after an operation commits.
type EventSink interface {
	PutEventBatch(events []model.PoolEvent) error
}

// Checkpointer captures state and returns a function that restores it.
type Checkpointer interface {
	Checkpoint() func()
}
