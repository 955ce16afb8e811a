package model

// Event names emitted by a pool.
const (
	EventPoolInitialized           = "PoolInitialized"
	EventDeposited                 = "Deposited"
	EventInstantWithdrawal         = "InstantWithdrawal"
	EventTimelockedWithdrawal      = "TimelockedWithdrawal"
	EventTimelockedWithdrawalSwept = "TimelockedWithdrawalSwept"
)

// PoolInitializedData is emitted once when a pool is initialized.
type PoolInitializedData struct {
	Staking         string   `json:"staking"`
	Rewards         string   `json:"rewards"`
	Asset           string   `json:"asset"`
	Tickets         []string `json:"tickets"`
	MaxExitFee      string   `json:"max_exit_fee"`
	MaxTimelockSecs uint64   `json:"max_timelock_seconds"`
}

// DepositedData is the payload of a deposit.
type DepositedData struct {
	Operator string `json:"operator"`
	To       string `json:"to"`
	Ticket   string `json:"ticket"`
	Amount   string `json:"amount"`
	Referrer string `json:"referrer"`
}

// InstantWithdrawalData is the payload of an instant withdrawal.
type InstantWithdrawalData struct {
	Operator string `json:"operator"`
	From     string `json:"from"`
	Ticket   string `json:"ticket"`
	Amount   string `json:"amount"`
	Redeemed string `json:"redeemed"`
	ExitFee  string `json:"exit_fee"`
}

// TimelockedWithdrawalData is the payload of a withdrawal deferred until UnlockTimestamp.
type TimelockedWithdrawalData struct {
	Operator        string `json:"operator"`
	From            string `json:"from"`
	Ticket          string `json:"ticket"`
	Amount          string `json:"amount"`
	UnlockTimestamp uint64 `json:"unlock_timestamp"`
}

// TimelockedWithdrawalSweptData is the payload of a swept timelock balance.
type TimelockedWithdrawalSweptData struct {
	Operator string `json:"operator"`
	From     string `json:"from"`
	Amount   string `json:"amount"`
	Redeemed string `json:"redeemed"`
}
