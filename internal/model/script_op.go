package model

// Script operations understood by the runner.
const (
	OpMint             = "mint"
	OpApprove          = "approve"
	OpDeposit          = "deposit"
	OpWithdrawInstant  = "withdraw_instant"
	OpWithdrawTimelock = "withdraw_timelock"
	OpSweep            = "sweep"
	OpAccrue           = "accrue"
	OpAdvance          = "advance"
	OpBalance          = "balance"
)

// ScriptOp is one line of a simulation script. Amounts are base-unit integers
// and fractions are decimal strings such as "0.05".
type ScriptOp struct {
	Op       string   `json:"op"`
	Operator string   `json:"operator,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Ticket   string   `json:"ticket,omitempty"`
	Amount   string   `json:"amount,omitempty"`
	Referrer string   `json:"referrer,omitempty"`
	MaxFee   string   `json:"max_fee,omitempty"`
	Users    []string `json:"users,omitempty"`
	Seconds  uint64   `json:"seconds,omitempty"`
}
