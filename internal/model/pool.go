package model

// PoolSnapshot is a point-in-time view of pool accounting.
type PoolSnapshot struct {
	Pool          string           `json:"pool"`
	Asset         string           `json:"asset"`
	Balance       string           `json:"balance"`
	Local         string           `json:"local"`
	Staked        string           `json:"staked"`
	Owed          string           `json:"owed"`
	AwardBalance  string           `json:"award_balance"`
	TimelockTotal string           `json:"timelock_total"`
	Tickets       []TicketSnapshot `json:"tickets"`
	Timestamp     uint64           `json:"timestamp"`
}

// TicketSnapshot reports one ticket's supply and cap. An empty cap is unlimited.
type TicketSnapshot struct {
	Ticket      string `json:"ticket"`
	TotalSupply string `json:"total_supply"`
	Cap         string `json:"cap,omitempty"`
}
