package model

// HoldingsReport is a deployed pool's holdings read at one block.
// Amounts are base units; Formatted carries the total in whole tokens.
type HoldingsReport struct {
	Pool      string `json:"pool"`
	Asset     string `json:"asset"`
	Symbol    string `json:"symbol,omitempty"`
	Block     uint64 `json:"block"`
	Timestamp uint64 `json:"timestamp"`
	Local     string `json:"local"`
	Staked    string `json:"staked"`
	Owed      string `json:"owed"`
	Total     string `json:"total"`
	Formatted string `json:"formatted"`
}
