package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prizePool/internal/config"
)

func baseSimulateConfig() config.SimulateConfig {
	return config.SimulateConfig{
		Pool:        "0x1111111111111111111111111111111111111111",
		Asset:       "0x2222222222222222222222222222222222222222",
		Staking:     "0x3333333333333333333333333333333333333333",
		Rewards:     "0x4444444444444444444444444444444444444444",
		MaxExitFee:  "0.5",
		MaxTimelock: time.Hour,
		Tickets: []config.TicketConfig{
			{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Cap: "1000"},
			{Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", CreditLimit: "0.1", CreditRate: "0.001"},
		},
	}
}

func TestWorldConfig(t *testing.T) {
	out, err := worldConfig(baseSimulateConfig())
	require.NoError(t, err)
	require.Equal(t, "0x1111111111111111111111111111111111111111", out.Pool.Hex())
	require.Equal(t, "500000000000000000", out.MaxExitFee.String())
	require.Len(t, out.Tickets, 2)
	require.Equal(t, "1000", out.Tickets[0].Cap.String())
	require.Nil(t, out.Tickets[0].Credit)
	require.Nil(t, out.Tickets[1].Cap)
	require.Equal(t, "100000000000000000", out.Tickets[1].Credit.LimitMantissa.String())
	require.Equal(t, "1000000000000000", out.Tickets[1].Credit.RateMantissa.String())
}

func TestWorldConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.SimulateConfig)
	}{
		{"missing pool", func(c *config.SimulateConfig) { c.Pool = "" }},
		{"bad asset", func(c *config.SimulateConfig) { c.Asset = "0x12" }},
		{"no tickets", func(c *config.SimulateConfig) { c.Tickets = nil }},
		{"bad cap", func(c *config.SimulateConfig) { c.Tickets[0].Cap = "lots" }},
		{"half credit plan", func(c *config.SimulateConfig) { c.Tickets[1].CreditRate = "" }},
		{"bad max exit fee", func(c *config.SimulateConfig) { c.MaxExitFee = "abc" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseSimulateConfig()
			tc.mutate(&cfg)
			_, err := worldConfig(cfg)
			require.Error(t, err)
		})
	}
}
