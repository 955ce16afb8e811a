package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSimulateFromFile(t *testing.T) {
	path := writeConfig(t, `
script: ./ops.jsonl
pool: "0x1111111111111111111111111111111111111111"
asset: "0x2222222222222222222222222222222222222222"
max-timelock: 1h
start: "2024-01-01T00:00:00Z"
tickets:
  - address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
    cap: "1000"
  - address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
    credit-limit: "0.1"
    credit-rate: "0.001"
`)
	t.Setenv("PRIZEPOOL_PG_DSN", "postgres://localhost/prizepool")

	cfg, err := LoadSimulate(path, nil)
	require.NoError(t, err)
	require.Equal(t, "./ops.jsonl", cfg.Script)
	require.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Pool)
	require.Equal(t, "postgres://localhost/prizepool", cfg.PGDSN)
	require.Equal(t, time.Hour, cfg.MaxTimelock)
	require.Equal(t, "0.5", cfg.MaxExitFee)
	require.Equal(t, "./data/events.jsonl", cfg.Events)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Start)

	require.Len(t, cfg.Tickets, 2)
	require.Equal(t, "1000", cfg.Tickets[0].Cap)
	require.Empty(t, cfg.Tickets[0].CreditLimit)
	require.Equal(t, "0.1", cfg.Tickets[1].CreditLimit)
	require.Equal(t, "0.001", cfg.Tickets[1].CreditRate)
}

func TestLoadSimulateTicketFlags(t *testing.T) {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.StringSlice("ticket", nil, "")
	flags.String("max-exit-fee", "0.5", "")
	require.NoError(t, flags.Parse([]string{
		"--ticket", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa=1000",
		"--ticket", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"--max-exit-fee", "0.25",
	}))

	cfg, err := LoadSimulate("", flags)
	require.NoError(t, err)
	require.Equal(t, "0.25", cfg.MaxExitFee)
	require.Equal(t, []TicketConfig{
		{Address: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", Cap: "1000"},
		{Address: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"},
	}, cfg.Tickets)
}

func TestLoadSimulateRejectsBadStart(t *testing.T) {
	t.Setenv("PRIZEPOOL_START", "yesterday")
	_, err := LoadSimulate("", nil)
	require.Error(t, err)
}

func TestLoadSimulateMissingFile(t *testing.T) {
	_, err := LoadSimulate(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadAudit(t *testing.T) {
	path := writeConfig(t, `
rpc: http://localhost:8545
pool: "0x1111111111111111111111111111111111111111"
from: 100
to: 200
step: 10
`)
	t.Setenv("PRIZEPOOL_MAX_RETRIES", "2")

	cfg, err := LoadAudit(path, nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8545", cfg.RPCURL)
	require.Equal(t, uint64(100), cfg.FromBlock)
	require.Equal(t, uint64(200), cfg.ToBlock)
	require.Equal(t, uint64(10), cfg.Step)
	require.Equal(t, 2, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	require.Equal(t, "./data/holdings.jsonl", cfg.Out)
}

func TestParseTimestamp(t *testing.T) {
	tm, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), tm.Unix())

	tm, err = ParseTimestamp("")
	require.NoError(t, err)
	require.True(t, tm.IsZero())

	_, err = ParseTimestamp("not-a-time")
	require.Error(t, err)
}
