package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "prizepool",
		Short:        "Prize pool ledger simulator and holdings auditor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL operation script against a simulated pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("script", "", "input operation script JSONL")
	simulateCmd.Flags().String("events", "./data/events.jsonl", "output pool events JSONL")
	simulateCmd.Flags().String("errors", "./data/errors.jsonl", "rejected operations JSONL")
	simulateCmd.Flags().String("snapshot", "./data/snapshot.json", "final snapshot path")
	simulateCmd.Flags().String("pool", "", "pool address")
	simulateCmd.Flags().String("asset", "", "asset token address")
	simulateCmd.Flags().String("staking", "", "staking facility address")
	simulateCmd.Flags().String("rewards", "", "rewards facility address")
	simulateCmd.Flags().StringSlice("ticket", nil, "tickets as address[=cap] (repeatable)")
	simulateCmd.Flags().String("max-exit-fee", "0.5", "maximum exit fee as a fraction of the withdrawal")
	simulateCmd.Flags().Duration("max-timelock", 10000*time.Second, "maximum timelock duration")
	simulateCmd.Flags().String("start", "", "simulated start time (unix seconds or RFC3339)")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshot")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Sample a deployed pool's holdings over a block range",
		RunE:  runAudit,
	}

	auditCmd.Flags().String("rpc", "", "RPC URL")
	auditCmd.Flags().String("pool", "", "pool address")
	auditCmd.Flags().String("asset", "", "asset token address")
	auditCmd.Flags().String("staking", "", "staking facility address")
	auditCmd.Flags().String("rewards", "", "rewards facility address")
	auditCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	auditCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	auditCmd.Flags().Uint64("step", 0, "blocks between samples, 0 samples the end block only")
	auditCmd.Flags().String("out", "./data/holdings.jsonl", "output holdings JSONL")
	auditCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	auditCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for holdings and progress")
	auditCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	auditCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	auditCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(auditCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
