package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prizePool/internal/audit"
	"prizePool/internal/chain"
	"prizePool/internal/config"
	"prizePool/internal/runner"
	"prizePool/internal/storage"
	"prizePool/internal/storage/postgres"
)

func runAudit(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAudit(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	auditCfg := audit.Config{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		Step:         cfg.Step,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
	if auditCfg.Pool, err = runner.ParseAddress(cfg.Pool); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if auditCfg.Asset, err = runner.ParseAddress(cfg.Asset); err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	if auditCfg.Staking, err = runner.ParseAddress(cfg.Staking); err != nil {
		return fmt.Errorf("staking: %w", err)
	}
	if auditCfg.Rewards, err = runner.ParseAddress(cfg.Rewards); err != nil {
		return fmt.Errorf("rewards: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	sinks := []audit.ReportSink{storage.NewJsonlStorage(cfg.Out)}
	if cfg.StateFile != "" {
		auditCfg.StateStore = &audit.FileStateStore{Path: cfg.StateFile}
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)
		if auditCfg.StateStore == nil {
			auditCfg.StateStore = &audit.DBStateStore{Store: store, Name: "audit:" + auditCfg.Pool.Hex()}
		}
	}

	logger.Info("audit start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("pool", auditCfg.Pool.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("step", cfg.Step),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	_, err = audit.NewAuditor(auditCfg, chainClient, sinks, logger).Run(ctx)
	return err
}
