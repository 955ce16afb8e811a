package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prizePool/internal/config"
	"prizePool/internal/fixedpoint"
	"prizePool/internal/pool"
	"prizePool/internal/runner"
	"prizePool/internal/storage"
	"prizePool/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}

	worldCfg, err := worldConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := storage.NewJsonlStorage(cfg.Events)
	if err := events.Reset(); err != nil {
		return err
	}
	errorLog := storage.NewJsonlStorage(cfg.Errors)
	if err := errorLog.Reset(); err != nil {
		return err
	}

	sinks := []pool.EventSink{events}
	snapshots := []runner.SnapshotSink{runner.NewSnapshotFile(cfg.Snapshot)}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store.EventSink(ctx))
		snapshots = append(snapshots, store)
	}

	script, err := os.Open(cfg.Script)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer script.Close()

	world, err := runner.NewWorld(ctx, worldCfg, sinks, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("script", cfg.Script),
		zap.String("pool", worldCfg.Pool.Hex()),
		zap.Int("tickets", len(worldCfg.Tickets)),
		zap.String("max_exit_fee", cfg.MaxExitFee),
		zap.Duration("max_timelock", cfg.MaxTimelock),
		zap.String("events", cfg.Events),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	_, err = runner.NewRunner(world, errorLog, snapshots, logger).Run(ctx, script)
	return err
}

func worldConfig(cfg config.SimulateConfig) (runner.WorldConfig, error) {
	var out runner.WorldConfig
	var err error

	addresses := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"pool", cfg.Pool, &out.Pool},
		{"asset", cfg.Asset, &out.Asset},
		{"staking", cfg.Staking, &out.Staking},
		{"rewards", cfg.Rewards, &out.Rewards},
	}
	for _, item := range addresses {
		if item.value == "" {
			return out, fmt.Errorf("%s address is required", item.name)
		}
		addr, err := runner.ParseAddress(item.value)
		if err != nil {
			return out, fmt.Errorf("%s: %w", item.name, err)
		}
		*item.dst = addr
	}

	if len(cfg.Tickets) == 0 {
		return out, fmt.Errorf("at least one ticket is required")
	}
	for _, ticket := range cfg.Tickets {
		spec, err := ticketSpec(ticket)
		if err != nil {
			return out, err
		}
		out.Tickets = append(out.Tickets, spec)
	}

	out.MaxExitFee, err = fixedpoint.ParseMantissa(cfg.MaxExitFee)
	if err != nil {
		return out, fmt.Errorf("max-exit-fee: %w", err)
	}
	out.MaxTimelock = cfg.MaxTimelock
	out.Start = cfg.Start
	return out, nil
}

func ticketSpec(ticket config.TicketConfig) (runner.TicketSpec, error) {
	addr, err := runner.ParseAddress(ticket.Address)
	if err != nil {
		return runner.TicketSpec{}, fmt.Errorf("ticket: %w", err)
	}
	spec := runner.TicketSpec{Address: addr}

	if ticket.Cap != "" {
		spec.Cap, err = fixedpoint.ParseAmount(ticket.Cap)
		if err != nil {
			return spec, fmt.Errorf("ticket %s cap: %w", ticket.Address, err)
		}
	}

	if ticket.CreditLimit == "" && ticket.CreditRate == "" {
		return spec, nil
	}
	if ticket.CreditLimit == "" || ticket.CreditRate == "" {
		return spec, fmt.Errorf("ticket %s: credit-limit and credit-rate must be set together", ticket.Address)
	}
	limit, err := fixedpoint.ParseMantissa(ticket.CreditLimit)
	if err != nil {
		return spec, fmt.Errorf("ticket %s credit-limit: %w", ticket.Address, err)
	}
	rate, err := fixedpoint.ParseMantissa(ticket.CreditRate)
	if err != nil {
		return spec, fmt.Errorf("ticket %s credit-rate: %w", ticket.Address, err)
	}
	spec.Credit = &pool.CreditPlan{LimitMantissa: limit, RateMantissa: rate}
	return spec, nil
}
