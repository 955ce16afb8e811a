// Package audit samples a deployed pool's holdings over a block range using
// the same three-part accounting as the in-process yield adapter.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"prizePool/internal/chain"
	"prizePool/internal/fixedpoint"
	"prizePool/internal/model"
	"prizePool/internal/yield"
)

// Chain is the RPC surface the auditor reads from.
type Chain interface {
	chain.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// ReportSink receives holdings reports.
type ReportSink interface {
	PutHoldings(ctx context.Context, reports []model.HoldingsReport) error
}

// Config controls what is audited. A zero ToBlock means latest, a zero
// FromBlock audits ToBlock only and a zero Step takes one sample at ToBlock.
type Config struct {
	Pool         common.Address
	Asset        common.Address
	Staking      common.Address
	Rewards      common.Address
	FromBlock    uint64
	ToBlock      uint64
	Step         uint64
	MaxRetries   int
	RetryBackoff time.Duration
	StateStore   StateStore
}

// Auditor reads holdings at sampled blocks and hands them to sinks.
type Auditor struct {
	cfg    Config
	chain  Chain
	sinks  []ReportSink
	logger *zap.Logger
}

func NewAuditor(cfg Config, chainClient Chain, sinks []ReportSink, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{cfg: cfg, chain: chainClient, sinks: sinks, logger: logger}
}

// Run samples holdings and returns the reports it produced.
func (a *Auditor) Run(ctx context.Context) ([]model.HoldingsReport, error) {
	if a.chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if a.cfg.Pool == (common.Address{}) || a.cfg.Asset == (common.Address{}) {
		return nil, fmt.Errorf("pool and asset addresses are required")
	}
	if a.cfg.Staking == (common.Address{}) || a.cfg.Rewards == (common.Address{}) {
		return nil, fmt.Errorf("staking and rewards addresses are required")
	}

	to := a.cfg.ToBlock
	if to == 0 {
		var latest uint64
		err := a.retry(ctx, "latest block", func(ctx context.Context) error {
			var err error
			latest, err = a.chain.LatestBlockNumber(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}
	from := a.cfg.FromBlock
	if from == 0 || from > to {
		from = to
	}

	if a.cfg.StateStore != nil {
		last, ok, err := a.cfg.StateStore.Load(ctx)
		if err != nil {
			return nil, err
		}
		if ok && last >= from {
			if last >= to {
				a.logger.Info("nothing to audit", zap.Uint64("last_processed", last), zap.Uint64("to", to))
				return nil, nil
			}
			from = last + 1
			a.logger.Info("resume from state", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	step := a.cfg.Step
	if step == 0 {
		step = to - from + 1
	}
	blocks, err := chain.SampleBlocks(from, to, step)
	if err != nil {
		return nil, err
	}

	var meta model.TokenMeta
	err = a.retry(ctx, "token metadata", func(ctx context.Context) error {
		var err error
		meta, err = chain.FetchTokenMeta(ctx, a.chain, a.cfg.Asset, a.logger)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("asset metadata: %w", err)
	}

	reports := make([]model.HoldingsReport, 0, len(blocks))
	for _, block := range blocks {
		select {
		case <-ctx.Done():
			return reports, ctx.Err()
		default:
		}

		report, err := a.readAt(ctx, block, meta)
		if err != nil {
			return reports, err
		}
		a.logger.Info("holdings",
			zap.Uint64("block", block),
			zap.String("local", report.Local),
			zap.String("staked", report.Staked),
			zap.String("owed", report.Owed),
			zap.String("total", report.Formatted),
		)
		reports = append(reports, report)
	}

	for _, sink := range a.sinks {
		if err := sink.PutHoldings(ctx, reports); err != nil {
			return reports, fmt.Errorf("store holdings: %w", err)
		}
	}
	if a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, to); err != nil {
			return reports, err
		}
	}

	return reports, nil
}

func (a *Auditor) readAt(ctx context.Context, block uint64, meta model.TokenMeta) (model.HoldingsReport, error) {
	views := chain.NewViews(a.chain, block)

	var h yield.Holdings
	err := a.retry(ctx, "holdings", func(ctx context.Context) error {
		var err error
		h, err = yield.ReadHoldings(ctx, views.Token(a.cfg.Asset), views.Staking(a.cfg.Staking), views.Rewards(a.cfg.Rewards), a.cfg.Pool)
		return err
	})
	if err != nil {
		return model.HoldingsReport{}, fmt.Errorf("holdings at %d: %w", block, err)
	}

	var ts uint64
	err = a.retry(ctx, "block timestamp", func(ctx context.Context) error {
		var err error
		ts, err = a.chain.BlockTimestamp(ctx, block)
		return err
	})
	if err != nil {
		return model.HoldingsReport{}, fmt.Errorf("block timestamp %d: %w", block, err)
	}

	total := h.Total()
	return model.HoldingsReport{
		Pool:      a.cfg.Pool.Hex(),
		Asset:     a.cfg.Asset.Hex(),
		Symbol:    meta.Symbol,
		Block:     block,
		Timestamp: ts,
		Local:     fixedpoint.String(h.Local),
		Staked:    fixedpoint.String(h.Staked),
		Owed:      fixedpoint.String(h.Owed),
		Total:     total.String(),
		Formatted: fixedpoint.FormatAmount(total, meta.Decimals),
	}, nil
}

func (a *Auditor) retry(ctx context.Context, what string, fn func(context.Context) error) error {
	return chain.WithRetry(ctx, a.cfg.MaxRetries, a.cfg.RetryBackoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			a.logger.Warn("rpc read failed", zap.String("read", what), zap.Error(err))
		}
		return err
	})
}
