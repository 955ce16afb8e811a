package runner

import (
	"context"

	"go.uber.org/zap"

	"prizePool/internal/pool"
)

// LogHook records ticket movements at debug level.
type LogHook struct {
	logger *zap.Logger
}

func NewLogHook(logger *zap.Logger) *LogHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) BeforeMint(_ context.Context, n pool.MintNotice) error {
	h.logger.Debug("mint tickets",
		zap.String("ticket", n.Ticket.Hex()),
		zap.String("to", n.To.Hex()),
		zap.String("amount", n.Amount.String()),
		zap.String("referrer", n.Referrer.Hex()),
	)
	return nil
}

func (h *LogHook) BeforeBurn(_ context.Context, n pool.BurnNotice) error {
	h.logger.Debug("burn tickets",
		zap.String("ticket", n.Ticket.Hex()),
		zap.String("from", n.From.Hex()),
		zap.String("operator", n.Operator.Hex()),
		zap.String("amount", n.Amount.String()),
	)
	return nil
}
