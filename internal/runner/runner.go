package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"prizePool/internal/model"
)

// ErrorSink records operations the pool rejected.
type ErrorSink interface {
	Append(values ...interface{}) error
}

// Stats summarizes a replay.
type Stats struct {
	Total   int
	Applied int
	Failed  int
}

// Runner replays a JSONL script against a world. A rejected operation is
// recorded and the replay continues; the pool has already rolled it back.
type Runner struct {
	world     *World
	errors    ErrorSink
	snapshots []SnapshotSink
	logger    *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(world *World, errorSink ErrorSink, snapshots []SnapshotSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		world:     world,
		errors:    errorSink,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Run reads operations from script until EOF, then hands the final snapshot
// to every snapshot sink.
func (r *Runner) Run(ctx context.Context, script io.Reader) (Stats, error) {
	var stats Stats
	if r.world == nil {
		return stats, fmt.Errorf("world is nil")
	}

	scanner := bufio.NewScanner(script)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for line := 1; scanner.Scan(); line++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 || data[0] == '#' {
			continue
		}
		stats.Total++

		var op model.ScriptOp
		if err := json.Unmarshal(data, &op); err != nil {
			stats.Failed++
			if err := r.recordError(line, "", err); err != nil {
				return stats, err
			}
			continue
		}

		if err := r.world.Apply(ctx, op); err != nil {
			stats.Failed++
			r.logger.Warn("op rejected", zap.Int("line", line), zap.String("op", op.Op), zap.Error(err))
			if err := r.recordError(line, op.Op, err); err != nil {
				return stats, err
			}
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan script: %w", err)
	}

	snap, err := r.world.Pool.Snapshot(ctx)
	if err != nil {
		return stats, fmt.Errorf("snapshot: %w", err)
	}
	for _, sink := range r.snapshots {
		if err := sink.PutSnapshot(ctx, snap); err != nil {
			return stats, fmt.Errorf("store snapshot: %w", err)
		}
	}

	r.logger.Info("replay complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("failed", stats.Failed),
		zap.String("balance", snap.Balance),
		zap.String("award_balance", snap.AwardBalance),
	)
	return stats, nil
}

func (r *Runner) recordError(line int, op string, cause error) error {
	if r.errors == nil {
		return nil
	}
	if err := r.errors.Append(model.OpError{Line: line, Op: op, Error: cause.Error()}); err != nil {
		return fmt.Errorf("record op error: %w", err)
	}
	return nil
}
