package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prizePool/internal/model"
)

type pendingEvent struct {
	name string
	data interface{}
}

// txn collects events that are published only if the operation commits.
type txn struct {
	events []pendingEvent
}

func (t *txn) emit(name string, data interface{}) {
	t.events = append(t.events, pendingEvent{name: name, data: data})
}

// atomic runs fn as one all-or-nothing step. Pool state and every journaled
// collaborator are checkpointed first and restored in reverse order on error.
func (p *Pool) atomic(op string, fn func(tx *txn) error) error {
	restores := make([]func(), 0, len(p.journal)+1)
	restores = append(restores, p.checkpoint())
	for _, cp := range p.journal {
		restores = append(restores, cp.Checkpoint())
	}

	tx := &txn{}
	if err := fn(tx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		p.logger.Warn("operation rolled back", zap.String("op", op), zap.Error(err))
		return err
	}

	p.publish(tx.events)
	return nil
}

func (p *Pool) checkpoint() func() {
	seq := p.seq
	timelocks := p.timelocks.clone()
	return func() {
		p.seq = seq
		p.timelocks = timelocks
	}
}

// publish stamps events and hands them to every sink. Sink failures are
// logged; the operation has already committed.
func (p *Pool) publish(pending []pendingEvent) {
	if len(pending) == 0 {
		return
	}

	ts := uint64(p.now().Unix())
	events := make([]model.PoolEvent, 0, len(pending))
	for _, ev := range pending {
		p.seq++
		events = append(events, model.PoolEvent{
			ID:        uuid.NewString(),
			Seq:       p.seq,
			Pool:      p.cfg.Address.Hex(),
			Name:      ev.name,
			Timestamp: ts,
			Data:      ev.data,
		})
	}

	for _, sink := range p.sinks {
		if err := sink.PutEventBatch(events); err != nil {
			p.logger.Warn("publish events", zap.Error(err), zap.Int("events", len(events)))
		}
	}
}

func cloneBalances(m map[common.Address]*big.Int) map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}
