package model

// PoolEvent is an event emitted by a pool after an operation commits.
type PoolEvent struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	Name      string      `json:"name"`
	Timestamp uint64      `json:"timestamp"`
	Data      interface{} `json:"data"`
}
