package model

import "encoding/json"

// PoolEventRecord is the JSON form of a PoolEvent read back from storage.
type PoolEventRecord struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Pool      string          `json:"pool"`
	Name      string          `json:"name"`
	Timestamp uint64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
