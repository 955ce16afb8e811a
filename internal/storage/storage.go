package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"prizePool/internal/model"
)

// Storage defines a sink for pool events.
type Storage interface {
	PutEventBatch(events []model.PoolEvent) error
}

// ReadEvents decodes pool events written as JSON lines. Blank lines are skipped.
func ReadEvents(r io.Reader) ([]model.PoolEventRecord, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var records []model.PoolEventRecord
	for line := 1; scanner.Scan(); line++ {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var record model.PoolEventRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode event line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return records, nil
}
