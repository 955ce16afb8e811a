package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prizePool/internal/model"
)

func TestJsonlStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJsonlStorage(path)

	first := []model.PoolEvent{{
		ID:   "a",
		Seq:  1,
		Name: model.EventDeposited,
		Data: model.DepositedData{Amount: "100", Ticket: "0xaa"},
	}}
	second := []model.PoolEvent{{
		ID:   "b",
		Seq:  2,
		Name: model.EventInstantWithdrawal,
		Data: model.InstantWithdrawalData{Amount: "40", ExitFee: "0"},
	}}
	if err := sink.PutEventBatch(first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := sink.PutEventBatch(second); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := sink.PutEventBatch(nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	records, err := ReadEvents(file)
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Seq != 1 || records[1].Name != model.EventInstantWithdrawal {
		t.Fatalf("unexpected records: %+v", records)
	}

	var data model.DepositedData
	if err := json.Unmarshal(records[0].Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Amount != "100" {
		t.Fatalf("amount = %s", data.Amount)
	}
}

func TestJsonlStorageReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.jsonl")
	sink := NewJsonlStorage(path)

	if err := sink.Append(model.OpError{Line: 1, Op: "deposit", Error: "boom"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("file not truncated: %q", data)
	}
}

func TestReadEventsReportsLine(t *testing.T) {
	input := "{\"id\":\"a\",\"seq\":1}\n\n{not json}\n"
	_, err := ReadEvents(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %v, want line 3", err)
	}
}
