package model

import (
	"encoding/json"
	"testing"
)

func TestInstantWithdrawalJSONStringAmounts(t *testing.T) {
	event := PoolEvent{
		ID:        "00000000-0000-0000-0000-000000000001",
		Seq:       3,
		Pool:      "0x1111111111111111111111111111111111111111",
		Name:      EventInstantWithdrawal,
		Timestamp: 1700000000,
		Data: InstantWithdrawalData{
			Operator: "0x2222222222222222222222222222222222222222",
			From:     "0x2222222222222222222222222222222222222222",
			Ticket:   "0x3333333333333333333333333333333333333333",
			Amount:   "12345678901234567890",
			Redeemed: "12345678901234567890",
			ExitFee:  "0",
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var record PoolEventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal record failed: %v", err)
	}
	if record.Name != EventInstantWithdrawal || record.Seq != 3 {
		t.Fatalf("envelope mismatch: %+v", record)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(record.Data, &decoded); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	for _, key := range []string{"amount", "redeemed", "exit_fee"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestScriptOpOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(ScriptOp{Op: OpAdvance, Seconds: 60})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"op":"advance","seconds":60}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}
