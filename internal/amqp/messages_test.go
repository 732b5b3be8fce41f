package amqp

import (
	"testing"
)

func TestTransactionChangedRoundTrip(t *testing.T) {
	msg := NewTransactionChanged("t1", "tx-1", OpUpdated, 3)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := TransactionChangedFromJSON(body)
	if err != nil {
		t.Fatalf("TransactionChangedFromJSON() error = %v", err)
	}
	if got.TenantID != "t1" || got.TransactionID != "tx-1" || got.Op != OpUpdated || got.Version != 3 {
		t.Errorf("decoded message = %+v, want original fields", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp is zero after round trip")
	}
}

func TestTransactionChangedFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TransactionChangedFromJSON([]byte("not json")); err == nil {
		t.Error("TransactionChangedFromJSON() error = nil, want unmarshal error")
	}
}
