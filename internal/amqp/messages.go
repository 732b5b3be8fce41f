package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// TransactionChanged announces a committed ledger mutation. It carries
// only identifiers; consumers fetch the current state from storage, so
// a stale or reordered event never overwrites newer data.
type TransactionChanged struct {
	TenantID      string    `json:"tenant_id"`
	TransactionID string    `json:"transaction_id"`
	Op            string    `json:"op"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionChanged(tenantID, transactionID, op string, version int64) *TransactionChanged {
	return &TransactionChanged{
		TenantID:      tenantID,
		TransactionID: transactionID,
		Op:            op,
		Version:       version,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionChangedFromJSON(data []byte) (*TransactionChanged, error) {
	var msg TransactionChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
