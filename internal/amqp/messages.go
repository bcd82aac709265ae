package amqp

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// EncodeEvent serializes a ledger event for the wire.
func EncodeEvent(ev core.LedgerEvent) ([]byte, error) {
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("event id and type are required")
	}
	return json.Marshal(ev)
}

// DecodeEvent parses a delivery body. Events with an unknown type are rejected.
func DecodeEvent(data []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("decode ledger event: %w", err)
	}
	switch ev.Type {
	case core.EventPendingGenerated, core.EventTransactionConfirmed, core.EventTransactionRejected:
		return ev, nil
	default:
		return core.LedgerEvent{}, fmt.Errorf("decode ledger event: unknown type %q", ev.Type)
	}
}
