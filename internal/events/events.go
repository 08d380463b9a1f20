// Package events provides a small in-process publish/subscribe bus.
// The trade stream handler relays these events to connected dashboards.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event
type EventType string

const (
	// TradeExecuted fires after a trade commits
	TradeExecuted EventType = "trade_executed"
	// HoldingChanged fires when a position is created, updated, or closed
	HoldingChanged EventType = "holding_changed"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TransactionID string `json:"transaction_id"`
	Owner         string `json:"owner"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Shares        int64  `json:"shares"`
	Price         string `json:"price"`
	Total         string `json:"total"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// HoldingChangedData contains data for HoldingChanged events
type HoldingChangedData struct {
	Owner  string `json:"owner"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
	// Closed is true when the position was deleted by a full sell
	Closed bool `json:"closed"`
}

// EventType returns the event type for HoldingChangedData
func (d *HoldingChangedData) EventType() EventType {
	return HoldingChanged
}

// Event is a published event with its payload
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data,omitempty"`
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}
