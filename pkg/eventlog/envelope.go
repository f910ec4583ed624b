// Package eventlog provides the relay's event log transport: envelope
// encoding, topic routing, a keyed producer, and consumer-group readers.
package eventlog

import (
	"encoding/json"
	"time"
)

// Envelope is the wire format for every event on the log.
type Envelope struct {
	EventType     string         `json:"event_type"`
	EventData     map[string]any `json:"event_data"`
	EventID       *string        `json:"event_id,omitempty"`
	TransactionID *string        `json:"transaction_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Key returns the partition key: event id, else transaction id, else "".
// An empty key lets the balancer pick a partition.
func (e *Envelope) Key() string {
	if e.EventID != nil && *e.EventID != "" {
		return *e.EventID
	}
	if e.TransactionID != nil && *e.TransactionID != "" {
		return *e.TransactionID
	}
	return ""
}

// Encode marshals the envelope to its wire form.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses an envelope from its wire form.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// StringField extracts a string field from the event payload, returning
// "" when absent or not a string.
func (e *Envelope) StringField(name string) string {
	if e.EventData == nil {
		return ""
	}
	if v, ok := e.EventData[name].(string); ok {
		return v
	}
	return ""
}
