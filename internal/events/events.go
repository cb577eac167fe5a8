// Package events broadcasts live race progress so an external monitor
// can follow a run without touching the measurement path.
package events

import (
	"encoding/json"
	"time"
)

// Envelope frames every published event.
type Envelope struct {
	Type  string          `json:"type"` // e.g. "released"
	RunID string          `json:"run_id"`
	TS    int64           `json:"ts"` // unix milli
	Data  json.RawMessage `json:"data"`
}

type Publisher interface {
	Publish(typ string, v any) error
	Close() error
}

func envelope(runID, typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Type:  typ,
		RunID: runID,
		TS:    time.Now().UnixMilli(),
		Data:  data,
	})
}

// Nop drops everything; used when no event socket is configured.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
func (Nop) Close() error              { return nil }
