package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one journal record.
type Entry struct {
	// Seq orders entries across all runs; zero until appended.
	Seq     int64
	RunID   string
	Type    string
	At      time.Time
	Payload json.RawMessage
}

// Decode unmarshals the payload into v.
func (e Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrEventQueryFailed, e.Type, err)
	}
	return nil
}
