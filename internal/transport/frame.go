package transport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// frame is the JSON text frame exchanged over the socket.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return nil, fmt.Errorf("transport: event name required")
	}
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("transport: encode %s payload: %w", event, err)
		}
		data = raw
	}
	return json.Marshal(frame{Event: event, Data: data})
}

func decodeFrame(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("transport: invalid frame: %w", err)
	}
	name := strings.TrimSpace(f.Event)
	if name == "" {
		return Event{}, fmt.Errorf("transport: frame without event name")
	}
	return Event{Name: name, Data: f.Data}, nil
}
