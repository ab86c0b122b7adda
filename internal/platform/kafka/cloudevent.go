package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CloudEventsSpecVersion is the only spec version this service produces or accepts.
const CloudEventsSpecVersion = "1.0"

// CloudEvent is the JSON envelope (structured mode) for every message on the bus.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// NewCloudEvent wraps data into a CloudEvent.
func NewCloudEvent(source, eventType string, data any) (CloudEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return CloudEvent{
		SpecVersion:     CloudEventsSpecVersion,
		ID:              uuid.NewString(),
		Source:          source,
		Type:            eventType,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            payload,
	}, nil
}

// ParseCloudEvent decodes and checks a CloudEvent.
func ParseCloudEvent(raw []byte) (CloudEvent, error) {
	var ce CloudEvent
	if err := json.Unmarshal(raw, &ce); err != nil {
		return CloudEvent{}, fmt.Errorf("failed to decode cloud event: %w", err)
	}
	if ce.SpecVersion != CloudEventsSpecVersion {
		return CloudEvent{}, fmt.Errorf("unsupported cloud event spec version %q", ce.SpecVersion)
	}
	if ce.Type == "" {
		return CloudEvent{}, errors.New("cloud event type is required")
	}
	return ce, nil
}

// ParseData decodes the event payload into v.
func (ce CloudEvent) ParseData(v any) error {
	if len(ce.Data) == 0 {
		return errors.New("cloud event has no data")
	}
	if err := json.Unmarshal(ce.Data, v); err != nil {
		return fmt.Errorf("failed to decode cloud event data: %w", err)
	}
	return nil
}
