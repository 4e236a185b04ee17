package eventbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/contract-wizard/internal/contract"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the currently supported inbound event version.
	EventSchemaVersion = 1
)

// Event types the backend posts to the webhook.
const (
	TypeStatusChanged       = "contract.status_changed"
	TypeSigned              = "contract.signed"
	TypeCancelled           = "contract.cancelled"
	TypeWitnessConfirmed    = "witness.confirmed"
	TypeNotificationCreated = "notification.created"
)

var knownTypes = map[string]bool{
	TypeStatusChanged:       true,
	TypeSigned:              true,
	TypeCancelled:           true,
	TypeWitnessConfirmed:    true,
	TypeNotificationCreated: true,
}

// Event is a single contract notification delivered by the backend.
type Event struct {
	Version      int                    `json:"version"`
	EventID      string                 `json:"event_id"`
	Type         string                 `json:"type"`
	ContractID   string                 `json:"contract_id"`
	Status       contract.Status        `json:"status,omitempty"`
	Notification *contract.Notification `json:"notification,omitempty"`
	OccurredAt   time.Time              `json:"occurred_at"`
	ServerTime   time.Time              `json:"server_time"`
}

// Normalize applies defaults and canonical formatting before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.ContractID = strings.TrimSpace(e.ContractID)
	if e.Status != "" {
		if parsed, err := contract.ParseStatus(string(e.Status)); err == nil {
			e.Status = parsed
		}
	}
	if e.Notification != nil && e.Notification.ContractID == "" {
		e.Notification.ContractID = e.ContractID
	}
}

// StampServerTime overwrites ServerTime with the supplied clock reading (UTC).
func (e *Event) StampServerTime(now time.Time) {
	if e == nil {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.ServerTime = now.UTC()
}

// Validate enforces baseline schema requirements for incoming events.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.Type == "" {
		return errors.New("type is required")
	}
	if !knownTypes[e.Type] {
		return fmt.Errorf("type %q not supported", e.Type)
	}
	if e.ContractID == "" {
		return errors.New("contract_id is required")
	}
	if e.Status != "" {
		if _, err := contract.ParseStatus(string(e.Status)); err != nil {
			return err
		}
	}
	switch e.Type {
	case TypeStatusChanged:
		if e.Status == "" {
			return errors.New("status is required for status changes")
		}
	case TypeNotificationCreated:
		if e.Notification == nil {
			return errors.New("notification is required")
		}
	}
	return nil
}

// Critical events are never dropped in favour of routine ones.
func (e Event) Critical() bool {
	return e.Type == TypeSigned || e.Type == TypeCancelled
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

// EventProcessorFunc adapts a function into an EventProcessor.
type EventProcessorFunc func(Event) error

// HandleEvent executes f(e).
func (f EventProcessorFunc) HandleEvent(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
