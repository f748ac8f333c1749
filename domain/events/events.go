package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string { return e.AggregateID }
func (e BaseEvent) GetEventType() string { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int { return e.Version }

// Event types
const (
	TypeSampleIngested   = "schema.sample_ingested"
	TypeSchemaFinalized  = "schema.finalized"
	TypeSchemaReverted   = "schema.reverted"
	TypeSessionStarted   = "model.session_started"
	TypeOperationApplied = "model.operation_applied"
	TypeModelReverted    = "model.reverted"
)

// Schema events

// SampleIngested is raised after samples were folded into an aggregation
type SampleIngested struct {
	BaseEvent
	DataSourceID string `json:"data_source_id"`
	Accepted     int    `json:"accepted"`
	Rejected     int    `json:"rejected"`
	Total        int    `json:"total"`
	Ready        bool   `json:"ready"`
}

// NewSampleIngested creates a SampleIngested event
func NewSampleIngested(dataSourceID string, accepted, rejected, total int, ready bool, timestamp time.Time) SampleIngested {
	return SampleIngested{
		BaseEvent: BaseEvent{
			AggregateID: dataSourceID,
			EventType:   TypeSampleIngested,
			Timestamp:   timestamp,
			Version:     total,
		},
		DataSourceID: dataSourceID,
		Accepted:     accepted,
		Rejected:     rejected,
		Total:        total,
		Ready:        ready,
	}
}

// SchemaFinalized is raised when an aggregation became a schema revision
type SchemaFinalized struct {
	BaseEvent
	DataSourceID string `json:"data_source_id"`
	SchemaID     string `json:"schema_id"`
	Samples      int    `json:"samples"`
	Faults       int    `json:"faults"`
}

// NewSchemaFinalized creates a SchemaFinalized event
func NewSchemaFinalized(dataSourceID, schemaID string, revision, samples, faults int, timestamp time.Time) SchemaFinalized {
	return SchemaFinalized{
		BaseEvent: BaseEvent{
			AggregateID: dataSourceID,
			EventType:   TypeSchemaFinalized,
			Timestamp:   timestamp,
			Version:     revision,
		},
		DataSourceID: dataSourceID,
		SchemaID:     schemaID,
		Samples:      samples,
		Faults:       faults,
	}
}

// Direction of a revert
const (
	DirectionUndo = "undo"
	DirectionRedo = "redo"
)

// SchemaReverted is raised when the schema history moved
type SchemaReverted struct {
	BaseEvent
	DataSourceID string `json:"data_source_id"`
	Direction    string `json:"direction"`
}

// NewSchemaReverted creates a SchemaReverted event
func NewSchemaReverted(dataSourceID, direction string, cursor int, timestamp time.Time) SchemaReverted {
	return SchemaReverted{
		BaseEvent: BaseEvent{
			AggregateID: dataSourceID,
			EventType:   TypeSchemaReverted,
			Timestamp:   timestamp,
			Version:     cursor,
		},
		DataSourceID: dataSourceID,
		Direction:    direction,
	}
}

// Modeling events

// SessionStarted is raised when a modeling session opened over a schema
type SessionStarted struct {
	BaseEvent
	SessionID    string `json:"session_id"`
	DataSourceID string `json:"data_source_id"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(sessionID, dataSourceID string, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeSessionStarted,
			Timestamp:   timestamp,
			Version:     1,
		},
		SessionID:    sessionID,
		DataSourceID: dataSourceID,
	}
}

// OperationApplied is raised after an operation produced a new revision
type OperationApplied struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Operation string `json:"operation"`
}

// NewOperationApplied creates an OperationApplied event
func NewOperationApplied(sessionID, operation string, revision int, timestamp time.Time) OperationApplied {
	return OperationApplied{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeOperationApplied,
			Timestamp:   timestamp,
			Version:     revision,
		},
		SessionID: sessionID,
		Operation: operation,
	}
}

// ModelReverted is raised when a session history moved
type ModelReverted struct {
	BaseEvent
	SessionID string `json:"session_id"`
	Direction string `json:"direction"`
}

// NewModelReverted creates a ModelReverted event
func NewModelReverted(sessionID, direction string, cursor int, timestamp time.Time) ModelReverted {
	return ModelReverted{
		BaseEvent: BaseEvent{
			AggregateID: sessionID,
			EventType:   TypeModelReverted,
			Timestamp:   timestamp,
			Version:     cursor,
		},
		SessionID: sessionID,
		Direction: direction,
	}
}
