package domain

import "time"

// Event topics
const (
	TopicCrewEvents = "crew.events"
	TopicTaskEvents = "task.events"
)

// EventType identifies a lifecycle event
type EventType string

const (
	EventTypeCrewStarted       EventType = "crew.started"
	EventTypeCrewCompleted     EventType = "crew.completed"
	EventTypeCrewFailed        EventType = "crew.failed"
	EventTypePlanningStarted   EventType = "planning.started"
	EventTypePlanningCompleted EventType = "planning.completed"
	EventTypePlanningFallback  EventType = "planning.fallback"
	EventTypeTaskStarted       EventType = "task.started"
	EventTypeTaskCompleted     EventType = "task.completed"
	EventTypeTaskFailed        EventType = "task.failed"
)

// Event is published on the event bus at each run transition
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	TaskID    string                 `json:"task_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
