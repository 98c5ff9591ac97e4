package flow

import (
	"encoding/json"
	"time"
)

// Agent is the persisted agent configuration. Triggers, knowledge base and
// advanced settings are opaque payloads owned by their respective editors;
// this service stores and returns them untouched.
type Agent struct {
	ID               string          `json:"id,omitempty"`
	Name             string          `json:"name"`
	Prompt           string          `json:"prompt"`
	Tools            []string        `json:"tools"`
	Subagents        []string        `json:"subagents"`
	Triggers         json.RawMessage `json:"triggers,omitempty"`
	KnowledgeBase    json.RawMessage `json:"knowledge_base,omitempty"`
	AdvancedSettings json.RawMessage `json:"advanced_settings,omitempty"`
	FlowBuilder      *Graph          `json:"flow_builder,omitempty"`
	CreatedAt        time.Time       `json:"created_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at,omitempty"`
}

// TaskStatus is the lifecycle state of a knowledge-ingestion task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IngestionTask tracks a knowledge-base file upload through the ingestion
// pipeline. Clients poll it by id until the status settles.
type IngestionTask struct {
	ID        string     `json:"id,omitempty"`
	AgentID   string     `json:"agent_id"`
	Filename  string     `json:"filename"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}
