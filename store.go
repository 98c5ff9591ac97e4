package flow

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound   = errors.New("flow: node not found")
	ErrUnknownKind    = errors.New("flow: unknown node kind")
	ErrStartImmutable = errors.New("flow: start node cannot be deleted")
	ErrInvalidGraph   = errors.New("flow: invalid graph")
	ErrAgentNotFound  = errors.New("flow: agent not found")
	ErrTaskNotFound   = errors.New("flow: ingestion task not found")
)

// Store defines the contract for persisting agents, their flow graphs, and
// knowledge-ingestion tasks.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Agents
	CreateAgent(ctx context.Context, a *Agent) (string, error)
	GetAgent(ctx context.Context, agentID string) (*Agent, error)
	UpdateAgent(ctx context.Context, a *Agent) error
	DeleteAgent(ctx context.Context, agentID string) error
	ListAgents(ctx context.Context) ([]Agent, error)

	// Flow graphs (stored on the agent as an opaque blob)
	SaveFlow(ctx context.Context, agentID string, g Graph) error
	GetFlow(ctx context.Context, agentID string) (*Graph, error)

	// Knowledge-ingestion tasks
	CreateTask(ctx context.Context, t *IngestionTask) (string, error)
	GetTask(ctx context.Context, taskID string) (*IngestionTask, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, errMsg string) error
	ListTasks(ctx context.Context, agentID string) ([]IngestionTask, error)
}
