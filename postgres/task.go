package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flow"
)

// CreateTask inserts an ingestion task. If t.ID is empty, a UUID is
// auto-generated; an empty status defaults to pending.
// Returns the task ID (generated or provided).
func (s *PGStore) CreateTask(ctx context.Context, t *flow.IngestionTask) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = flow.TaskPending
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO ingestion_tasks (id, agent_id, filename, status, error)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.AgentID, t.Filename, string(t.Status), t.Error,
	)
	if err != nil {
		return "", fmt.Errorf("flow: insert task: %w", err)
	}

	return t.ID, nil
}

// GetTask fetches a single ingestion task by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetTask(ctx context.Context, taskID string) (*flow.IngestionTask, error) {
	var t flow.IngestionTask
	err := s.db.QueryRow(ctx,
		`SELECT id, agent_id, filename, status, error, created_at, updated_at
		 FROM ingestion_tasks WHERE id = $1`, taskID,
	).Scan(&t.ID, &t.AgentID, &t.Filename, &t.Status, &t.Error, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get task: %w", err)
	}

	return &t, nil
}

// UpdateTaskStatus moves a task to a new status, recording an error message
// for failed tasks. Returns ErrTaskNotFound if the task doesn't exist.
func (s *PGStore) UpdateTaskStatus(ctx context.Context, taskID string, status flow.TaskStatus, errMsg string) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE ingestion_tasks SET status = $1, error = $2, updated_at = NOW() WHERE id = $3`,
		string(status), errMsg, taskID,
	)
	if err != nil {
		return fmt.Errorf("flow: update task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flow.ErrTaskNotFound
	}
	return nil
}

// ListTasks returns all ingestion tasks for an agent, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListTasks(ctx context.Context, agentID string) ([]flow.IngestionTask, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, filename, status, error, created_at, updated_at
		 FROM ingestion_tasks WHERE agent_id = $1 ORDER BY created_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("flow: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []flow.IngestionTask{}
	for rows.Next() {
		var t flow.IngestionTask
		if err := rows.Scan(&t.ID, &t.AgentID, &t.Filename, &t.Status, &t.Error, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("flow: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows tasks: %w", err)
	}

	return tasks, nil
}
