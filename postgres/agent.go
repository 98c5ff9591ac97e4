package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/flow"
)

const agentColumns = `id, name, prompt, tools, subagents, triggers, knowledge_base, advanced_settings, flow_builder, created_at, updated_at`

// CreateAgent inserts an agent. If a.ID is empty, a UUID is auto-generated.
// Returns the agent ID (generated or provided).
func (s *PGStore) CreateAgent(ctx context.Context, a *flow.Agent) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tools, subagents, err := marshalStringLists(a)
	if err != nil {
		return "", err
	}
	flowBlob, err := marshalFlow(a.FlowBuilder)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO agents (id, name, prompt, tools, subagents, triggers, knowledge_base, advanced_settings, flow_builder)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Name, a.Prompt, tools, subagents,
		rawOrDefault(a.Triggers, `[]`),
		rawOrDefault(a.KnowledgeBase, `[]`),
		rawOrDefault(a.AdvancedSettings, `{}`),
		flowBlob,
	)
	if err != nil {
		return "", fmt.Errorf("flow: insert agent: %w", err)
	}

	return a.ID, nil
}

// GetAgent fetches a single agent by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetAgent(ctx context.Context, agentID string) (*flow.Agent, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, agentID)
	a, err := scanAgent(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get agent: %w", err)
	}
	return a, nil
}

// UpdateAgent updates an existing agent's metadata and flow blob.
// Returns ErrAgentNotFound if the agent doesn't exist.
func (s *PGStore) UpdateAgent(ctx context.Context, a *flow.Agent) error {
	tools, subagents, err := marshalStringLists(a)
	if err != nil {
		return err
	}
	flowBlob, err := marshalFlow(a.FlowBuilder)
	if err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE agents SET name = $1, prompt = $2, tools = $3, subagents = $4,
		 triggers = $5, knowledge_base = $6, advanced_settings = $7, flow_builder = $8,
		 updated_at = NOW() WHERE id = $9`,
		a.Name, a.Prompt, tools, subagents,
		rawOrDefault(a.Triggers, `[]`),
		rawOrDefault(a.KnowledgeBase, `[]`),
		rawOrDefault(a.AdvancedSettings, `{}`),
		flowBlob, a.ID,
	)
	if err != nil {
		return fmt.Errorf("flow: update agent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flow.ErrAgentNotFound
	}
	return nil
}

// DeleteAgent deletes an agent by its ID. Ingestion tasks are
// cascade-deleted by the DB. No error if the agent doesn't exist.
func (s *PGStore) DeleteAgent(ctx context.Context, agentID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("flow: delete agent: %w", err)
	}
	return nil
}

// ListAgents returns all agents ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListAgents(ctx context.Context) ([]flow.Agent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("flow: list agents: %w", err)
	}
	defer rows.Close()

	agents := []flow.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("flow: scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows agents: %w", err)
	}

	return agents, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*flow.Agent, error) {
	var (
		a         flow.Agent
		tools     json.RawMessage
		subagents json.RawMessage
		flowBlob  json.RawMessage
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.Prompt, &tools, &subagents,
		&a.Triggers, &a.KnowledgeBase, &a.AdvancedSettings,
		&flowBlob, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tools, &a.Tools); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	if err := json.Unmarshal(subagents, &a.Subagents); err != nil {
		return nil, fmt.Errorf("decode subagents: %w", err)
	}
	if len(flowBlob) > 0 {
		var g flow.Graph
		if err := json.Unmarshal(flowBlob, &g); err != nil {
			return nil, fmt.Errorf("decode flow blob: %w", err)
		}
		a.FlowBuilder = &g
	}
	return &a, nil
}

func marshalStringLists(a *flow.Agent) (tools, subagents json.RawMessage, err error) {
	if tools, err = marshalList(a.Tools); err != nil {
		return nil, nil, fmt.Errorf("flow: encode tools: %w", err)
	}
	if subagents, err = marshalList(a.Subagents); err != nil {
		return nil, nil, fmt.Errorf("flow: encode subagents: %w", err)
	}
	return tools, subagents, nil
}

func marshalList(list []string) (json.RawMessage, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func marshalFlow(g *flow.Graph) (json.RawMessage, error) {
	if g == nil {
		return nil, nil
	}
	blob, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("flow: encode flow blob: %w", err)
	}
	return blob, nil
}

func rawOrDefault(m json.RawMessage, def string) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage(def)
	}
	return m
}
