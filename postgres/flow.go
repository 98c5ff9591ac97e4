package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// SaveFlow replaces the agent's flow blob.
// Returns ErrAgentNotFound if the agent doesn't exist.
func (s *PGStore) SaveFlow(ctx context.Context, agentID string, g flow.Graph) error {
	blob, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("flow: encode flow blob: %w", err)
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE agents SET flow_builder = $1, updated_at = NOW() WHERE id = $2`,
		json.RawMessage(blob), agentID,
	)
	if err != nil {
		return fmt.Errorf("flow: save flow: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return flow.ErrAgentNotFound
	}
	return nil
}

// GetFlow fetches the agent's flow blob.
// Returns nil, nil if the agent doesn't exist or has no flow yet.
func (s *PGStore) GetFlow(ctx context.Context, agentID string) (*flow.Graph, error) {
	var blob json.RawMessage
	err := s.db.QueryRow(ctx,
		`SELECT flow_builder FROM agents WHERE id = $1`, agentID,
	).Scan(&blob)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get flow: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var g flow.Graph
	if err := json.Unmarshal(blob, &g); err != nil {
		return nil, fmt.Errorf("flow: decode flow blob: %w", err)
	}
	return &g, nil
}
