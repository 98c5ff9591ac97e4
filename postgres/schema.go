package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS agents (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    prompt            TEXT NOT NULL DEFAULT '',
    tools             JSONB NOT NULL DEFAULT '[]',
    subagents         JSONB NOT NULL DEFAULT '[]',
    triggers          JSONB NOT NULL DEFAULT '[]',
    knowledge_base    JSONB NOT NULL DEFAULT '[]',
    advanced_settings JSONB NOT NULL DEFAULT '{}',
    flow_builder      JSONB,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ingestion_tasks (
    id         TEXT PRIMARY KEY,
    agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    filename   TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'pending',
    error      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ingestion_tasks_agent_id ON ingestion_tasks(agent_id);
CREATE INDEX IF NOT EXISTS idx_ingestion_tasks_status   ON ingestion_tasks(status);
`

// CreateSchema creates the agents and ingestion_tasks tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the ingestion_tasks and agents tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS ingestion_tasks, agents CASCADE;`)
	return err
}
