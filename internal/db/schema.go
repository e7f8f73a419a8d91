package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentencias idempotentes que dejan el esquema listo al arranque.
// La extension vector requiere que pgvector este instalado en el servidor.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS discord_users (
		id           TEXT PRIMARY KEY,
		username     TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id                  UUID PRIMARY KEY,
		seq                 BIGINT GENERATED ALWAYS AS IDENTITY,
		external_message_id TEXT NOT NULL UNIQUE,
		user_id             TEXT NOT NULL REFERENCES discord_users(id),
		channel_id          TEXT NOT NULL,
		content             TEXT NOT NULL,
		role                TEXT NOT NULL,
		agent_name          TEXT NOT NULL DEFAULT '',
		reply_to_id         TEXT,
		metadata            JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_user_channel_created
		ON messages (user_id, channel_id, created_at DESC, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS message_embeddings (
		id         UUID PRIMARY KEY,
		message_id UUID NOT NULL REFERENCES messages(id),
		user_id    TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		content    TEXT NOT NULL,
		embedding  VECTOR(1536) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate aplica el esquema base. Cada sentencia es idempotente, asi que es
// seguro ejecutarlo en cada arranque.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
