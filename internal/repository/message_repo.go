package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"botforge/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes.
// Las filas son append-only: nunca se actualizan ni se borran desde aqui.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListRecent(ctx context.Context, userID, channelID string, limit int) ([]domain.Message, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Create inserta un mensaje nuevo. Un id externo repetido no es error:
// ON CONFLICT DO NOTHING absorbe reentregas del mismo evento.
func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, external_message_id, user_id, channel_id, content, role, agent_name, reply_to_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_message_id) DO NOTHING
	`

	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return err
	}

	var replyTo interface{}
	if message.ReplyToID != "" {
		replyTo = message.ReplyToID
	}

	_, err = r.pool.Exec(ctx, query,
		message.ID,
		message.ExternalID,
		message.UserID,
		message.ChannelID,
		message.Content,
		message.Role,
		message.AgentName,
		replyTo,
		metadata,
		message.CreatedAt,
	)
	return err
}

// ListRecent devuelve hasta limit mensajes del par (usuario, canal) en
// orden cronologico ascendente. El orden lo define la propia tabla:
// created_at con la secuencia de insercion (seq) como desempate, nunca el
// proceso.
func (r *PgMessageRepository) ListRecent(ctx context.Context, userID, channelID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, external_message_id, user_id, channel_id, content, role, agent_name, reply_to_id, metadata, created_at
		FROM messages
		WHERE user_id = $1 AND channel_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, userID, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			msg      domain.Message
			replyTo  *string
			metadata []byte
		)
		err = rows.Scan(
			&msg.ID,
			&msg.ExternalID,
			&msg.UserID,
			&msg.ChannelID,
			&msg.Content,
			&msg.Role,
			&msg.AgentName,
			&replyTo,
			&metadata,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if replyTo != nil {
			msg.ReplyToID = *replyTo
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, err
			}
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	// La consulta trae los mas recientes primero; invertimos para entregar
	// el orden cronologico que espera el armado de contexto.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *PgMessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func (r *PgMessageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE created_at > $1`, since).Scan(&count)
	return count, err
}
