package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// MessageEmbedding asocia un turno con su vector para recuperacion
// semantica mas alla de la ventana reciente.
type MessageEmbedding struct {
	ID        string          `json:"id"`
	MessageID string          `json:"message_id"`
	UserID    string          `json:"user_id"`
	ChannelID string          `json:"channel_id"`
	Content   string          `json:"content"`
	Embedding pgvector.Vector `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}
