package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"botforge/internal/domain"
)

// EmbeddingRepository guarda vectores por mensaje y permite buscar los
// turnos mas cercanos semanticamente dentro de un par (usuario, canal).
type EmbeddingRepository interface {
	Create(ctx context.Context, embedding domain.MessageEmbedding) error
	Search(ctx context.Context, userID, channelID string, query pgvector.Vector, k int) ([]domain.MessageEmbedding, error)
}

type PgEmbeddingRepository struct {
	pool *pgxpool.Pool
}

func NewPgEmbeddingRepository(pool *pgxpool.Pool) *PgEmbeddingRepository {
	return &PgEmbeddingRepository{pool: pool}
}

func (r *PgEmbeddingRepository) Create(ctx context.Context, embedding domain.MessageEmbedding) error {
	const query = `
		INSERT INTO message_embeddings (id, message_id, user_id, channel_id, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		embedding.ID,
		embedding.MessageID,
		embedding.UserID,
		embedding.ChannelID,
		embedding.Content,
		embedding.Embedding,
		embedding.CreatedAt,
	)
	return err
}

func (r *PgEmbeddingRepository) Search(ctx context.Context, userID, channelID string, query pgvector.Vector, k int) ([]domain.MessageEmbedding, error) {
	if k <= 0 {
		k = 5
	}
	const stmt = `
		SELECT id, message_id, user_id, channel_id, content, embedding, created_at
		FROM message_embeddings
		WHERE user_id = $1 AND channel_id = $2
		ORDER BY embedding <=> $3
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, stmt, userID, channelID, query, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var embeddings []domain.MessageEmbedding
	for rows.Next() {
		var e domain.MessageEmbedding
		if err := rows.Scan(
			&e.ID,
			&e.MessageID,
			&e.UserID,
			&e.ChannelID,
			&e.Content,
			&e.Embedding,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		embeddings = append(embeddings, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return embeddings, nil
}
