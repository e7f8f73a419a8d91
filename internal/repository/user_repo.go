package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"botforge/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios de Discord.
type UserRepository interface {
	Upsert(ctx context.Context, user domain.DiscordUser) error
	GetByID(ctx context.Context, id string) (domain.DiscordUser, error)
	Count(ctx context.Context) (int64, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

// Upsert inserta el usuario si no existe y si ya existe actualiza username
// y updated_at. El conflicto se resuelve sobre la PK, asi que llamadas
// concurrentes para el mismo id nunca crean duplicados.
func (r *PgUserRepository) Upsert(ctx context.Context, user domain.DiscordUser) error {
	const query = `
		INSERT INTO discord_users (id, username, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.DiscordUser, error) {
	const query = `
		SELECT id, username, display_name, created_at, updated_at
		FROM discord_users
		WHERE id = $1
	`
	var u domain.DiscordUser
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *PgUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM discord_users`).Scan(&count)
	return count, err
}
