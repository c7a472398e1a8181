package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-responder/internal/domain"
)

type ChatRepository interface {
	GetByID(ctx context.Context, id string) (domain.Chat, error)
	// TryLockGeneration toma el lock de generacion del chat y pone ai_responding = true.
	// Solo lo toma si estaba libre o si el lock previo es mas viejo que staleAfter.
	// Devuelve false si otro proceso ya esta generando.
	TryLockGeneration(ctx context.Context, id string, staleAfter time.Duration) (bool, error)
	// ClearResponding baja el flag visible sin soltar el lock.
	ClearResponding(ctx context.Context, id string) error
	UnlockGeneration(ctx context.Context, id string) error
}

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

func (r *PgChatRepository) GetByID(ctx context.Context, id string) (domain.Chat, error) {
	const query = `
		SELECT id, model_id, ai_responding, responding_since, generation_locked_at, created_at
		FROM chats
		WHERE id = $1
	`
	var (
		chat    domain.Chat
		modelID *string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID,
		&modelID,
		&chat.AIResponding,
		&chat.RespondingSince,
		&chat.GenerationLockedAt,
		&chat.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Chat{}, err
	}
	if modelID != nil {
		chat.ModelID = *modelID
	}
	return chat, err
}

func (r *PgChatRepository) TryLockGeneration(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	const query = `
		UPDATE chats
		SET ai_responding = TRUE, responding_since = now(), generation_locked_at = now()
		WHERE id = $1
		  AND (
		    generation_locked_at IS NULL
		    OR ($2::float8 > 0 AND generation_locked_at < now() - make_interval(secs => $2::float8))
		  )
	`
	tag, err := r.pool.Exec(ctx, query, id, staleAfter.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgChatRepository) ClearResponding(ctx context.Context, id string) error {
	const query = `
		UPDATE chats
		SET ai_responding = FALSE, responding_since = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgChatRepository) UnlockGeneration(ctx context.Context, id string) error {
	const query = `
		UPDATE chats
		SET generation_locked_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
