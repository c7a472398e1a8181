package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-responder/internal/domain"
)

type ModelRepository interface {
	GetByID(ctx context.Context, id string) (domain.ChatModel, error)
}

type PgModelRepository struct {
	pool *pgxpool.Pool
}

func NewPgModelRepository(pool *pgxpool.Pool) *PgModelRepository {
	return &PgModelRepository{pool: pool}
}

func (r *PgModelRepository) GetByID(ctx context.Context, id string) (domain.ChatModel, error) {
	const query = `
		SELECT id, name, prompt, llm_model, created_at
		FROM models
		WHERE id = $1
	`
	var model domain.ChatModel
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&model.ID,
		&model.Name,
		&model.Prompt,
		&model.LLMModel,
		&model.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChatModel{}, err
	}
	return model, err
}
