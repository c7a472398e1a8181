package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-responder/internal/domain"
)

type MessageRepository interface {
	GetByID(ctx context.Context, chatID, id string) (domain.Message, error)
	// ListRecentByChatID devuelve los ultimos limit mensajes en orden cronologico.
	// limit <= 0 devuelve el historial completo.
	ListRecentByChatID(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
	// Create inserta el mensaje con created_at asignado por el servidor.
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) GetByID(ctx context.Context, chatID, id string) (domain.Message, error) {
	const query = `
		SELECT id, chat_id, role, content, created_at
		FROM messages
		WHERE chat_id = $1 AND id = $2
	`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, chatID, id).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.Role,
		&msg.Content,
		&msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, err
	}
	return msg, err
}

func (r *PgMessageRepository) ListRecentByChatID(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, chat_id, role, content, created_at
		FROM (
			SELECT id, chat_id, role, content, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`

	// LIMIT NULL equivale a sin limite en PostgreSQL.
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, query, chatID, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (id, chat_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		message.ID,
		message.ChatID,
		message.Role,
		message.Content,
	).Scan(&message.CreatedAt)
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}
