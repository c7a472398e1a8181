package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chat-responder/internal/domain"
	"chat-responder/internal/repository"
)

// MessageService encapsula la lectura y escritura de mensajes de un chat.
type MessageService struct {
	repo repository.MessageRepository
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
)

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// Get devuelve el mensaje y false (sin error) si ya no existe.
func (s *MessageService) Get(ctx context.Context, chatID, messageID string) (domain.Message, bool, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, false, ErrMessageServiceNotConfigured
	}
	msg, err := s.repo.GetByID(ctx, strings.TrimSpace(chatID), strings.TrimSpace(messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}
	return msg, true, nil
}

// AppendAssistantReply agrega la respuesta del asistente; created_at lo asigna el servidor.
// El contenido se guarda tal cual, incluso vacio.
func (s *MessageService) AppendAssistantReply(ctx context.Context, chatID, content string) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}

	return s.repo.Create(ctx, domain.Message{
		ID:      uuid.NewString(),
		ChatID:  chatID,
		Role:    domain.RoleAssistant,
		Content: content,
	})
}
