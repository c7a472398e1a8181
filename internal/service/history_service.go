package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chat-responder/internal/domain"
	"chat-responder/internal/repository"
)

// HistoryService define contrato para recuperar el historial que se envia al LLM.
type HistoryService interface {
	GetHistory(ctx context.Context, chatID string) ([]domain.HistoryEntry, error)
}

// BasicHistoryService obtiene los ultimos mensajes del chat en orden cronologico.
type BasicHistoryService struct {
	messageRepo repository.MessageRepository
	limit       int
}

// NewBasicHistoryService crea el servicio; limit <= 0 envia el historial completo.
func NewBasicHistoryService(messageRepo repository.MessageRepository, limit int) *BasicHistoryService {
	return &BasicHistoryService{messageRepo: messageRepo, limit: limit}
}

func (s *BasicHistoryService) GetHistory(ctx context.Context, chatID string) ([]domain.HistoryEntry, error) {
	if strings.TrimSpace(chatID) == "" {
		return []domain.HistoryEntry{}, nil
	}

	messages, err := s.messageRepo.ListRecentByChatID(ctx, chatID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	if s.limit > 0 && len(messages) > s.limit {
		messages = messages[len(messages)-s.limit:]
	}

	history := make([]domain.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, domain.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history, nil
}
