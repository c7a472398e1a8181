package domain

import (
	"errors"
	"strings"
)

var ErrInvalidDocumentPath = errors.New("invalid message document path")

// MessageCreatedEvent describe la creacion de un documento en chats/{chatId}/messages/{messageId}.
type MessageCreatedEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// Key identifica el evento para deduplicar reentregas.
func (e MessageCreatedEvent) Key() string {
	return e.ChatID + "/" + e.MessageID
}

// Valid indica si el evento trae ambos identificadores.
func (e MessageCreatedEvent) Valid() bool {
	return strings.TrimSpace(e.ChatID) != "" && strings.TrimSpace(e.MessageID) != ""
}

// ParseMessageDocumentPath extrae chatId y messageId de "chats/{chatId}/messages/{messageId}".
func ParseMessageDocumentPath(path string) (chatID, messageID string, err error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(path), "/"), "/")
	if len(parts) != 4 || parts[0] != "chats" || parts[2] != "messages" {
		return "", "", ErrInvalidDocumentPath
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", ErrInvalidDocumentPath
	}
	return parts[1], parts[3], nil
}
