package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IsFromUser indica si el mensaje fue escrito por una persona. Solo estos
// mensajes disparan una respuesta; los del asistente nunca vuelven a entrar al ciclo.
func (m Message) IsFromUser() bool {
	return m.Role == RoleUser
}

// HistoryEntry es la proyeccion {role, content} que se envia al LLM.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
