package domain

import "time"

// ResponseState representa si el asistente esta generando una respuesta en el chat.
type ResponseState string

const (
	ResponseStateIdle       ResponseState = "idle"
	ResponseStateGenerating ResponseState = "generating"
)

// Chat es la conversacion. GenerationLockedAt se mantiene hasta que la respuesta
// queda guardada, aunque ai_responding ya este en false.
type Chat struct {
	ID                 string     `json:"id"`
	ModelID            string     `json:"model_id"`
	AIResponding       bool       `json:"ai_responding"`
	RespondingSince    *time.Time `json:"responding_since,omitempty"`
	GenerationLockedAt *time.Time `json:"generation_locked_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// State indica si hay una generacion en curso segun el lock del chat.
func (c Chat) State() ResponseState {
	if c.GenerationLockedAt != nil {
		return ResponseStateGenerating
	}
	return ResponseStateIdle
}

// ChatModel es la configuracion de modelo referenciada por un chat.
type ChatModel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Prompt    string    `json:"prompt"`
	LLMModel  string    `json:"llm_model,omitempty"` // vacio = modelo por defecto
	CreatedAt time.Time `json:"created_at"`
}
