package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-responder/internal/repository"
)

var ErrChatBusy = errors.New("chat busy: another response is being generated")

const defaultGuardPollInterval = 500 * time.Millisecond

// GenerationGuard serializa la generacion de respuestas por chat con un lock
// propio (generation_locked_at). El flag visible ai_responding se baja con
// MarkIdle; el lock se suelta con Release una vez guardada la respuesta.
type GenerationGuard struct {
	chats        repository.ChatRepository
	waitTimeout  time.Duration
	staleAfter   time.Duration
	pollInterval time.Duration
}

func NewGenerationGuard(chats repository.ChatRepository, waitTimeout, staleAfter time.Duration) *GenerationGuard {
	return &GenerationGuard{
		chats:        chats,
		waitTimeout:  waitTimeout,
		staleAfter:   staleAfter,
		pollInterval: defaultGuardPollInterval,
	}
}

// Acquire toma el lock y pone ai_responding = true. Si otro proceso lo tiene,
// reintenta hasta waitTimeout y luego devuelve ErrChatBusy.
func (g *GenerationGuard) Acquire(ctx context.Context, chatID string) error {
	deadline := time.Now().Add(g.waitTimeout)
	for {
		ok, err := g.chats.TryLockGeneration(ctx, chatID, g.staleAfter)
		if err != nil {
			return fmt.Errorf("lock generation: %w", err)
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrChatBusy
		}
		if err := sleepContext(ctx, min(g.pollInterval, remaining)); err != nil {
			return err
		}
	}
}

// MarkIdle pone ai_responding = false; el lock sigue tomado.
func (g *GenerationGuard) MarkIdle(ctx context.Context, chatID string) error {
	if err := g.chats.ClearResponding(ctx, chatID); err != nil {
		return fmt.Errorf("clear responding: %w", err)
	}
	return nil
}

// Release suelta el lock para que la siguiente generacion del chat pueda correr.
func (g *GenerationGuard) Release(ctx context.Context, chatID string) error {
	if err := g.chats.UnlockGeneration(ctx, chatID); err != nil {
		return fmt.Errorf("unlock generation: %w", err)
	}
	return nil
}
