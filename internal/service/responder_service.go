package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chat-responder/internal/domain"
	"chat-responder/internal/llm"
	"chat-responder/internal/metrics"
	"chat-responder/internal/repository"
)

// Outcome resume como termino el procesamiento de un evento.
type Outcome string

const (
	OutcomeReplied     Outcome = "replied"
	OutcomeMissing     Outcome = "missing"
	OutcomeIgnoredRole Outcome = "ignored_role"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeBusy        Outcome = "busy"
	OutcomeFailed      Outcome = "failed"
)

var (
	ErrResponderNotConfigured = errors.New("responder service not configured")
	ErrInvalidEvent           = errors.New("invalid message created event")
	ErrChatWithoutModel       = errors.New("chat has no model reference")
)

// ResponderOptions agrupa los parametros de configuracion del procesador.
type ResponderOptions struct {
	DefaultModel      string
	PacingEnabled     bool
	ProcessedEventTTL time.Duration
}

// ResponderService reacciona a mensajes nuevos: simula la lectura, pide la
// respuesta al LLM, simula la escritura y guarda la respuesta del asistente.
type ResponderService struct {
	logger    *zap.Logger
	llmClient llm.LLMClient
	chats     repository.ChatRepository
	models    repository.ModelRepository
	messages  *MessageService
	history   HistoryService
	guard     *GenerationGuard
	events    ProcessedEventStore
	opts      ResponderOptions
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewResponderService(
	logger *zap.Logger,
	llmClient llm.LLMClient,
	chats repository.ChatRepository,
	models repository.ModelRepository,
	messages *MessageService,
	history HistoryService,
	guard *GenerationGuard,
	events ProcessedEventStore,
	opts ResponderOptions,
) *ResponderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponderService{
		logger:    logger,
		llmClient: llmClient,
		chats:     chats,
		models:    models,
		messages:  messages,
		history:   history,
		guard:     guard,
		events:    events,
		opts:      opts,
		sleep:     sleepContext,
	}
}

// HandleMessageCreated procesa un mensaje recien creado en chats/{chatId}/messages/{messageId}.
// Los mensajes inexistentes o que no son del usuario terminan sin error y sin efectos.
// Si algo falla despues de marcar ai_responding, el flag y el lock quedan tomados
// hasta que venzan.
func (s *ResponderService) HandleMessageCreated(ctx context.Context, ev domain.MessageCreatedEvent) (Outcome, error) {
	if s == nil || s.llmClient == nil || s.chats == nil || s.models == nil ||
		s.messages == nil || s.history == nil || s.guard == nil {
		return OutcomeFailed, ErrResponderNotConfigured
	}
	if !ev.Valid() {
		return OutcomeFailed, ErrInvalidEvent
	}

	log := s.logger.With(zap.String("chat_id", ev.ChatID), zap.String("message_id", ev.MessageID))
	log.Info("processing message")

	claimed := false
	if s.events != nil {
		ok, err := s.events.Claim(ctx, ev.Key(), s.opts.ProcessedEventTTL)
		switch {
		case err != nil:
			log.Warn("claim processed event failed, continuing", zap.Error(err))
		case !ok:
			log.Info("event already processed, skipping")
			return OutcomeDuplicate, nil
		default:
			claimed = true
		}
	}

	outcome, err := s.respond(ctx, log, ev)
	if claimed && (err != nil || outcome == OutcomeBusy) {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		if relErr := s.events.Release(releaseCtx, ev.Key()); relErr != nil {
			log.Warn("release processed event failed", zap.Error(relErr))
		}
		cancel()
	}
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (s *ResponderService) respond(ctx context.Context, log *zap.Logger, ev domain.MessageCreatedEvent) (Outcome, error) {
	msg, found, err := s.messages.Get(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("get message: %w", err)
	}
	if !found {
		log.Info("message no longer exists, skipping")
		return OutcomeMissing, nil
	}

	chat, err := s.chats.GetByID(ctx, ev.ChatID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("get chat: %w", err)
	}
	if chat.ModelID == "" {
		return OutcomeFailed, ErrChatWithoutModel
	}
	log.Debug("chat loaded", zap.String("state", string(chat.State())), zap.Bool("ai_responding", chat.AIResponding))
	model, err := s.models.GetByID(ctx, chat.ModelID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("get model: %w", err)
	}

	// Solo los mensajes del usuario generan respuesta; asi la respuesta del
	// asistente no vuelve a disparar el procesador.
	if !msg.IsFromUser() {
		log.Info("message not authored by user, skipping", zap.String("role", msg.Role))
		return OutcomeIgnoredRole, nil
	}

	readingPause := ReadingPause(msg.Content)
	log.Info("reading time", zap.Duration("delay", readingPause))
	if err := s.pause(ctx, "reading", readingPause); err != nil {
		return OutcomeFailed, fmt.Errorf("reading pause: %w", err)
	}

	if err := s.guard.Acquire(ctx, ev.ChatID); err != nil {
		if errors.Is(err, ErrChatBusy) {
			log.Warn("another response is in progress, giving up")
			return OutcomeBusy, nil
		}
		return OutcomeFailed, fmt.Errorf("acquire generation: %w", err)
	}
	log.Info("ai responding")

	history, err := s.history.GetHistory(ctx, ev.ChatID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("get history: %w", err)
	}
	log.Info("history loaded", zap.Int("messages", len(history)))

	req := llm.ChatRequest{
		Model:    s.modelFor(model),
		Messages: make([]domain.HistoryEntry, 0, len(history)+1),
	}
	req.Messages = append(req.Messages, domain.HistoryEntry{Role: domain.RoleSystem, Content: model.Prompt})
	req.Messages = append(req.Messages, history...)

	start := time.Now()
	reply, err := s.llmClient.Chat(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CompletionDuration.WithLabelValues(req.Model, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("llm chat: %w", err)
	}
	log.Info("completion received", zap.Int("length", len(reply)))

	typingPause := TypingPause(reply)
	log.Info("typing time", zap.Duration("delay", typingPause))
	if err := s.pause(ctx, "typing", typingPause); err != nil {
		return OutcomeFailed, fmt.Errorf("typing pause: %w", err)
	}

	if err := s.guard.MarkIdle(ctx, ev.ChatID); err != nil {
		return OutcomeFailed, fmt.Errorf("mark idle: %w", err)
	}
	log.Info("ai stopped responding")

	saved, err := s.messages.AppendAssistantReply(ctx, ev.ChatID, reply)
	s.releaseGeneration(ctx, log, ev.ChatID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("append reply: %w", err)
	}
	log.Info("reply added", zap.String("reply_id", saved.ID))

	return OutcomeReplied, nil
}

// releaseGeneration suelta el lock aunque ctx ya este cancelado; si falla, el
// lock vence por staleAfter.
func (s *ResponderService) releaseGeneration(ctx context.Context, log *zap.Logger, chatID string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.guard.Release(releaseCtx, chatID); err != nil {
		log.Warn("release generation failed", zap.Error(err))
	}
}

func (s *ResponderService) modelFor(model domain.ChatModel) string {
	if model.LLMModel != "" {
		return model.LLMModel
	}
	return s.opts.DefaultModel
}

func (s *ResponderService) pause(ctx context.Context, kind string, d time.Duration) error {
	metrics.PacingDelaySeconds.WithLabelValues(kind).Observe(d.Seconds())
	if !s.opts.PacingEnabled {
		return nil
	}
	return s.sleep(ctx, d)
}
