package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"chat-responder/internal/domain"
	"chat-responder/internal/repository"
)

type fakeChatRepo struct {
	mu          sync.Mutex
	chats       map[string]domain.Chat
	getErr      error
	markErr     error
	markCalls   int
	clearCalls  int
	unlockCalls int
}

func newFakeChatRepo(chats ...domain.Chat) *fakeChatRepo {
	r := &fakeChatRepo{chats: make(map[string]domain.Chat)}
	for _, c := range chats {
		r.chats[c.ID] = c
	}
	return r
}

func (r *fakeChatRepo) GetByID(_ context.Context, id string) (domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.Chat{}, r.getErr
	}
	c, ok := r.chats[id]
	if !ok {
		return domain.Chat{}, pgx.ErrNoRows
	}
	return c, nil
}

func (r *fakeChatRepo) TryLockGeneration(_ context.Context, id string, staleAfter time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	if r.markErr != nil {
		return false, r.markErr
	}
	c, ok := r.chats[id]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	stale := staleAfter > 0 && c.GenerationLockedAt != nil && c.GenerationLockedAt.Before(now.Add(-staleAfter))
	if c.GenerationLockedAt != nil && !stale {
		return false, nil
	}
	c.AIResponding = true
	c.RespondingSince = &now
	c.GenerationLockedAt = &now
	r.chats[id] = c
	return true, nil
}

func (r *fakeChatRepo) ClearResponding(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearCalls++
	c := r.chats[id]
	c.AIResponding = false
	c.RespondingSince = nil
	r.chats[id] = c
	return nil
}

func (r *fakeChatRepo) UnlockGeneration(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlockCalls++
	c := r.chats[id]
	c.GenerationLockedAt = nil
	r.chats[id] = c
	return nil
}

func (r *fakeChatRepo) chat(id string) domain.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats[id]
}

type fakeModelRepo struct {
	models map[string]domain.ChatModel
}

func (r *fakeModelRepo) GetByID(_ context.Context, id string) (domain.ChatModel, error) {
	m, ok := r.models[id]
	if !ok {
		return domain.ChatModel{}, pgx.ErrNoRows
	}
	return m, nil
}

type fakeMessageRepo struct {
	mu          sync.Mutex
	messages    []domain.Message
	clock       time.Time
	getErr      error
	listErr     error
	createErr   error
	createDelay time.Duration
	lastLimit   int
}

func newFakeMessageRepo(msgs ...domain.Message) *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: msgs,
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *fakeMessageRepo) GetByID(_ context.Context, chatID, id string) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.Message{}, r.getErr
	}
	for _, m := range r.messages {
		if m.ChatID == chatID && m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, pgx.ErrNoRows
}

func (r *fakeMessageRepo) ListRecentByChatID(_ context.Context, chatID string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Create(_ context.Context, message domain.Message) (domain.Message, error) {
	if r.createDelay > 0 {
		time.Sleep(r.createDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return domain.Message{}, r.createErr
	}
	r.clock = r.clock.Add(time.Second)
	message.CreatedAt = r.clock
	r.messages = append(r.messages, message)
	return message, nil
}

func (r *fakeMessageRepo) byRole(chatID, role string) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID && m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

var (
	_ repository.ChatRepository    = (*fakeChatRepo)(nil)
	_ repository.ModelRepository   = (*fakeModelRepo)(nil)
	_ repository.MessageRepository = (*fakeMessageRepo)(nil)
)
