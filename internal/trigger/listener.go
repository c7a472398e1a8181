package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"chat-responder/internal/domain"
	"chat-responder/internal/metrics"
	"chat-responder/internal/service"
)

// NotifyChannel es el canal que emite el trigger AFTER INSERT de messages.
const NotifyChannel = "message_created"

const defaultReconnectDelay = time.Second

// MessageProcessor procesa un evento de mensaje creado.
type MessageProcessor interface {
	HandleMessageCreated(ctx context.Context, ev domain.MessageCreatedEvent) (service.Outcome, error)
}

// notificationSource abstrae la conexion dedicada a LISTEN.
type notificationSource interface {
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// PgListener escucha NOTIFY de PostgreSQL y despacha cada evento en su propia goroutine.
type PgListener struct {
	logger    *zap.Logger
	processor MessageProcessor
	connect   func(ctx context.Context) (notificationSource, error)
	retry     time.Duration
	wg        sync.WaitGroup
}

func NewPgListener(pool *pgxpool.Pool, processor MessageProcessor, logger *zap.Logger) *PgListener {
	return &PgListener{
		logger:    logger,
		processor: processor,
		connect: func(ctx context.Context) (notificationSource, error) {
			return listen(ctx, pool)
		},
		retry: defaultReconnectDelay,
	}
}

type pooledListenConn struct {
	conn *pgxpool.Conn
}

func (c *pooledListenConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.conn.Conn().WaitForNotification(ctx)
}

// Release destruye la conexion: seguiria suscripta al canal si volviera al pool.
func (c *pooledListenConn) Release() {
	c.conn.Hijack().Close(context.Background())
}

func listen(ctx context.Context, pool *pgxpool.Pool) (notificationSource, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	return &pooledListenConn{conn: conn}, nil
}

// Run bloquea hasta que ctx se cancele, reconectando ante errores. Los eventos
// en curso no se cancelan con ctx; Run espera a que terminen antes de volver.
func (l *PgListener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	first := true
	for {
		if !first {
			metrics.ListenerReconnectsTotal.Inc()
		}
		first = false

		err := l.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("listener connection lost, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

func (l *PgListener) consume(ctx context.Context) error {
	src, err := l.connect(ctx)
	if err != nil {
		return err
	}
	defer src.Release()

	l.logger.Info("listening for new messages", zap.String("channel", NotifyChannel))
	for {
		n, err := src.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := DecodeNotification(n.Payload)
		if err != nil {
			l.logger.Warn("invalid notification payload", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.dispatch(ctx, ev)
	}
}

func (l *PgListener) dispatch(ctx context.Context, ev domain.MessageCreatedEvent) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		outcome, err := l.processor.HandleMessageCreated(context.WithoutCancel(ctx), ev)
		metrics.EventsTotal.WithLabelValues("listener", string(outcome)).Inc()
		if err != nil {
			l.logger.Error("message processing failed",
				zap.String("chat_id", ev.ChatID),
				zap.String("message_id", ev.MessageID),
				zap.Error(err),
			)
			return
		}
		l.logger.Info("message processed",
			zap.String("chat_id", ev.ChatID),
			zap.String("message_id", ev.MessageID),
			zap.String("outcome", string(outcome)),
		)
	}()
}

var ErrInvalidPayload = errors.New("invalid notification payload")

// DecodeNotification interpreta el payload JSON {"chat_id":..., "message_id":...}.
func DecodeNotification(payload string) (domain.MessageCreatedEvent, error) {
	var ev domain.MessageCreatedEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return domain.MessageCreatedEvent{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !ev.Valid() {
		return domain.MessageCreatedEvent{}, ErrInvalidPayload
	}
	return ev, nil
}
