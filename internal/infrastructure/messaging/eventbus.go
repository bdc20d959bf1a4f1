// Package messaging реализует шину доменных событий Edulight: отметки
// о прохождении уроков, записи на курсы и пересчёты прогресса доходят
// до подписчиков либо внутри процесса, либо через Redis Pub/Sub.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edulight/edulight-backend/internal/domain/shared"
)

// ErrEventBusClosed возвращается при операциях над закрытой шиной.
var ErrEventBusClosed = errors.New("event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus доставляет события подписчикам внутри одного процесса.
// Этого достаточно для single-instance деплоя и для тестов; в кластере
// поверх него работает RedisEventBus.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig содержит настройки InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode - обрабатывать события в фоне, не блокируя Publish.
	// HTTP-обработчик не должен ждать пересчёта прогресса.
	AsyncMode bool

	// WorkerPoolSize - ограничение числа одновременных обработчиков.
	WorkerPoolSize int

	// Logger для структурированных логов.
	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig возвращает настройки по умолчанию.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus создаёт новую шину внутри процесса.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:    make(map[shared.EventType][]shared.EventHandler),
		allHandlers: make([]shared.EventHandler, 0),
		asyncMode:   config.AsyncMode,
		workerPool:  make(chan struct{}, config.WorkerPoolSize),
		logger:      config.Logger,
		closeCh:     make(chan struct{}),
	}
}

// Subscribe регистрирует обработчик для конкретного типа события.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)

	return nil
}

// SubscribeAll регистрирует обработчик для всех событий.
// Так подписывается диспетчер: маршрутизацию по типам он делает сам.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	b.logger.Debug("subscribed global handler")

	return nil
}

// Publish доставляет событие всем подписанным обработчикам.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	if b.asyncMode {
		for _, handler := range handlers {
			b.executeAsync(event, handler)
		}
		return nil
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}

	return nil
}

// executeAsync выполняет обработчик в фоне через пул воркеров.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		start := time.Now()
		if err := handler(event); err != nil {
			b.logger.Error("async handler error",
				"event_type", event.EventType(),
				"duration", time.Since(start),
				"error", err,
			)
		}
	}()
}

// Close останавливает шину, дождавшись запущенных обработчиков.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// Worker пересчитывает сводки и публикует события, API-инстансы держат
// in-memory проекции. Redis Pub/Sub - канал между ними.
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus доставляет события между инстансами через Redis Pub/Sub.
// Локальные подписчики получают событие напрямую, минуя Redis.
type RedisEventBus struct {
	client      RedisClient
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// RedisClient - минимальный контракт Pub/Sub, который нужен шине.
// Реализация живёт в persistence/redis и оборачивает go-redis.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage - сообщение, полученное из Redis Pub/Sub.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig содержит настройки RedisEventBus.
type RedisEventBusConfig struct {
	// Client - клиент Redis.
	Client RedisClient

	// ChannelName - канал событий (по умолчанию "edulight:events").
	ChannelName string

	// InstanceID идентифицирует инстанс: свои же сообщения из Redis
	// отбрасываются, локальная доставка уже состоялась.
	InstanceID string

	// LocalBusConfig - настройки локальной шины.
	LocalBusConfig InMemoryEventBusConfig

	// Logger для структурированных логов.
	Logger *slog.Logger
}

// NewRedisEventBus создаёт шину поверх Redis Pub/Sub.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "edulight:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &RedisEventBus{
		client:      config.Client,
		localBus:    NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  config.InstanceID,
		logger:      config.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	if err := bus.startSubscriber(); err != nil {
		cancel()
		return nil, fmt.Errorf("start subscriber: %w", err)
	}

	return bus, nil
}

// Subscribe регистрирует обработчик для конкретного типа события.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll регистрирует обработчик для всех событий.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish отправляет событие в Redis и локальным подписчикам.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	b.mu.RUnlock()

	envelope := eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Отказ Redis не теряет событие: локальные подписчики его получат,
	// а чужие инстансы догонят состояние из базы при следующем чтении.
	if err := b.client.Publish(b.ctx, b.channelName, string(data)); err != nil {
		b.logger.Error("failed to publish to redis", "error", err)
	}

	return b.localBus.Publish(event)
}

// startSubscriber запускает слушателя подписки.
func (b *RedisEventBus) startSubscriber() error {
	messages, err := b.client.Subscribe(b.ctx, b.channelName)
	if err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.subscriptionLoop(messages)
	}()

	return nil
}

// subscriptionLoop обрабатывает входящие сообщения из Redis.
func (b *RedisEventBus) subscriptionLoop(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}

			b.handleRedisMessage(msg)
		}
	}
}

// handleRedisMessage разворачивает сообщение и доставляет его локально.
func (b *RedisEventBus) handleRedisMessage(msg RedisMessage) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.logger.Error("failed to unmarshal event", "error", err)
		return
	}

	// Своё же сообщение: локальная доставка уже была в Publish.
	if envelope.InstanceID == b.instanceID {
		return
	}

	event := &remoteEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	}

	if err := b.localBus.Publish(event); err != nil {
		b.logger.Error("failed to process remote event", "error", err)
	}
}

// Close останавливает подписку и локальную шину.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	if err := b.localBus.Close(); err != nil {
		b.logger.Error("failed to close local bus", "error", err)
	}

	b.logger.Info("redis event bus closed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

// eventEnvelope - формат события в канале Redis.
type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// remoteEvent восстанавливает событие, пришедшее от другого инстанса.
// Типизированная структура события на той стороне уже сериализована в
// payload, подписчикам здесь этого достаточно.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *remoteEvent) EventType() shared.EventType { return e.eventType }

func (e *remoteEvent) AggregateID() string { return e.aggregateID }

func (e *remoteEvent) OccurredAt() time.Time { return e.occurredAt }

func (e *remoteEvent) Payload() map[string]interface{} { return e.payload }
