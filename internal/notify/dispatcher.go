// Package notify доставка уведомлений о матчах: очередь в памяти и каналы доставки
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

const DefaultQueueSize = 256

// Sender канал доставки
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Dispatcher реализует порт уведомлений сервиса: Notify не блокирует,
// при переполнении очереди уведомление отбрасывается с предупреждением.
type Dispatcher struct {
	queue   chan model.Notification
	senders []Sender
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(queueSize int, logger *zap.Logger, senders ...Sender) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:   make(chan model.Notification, queueSize),
		senders: senders,
		logger:  logger,
	}
}

// Notify ставит уведомление в очередь; после Stop уведомление отбрасывается
func (d *Dispatcher) Notify(_ context.Context, n model.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("Notification dispatcher is stopped, dropping notification",
			zap.String("title", n.Title))
		return
	}

	select {
	case d.queue <- n:
	default:
		d.logger.Warn("Notification queue is full, dropping notification",
			zap.String("title", n.Title),
			zap.Int("recipients", len(n.Recipients)))
	}
}

// Start запускает воркер; он работает до Stop
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range d.queue {
			d.deliver(ctx, n)
		}
	}()
}

// Stop закрывает очередь и ждёт доставки уже принятых уведомлений
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	for _, s := range d.senders {
		if err := s.Send(ctx, n); err != nil {
			d.logger.Error("Failed to deliver notification",
				zap.String("title", n.Title),
				zap.String("match_id", n.Metadata["match_id"]),
				zap.Error(err))
		}
	}
}
