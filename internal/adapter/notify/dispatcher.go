// Package notify delivers notifications asynchronously through a pluggable
// transport.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/adapter/metrics"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"go.uber.org/zap"
)

// Sender is one delivery transport.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
	Close() error
}

type Recorder interface {
	NotificationResult(template domain.NotificationTemplate, result string)
}

type nopRecorder struct{}

func (nopRecorder) NotificationResult(domain.NotificationTemplate, string) {}

const (
	defaultAttempts    = 3
	defaultRetryDelay  = time.Second
	defaultSendTimeout = 10 * time.Second
)

var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher is a bounded queue served by a fixed worker pool.
type Dispatcher struct {
	sender   Sender
	recorder Recorder
	logger   *zap.Logger

	queue   chan domain.Notification
	workers int

	attempts    int
	retryDelay  time.Duration
	sendTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, conf *config.Notify, recorder Recorder, logger *zap.Logger) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	workers := max(conf.Workers, 1)
	buffer := max(conf.Buffer, 0)

	return &Dispatcher{
		sender:      sender,
		recorder:    recorder,
		logger:      logger,
		queue:       make(chan domain.Notification, buffer),
		workers:     workers,
		attempts:    defaultAttempts,
		retryDelay:  defaultRetryDelay,
		sendTimeout: defaultSendTimeout,
	}
}

// Start launches the workers. They exit once Stop has drained the queue.
func (d *Dispatcher) Start() {
	for i := range d.workers {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			for n := range d.queue {
				d.deliver(id, n)
			}
			d.logger.Debug("notification worker finished", zap.Int("worker", id))
		}(i)
	}
}

// Enqueue never blocks. A full or stopped queue drops the notification.
func (d *Dispatcher) Enqueue(n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(n, ErrDispatcherStopped)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.drop(n, errors.New("queue is full"))
	}
}

func (d *Dispatcher) drop(n domain.Notification, reason error) {
	d.recorder.NotificationResult(n.Template, metrics.NotificationDropped)
	d.logger.Warn("notification dropped",
		zap.String("template", string(n.Template)),
		zap.String("recipient", n.Recipient),
		zap.Error(reason))
}

func (d *Dispatcher) deliver(worker int, n domain.Notification) {
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
		err = d.sender.Send(ctx, n)
		cancel()
		if err == nil {
			d.recorder.NotificationResult(n.Template, metrics.NotificationSent)
			d.logger.Debug("notification sent",
				zap.Int("worker", worker),
				zap.String("template", string(n.Template)),
				zap.String("recipient", n.Recipient))
			return
		}

		d.logger.Warn("notification attempt failed",
			zap.Int("worker", worker),
			zap.Int("attempt", attempt),
			zap.String("recipient", n.Recipient),
			zap.Error(err))
		if attempt < d.attempts {
			time.Sleep(d.retryDelay * time.Duration(attempt))
		}
	}

	d.recorder.NotificationResult(n.Template, metrics.NotificationFailed)
	d.logger.Error("notification not delivered",
		zap.String("template", string(n.Template)),
		zap.String("recipient", n.Recipient),
		zap.Error(err))
}

// Stop rejects new notifications, lets the workers drain what is queued and
// closes the sender. It returns ctx.Err() if draining outlives ctx.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return d.sender.Close()
}

var _ port.NotificationQueue = (*Dispatcher)(nil)
