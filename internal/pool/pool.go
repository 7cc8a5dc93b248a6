package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when no queue slot is free.
var ErrQueueFull = errors.New("action queue is full")

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("action pool is stopped")

// Action is one unit of work, typically a run or submit for a session.
type Action struct {
	Name      string
	SessionID string
	Do        func(ctx context.Context) error
}

// ActionPool manages a fixed-size pool of goroutines that execute actions
// off the request goroutine.
type ActionPool struct {
	size    int
	actions chan Action
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewActionPool creates a pool of size workers with a queue of queueSize.
func NewActionPool(size, queueSize int, logger *zap.Logger) *ActionPool {
	if size < 1 {
		size = 1
	}
	if queueSize < size {
		queueSize = size
	}
	return &ActionPool{
		size:    size,
		actions: make(chan Action, queueSize),
		logger:  logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *ActionPool) Start(ctx context.Context) {
	p.logger.Info("Starting action pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Enqueue schedules a without blocking.
func (p *ActionPool) Enqueue(a Action) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.actions <- a:
		metrics.ActionsQueued.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for workers to drain it and exit.
func (p *ActionPool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.actions)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Action pool stopped")
}

func (p *ActionPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case a, ok := <-p.actions:
			if !ok {
				p.logger.Debug("Action queue closed", zap.Int("worker_id", id))
				return
			}
			metrics.ActionsQueued.Dec()
			p.execute(ctx, id, a)
		}
	}
}

// execute runs one action, recovering panics so the worker survives.
func (p *ActionPool) execute(ctx context.Context, id int, a Action) {
	metrics.ActionsInFlight.Inc()
	start := time.Now()
	defer func() {
		metrics.ActionsInFlight.Dec()
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.String("action", a.Name),
				zap.String("session_id", a.SessionID),
				zap.Any("panic", r),
			)
		}
	}()

	err := a.Do(ctx)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Info("Action finished with error",
			zap.Int("worker_id", id),
			zap.String("action", a.Name),
			zap.String("session_id", a.SessionID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Action finished",
		zap.Int("worker_id", id),
		zap.String("action", a.Name),
		zap.String("session_id", a.SessionID),
		zap.Duration("elapsed", elapsed),
	)
}
