// Package amqp is a request/reply judge transport over RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqplib "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

const (
	methodRun    = "judge.run"
	methodSubmit = "judge.submit"

	// Reconnection settings
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second

	defaultCallTimeout = 10 * time.Second
)

var _ repository.JudgeService = (*Judge)(nil)

// Judge sends run and submit calls to the judge's RPC queue and waits for the
// reply on a private, server-named queue.
type Judge struct {
	url     string
	queue   string
	timeout time.Duration
	logger  *zap.Logger
	pending *pendingCalls

	mu         sync.RWMutex
	conn       *amqplib.Connection
	channel    *amqplib.Channel
	replyQueue string
	closed     bool
}

// NewJudge connects to RabbitMQ and starts the reply listener.
func NewJudge(url, queue string, timeout time.Duration, logger *zap.Logger) (*Judge, error) {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	j := &Judge{
		url:     url,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
		pending: newPendingCalls(),
	}

	if err := j.connect(); err != nil {
		return nil, err
	}

	// Watch for connection closures and reconnect
	go j.watchConnection()

	return j, nil
}

func (j *Judge) connect() error {
	conn, err := amqplib.Dial(j.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}

	if _, err := ch.QueueDeclare(j.queue, true, false, false, false, amqplib.Table{
		"x-queue-type": "quorum",
	}); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: declare rpc queue: %w", err)
	}

	// Exclusive, auto-deleted reply queue named by the broker.
	rq, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: declare reply queue: %w", err)
	}

	deliveries, err := ch.Consume(rq.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq: consume replies: %w", err)
	}

	j.mu.Lock()
	j.conn = conn
	j.channel = ch
	j.replyQueue = rq.Name
	j.mu.Unlock()

	go j.dispatchReplies(deliveries)

	j.logger.Info("RabbitMQ judge transport initialized",
		zap.String("rpc_queue", j.queue),
		zap.String("reply_queue", rq.Name),
	)
	return nil
}

func (j *Judge) dispatchReplies(deliveries <-chan amqplib.Delivery) {
	for d := range deliveries {
		if !j.pending.resolve(d.CorrelationId, d.Body) {
			j.logger.Debug("Dropping reply without a waiting caller",
				zap.String("correlation_id", d.CorrelationId),
			)
		}
	}
}

// watchConnection monitors the connection and reconnects on failure.
func (j *Judge) watchConnection() {
	for {
		j.mu.RLock()
		if j.closed {
			j.mu.RUnlock()
			return
		}
		conn := j.conn
		j.mu.RUnlock()

		if conn == nil {
			time.Sleep(reconnectDelay)
			continue
		}

		// Block until the connection closes
		reason, ok := <-conn.NotifyClose(make(chan *amqplib.Error, 1))
		if !ok {
			return
		}

		failed := j.pending.failAll(domain.ErrJudgeUnavailable)
		j.mu.Lock()
		j.channel = nil
		j.replyQueue = ""
		j.mu.Unlock()

		j.logger.Warn("RabbitMQ connection lost, reconnecting...",
			zap.String("reason", reason.Error()),
			zap.Int("failed_calls", failed),
		)

		delay := reconnectDelay
		for {
			j.mu.RLock()
			if j.closed {
				j.mu.RUnlock()
				return
			}
			j.mu.RUnlock()

			time.Sleep(delay)

			if err := j.connect(); err != nil {
				j.logger.Warn("RabbitMQ reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				delay = delay * 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}

			j.logger.Info("RabbitMQ reconnected successfully")
			break
		}
	}
}

func (j *Judge) Run(ctx context.Context, req *domain.RunRequest) (*domain.RunResult, error) {
	var out struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	}
	if err := j.call(ctx, "run", methodRun, req, &out); err != nil {
		return nil, err
	}
	return &domain.RunResult{Input: out.Input, Output: out.Output}, nil
}

func (j *Judge) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error) {
	var out domain.SubmissionHandle
	if err := j.call(ctx, "submit", methodSubmit, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (j *Judge) call(ctx context.Context, op, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", op, err)
	}

	j.mu.RLock()
	ch := j.channel
	replyTo := j.replyQueue
	j.mu.RUnlock()

	if ch == nil {
		return &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: channel not available (reconnecting)", domain.ErrJudgeUnavailable)}
	}

	corrID := uuid.NewString()
	replies := j.pending.add(corrID)
	defer j.pending.remove(corrID)

	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	err = ch.PublishWithContext(callCtx,
		"",      // default exchange
		j.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqplib.Publishing{
			ContentType:   "application/json",
			CorrelationId: corrID,
			ReplyTo:       replyTo,
			Type:          method,
			MessageId:     corrID,
			Timestamp:     time.Now(),
			Expiration:    fmt.Sprintf("%d", j.timeout.Milliseconds()),
			Body:          body,
		},
	)
	if err != nil {
		return &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: publish: %v", domain.ErrJudgeUnavailable, err)}
	}

	j.logger.Debug("Published judge call",
		zap.String("method", method),
		zap.String("correlation_id", corrID),
		zap.Int("body_size", len(body)),
	)

	select {
	case r := <-replies:
		if r.err != nil {
			return &domain.RemoteError{Op: op, Err: r.err}
		}
		return decodeReply(op, r.body, out)
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: reply timeout after %s", domain.ErrJudgeUnavailable, j.timeout)}
	}
}

// Close stops reconnecting and closes the connection.
func (j *Judge) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.closed = true
	j.pending.failAll(domain.ErrJudgeUnavailable)

	if j.channel != nil {
		j.channel.Close()
	}
	if j.conn != nil {
		return j.conn.Close()
	}
	return nil
}

// Ping reports whether the broker connection is currently open.
func (j *Judge) Ping(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.conn == nil || j.conn.IsClosed() {
		return fmt.Errorf("amqp: %w: connection closed", domain.ErrJudgeUnavailable)
	}
	return nil
}
