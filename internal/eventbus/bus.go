// Package eventbus is an in-process publish/subscribe hub for workbench events.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic names a kind of event.
type Topic string

const (
	// StateChanged carries a full page snapshot after any state mutation.
	StateChanged Topic = "state_changed"
	// SubmissionCreated is published after the judge accepted a submission.
	SubmissionCreated Topic = "submission_created"
	// SubmissionJudged is published when a polled submission reaches a final verdict.
	SubmissionJudged Topic = "submission_judged"
	// NoticePosted carries a user-visible notification.
	NoticePosted Topic = "notice"
)

// Event is one published message.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Topic   Topic     `json:"topic"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// SubmissionEvent is the payload of SubmissionCreated and SubmissionJudged.
type SubmissionEvent struct {
	QuestionID   int64 `json:"questionId"`
	SubmissionID int64 `json:"submissionId"`
}

// Handler is invoked synchronously on the publisher's goroutine.
type Handler func(Event)

// DefaultBuffer is the channel capacity used when Subscribe gets a non-positive size.
const DefaultBuffer = 32

// Bus fans events out to handlers and buffered subscriptions.
type Bus struct {
	lock     sync.Mutex
	handlers map[Topic][]Handler
	subs     map[*Subscription]struct{}
	closed   bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
		subs:     make(map[*Subscription]struct{}),
	}
}

// On registers fn for topic. Handlers must not block for long. On a closed
// bus it does nothing.
func (b *Bus) On(topic Topic, fn Handler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return
	}
	b.handlers[topic] = append(b.handlers[topic], fn)
}

// Subscribe returns a buffered subscription to the given topics, or to every
// topic when none are named. When the buffer is full the oldest event is dropped.
func (b *Bus) Subscribe(buffer int, topics ...Topic) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription{
		bus: b,
		ch:  make(chan Event, buffer),
	}
	if len(topics) > 0 {
		s.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		close(s.ch)
		s.done = true
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers payload on topic and returns the event that was sent.
func (b *Bus) Publish(topic Topic, payload any) Event {
	ev := Event{
		ID:      uuid.New(),
		Topic:   topic,
		Time:    time.Now().UTC(),
		Payload: payload,
	}

	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return ev
	}
	handlers := append([]Handler(nil), b.handlers[topic]...)
	for s := range b.subs {
		if s.wants(topic) {
			s.offer(ev)
		}
	}
	b.lock.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return ev
}

// Close closes every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.closeLocked()
	}
	b.subs = nil
	b.handlers = nil
}

// Subscription is a buffered stream of events.
type Subscription struct {
	bus     *Bus
	ch      chan Event
	topics  map[Topic]struct{}
	dropped uint64
	done    bool
}

// C returns the event channel. It is closed by Close or Bus.Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Dropped returns how many events were discarded for this subscriber.
func (s *Subscription) Dropped() uint64 {
	s.bus.lock.Lock()
	defer s.bus.lock.Unlock()
	return s.dropped
}

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.bus.lock.Lock()
	defer s.bus.lock.Unlock()
	if s.done {
		return
	}
	delete(s.bus.subs, s)
	s.closeLocked()
}

func (s *Subscription) wants(t Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// offer must be called with the bus lock held.
func (s *Subscription) offer(ev Event) {
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}

func (s *Subscription) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
