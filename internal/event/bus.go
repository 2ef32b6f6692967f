package event

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/logging"
)

// Event is a published notification.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler receives events. A returned error is reported to the publisher
// and does not stop delivery to other handlers.
type Handler func(ev Event) error

// Priority orders handlers on the same topic. Lower values run first.
type Priority int

// Common priorities.
const (
	PriorityHigh   Priority = -100
	PriorityNormal Priority = 0
	PriorityLow    Priority = 100
)

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// WithPriority sets the handler priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) {
		s.priority = p
	}
}

// Once cancels the subscription after its first delivery.
func Once() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// Subscription is a registered handler.
type Subscription struct {
	id       string
	pattern  Topic
	handler  Handler
	priority Priority
	once     bool
	seq      uint64
	bus      *Bus
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Topic returns the subscribed pattern.
func (s *Subscription) Topic() Topic {
	return s.pattern
}

// Cancel removes the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	_ = s.bus.Unsubscribe(s)
}

// Bus delivers events synchronously to matching subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
	seq  uint64
	log  *logging.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger routes handler failures to log.
func WithLogger(log *logging.Logger) BusOption {
	return func(b *Bus) {
		b.log = log
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{log: logging.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	b.log = logging.OrNop(b.log).WithComponent("event")
	return b
}

// Subscribe registers handler for topics matching pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if !pattern.IsValid() {
		return nil, fmt.Errorf("subscribe %q: %w", pattern, ErrInvalidTopic)
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
		bus:     b,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	b.seq++
	sub.seq = b.seq
	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].priority != b.subs[j].priority {
			return b.subs[i].priority < b.subs[j].priority
		}
		return b.subs[i].seq < b.subs[j].seq
	})
	b.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes sub.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers payload on topic to every matching subscriber. Handlers
// subscribed or cancelled during delivery take effect for the next
// publish, except that a cancelled handler is not called afterwards.
// Handler errors and panics are joined into the returned error.
func (b *Bus) Publish(topic Topic, payload any) error {
	if !topic.IsValid() || topic.IsWildcard() {
		return fmt.Errorf("publish %q: %w", topic, ErrInvalidTopic)
	}

	b.mu.Lock()
	var targets []*Subscription
	for _, s := range b.subs {
		if topic.Matches(s.pattern) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	ev := Event{Topic: topic, Payload: payload}
	var errs []error
	for _, s := range targets {
		if !b.live(s) {
			continue
		}
		if s.once {
			_ = b.Unsubscribe(s)
		}
		if err := b.deliver(s, ev); err != nil {
			b.log.Warn("handler failed", "topic", topic, "subscription", s.id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) live(s *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, other := range b.subs {
		if other == s {
			return true
		}
	}
	return false
}

func (b *Bus) deliver(s *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				SubscriptionID: s.id,
				Topic:          ev.Topic,
				Value:          r,
				Stack:          string(debug.Stack()),
			}
		}
	}()
	if herr := s.handler(ev); herr != nil {
		return &HandlerError{SubscriptionID: s.id, Topic: ev.Topic, Err: herr}
	}
	return nil
}
