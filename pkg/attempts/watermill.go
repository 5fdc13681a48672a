package attempts

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultTopic is the watermill topic attempt events are published on.
const DefaultTopic = "hookchat.attempts"

const (
	defaultSinkBuffer       = 256
	defaultSinkCloseTimeout = 5 * time.Second
)

// WatermillSink publishes attempt events as JSON messages. Observe only
// queues the event; a single worker publishes in order, so a slow or
// unreachable broker never holds up a delivery. Events are dropped when the
// queue is full.
type WatermillSink struct {
	publisher    message.Publisher
	topic        string
	logger       zerolog.Logger
	closeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

var _ Observer = (*WatermillSink)(nil)

type SinkOption func(*WatermillSink)

// WithSinkBuffer sets how many events may wait for the publisher.
func WithSinkBuffer(n int) SinkOption {
	return func(s *WatermillSink) {
		if n > 0 {
			s.queue = make(chan Event, n)
		}
	}
}

// WithSinkCloseTimeout bounds how long Close waits for queued events.
func WithSinkCloseTimeout(d time.Duration) SinkOption {
	return func(s *WatermillSink) {
		if d > 0 {
			s.closeTimeout = d
		}
	}
}

func NewWatermillSink(publisher message.Publisher, topic string, logger zerolog.Logger, opts ...SinkOption) *WatermillSink {
	if topic == "" {
		topic = DefaultTopic
	}
	s := &WatermillSink{
		publisher:    publisher,
		topic:        topic,
		logger:       logger,
		closeTimeout: defaultSinkCloseTimeout,
		queue:        make(chan Event, defaultSinkBuffer),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	go s.run()
	return s
}

func (s *WatermillSink) Observe(_ context.Context, e Event) {
	if s == nil || s.publisher == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- e:
	default:
		s.logger.Warn().Str("topic", s.topic).Str("strategy", e.Strategy).Msg("attempt event queue full, dropping event")
	}
}

func (s *WatermillSink) run() {
	defer close(s.done)
	for e := range s.queue {
		s.publish(e)
	}
}

func (s *WatermillSink) publish(e Event) {
	payload, err := e.Marshal()
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not marshal attempt event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("delivery_id", e.DeliveryID.String())
	msg.Metadata.Set("strategy", e.Strategy)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Warn().Err(err).Str("topic", s.topic).Msg("could not publish attempt event")
	}
}

// Close stops accepting events and waits, up to the close timeout, for the
// queued ones to be published. It does not close the publisher.
func (s *WatermillSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-time.After(s.closeTimeout):
		return errors.Errorf("attempt events still queued after %s", s.closeTimeout)
	}
}

// Consume subscribes to topic and hands every decoded event to handle until
// ctx is done or the subscription closes. Undecodable messages are acked and
// skipped.
func Consume(ctx context.Context, sub message.Subscriber, topic string, handle func(Event)) error {
	if sub == nil {
		return errors.New("subscriber is nil")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	ch, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", topic)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			e, err := Unmarshal(msg.Payload)
			msg.Ack()
			if err != nil {
				continue
			}
			handle(e)
		}
	}
}

// LogHandler returns a Consume callback that writes each event to logger.
func LogHandler(logger zerolog.Logger) func(Event) {
	return func(e Event) {
		ev := logger.Debug()
		if e.Outcome != OutcomeSuccess {
			ev = logger.Info()
		}
		ev.Str("delivery_id", e.DeliveryID.String()).
			Int("attempt", e.Attempt).
			Str("strategy", e.Strategy).
			Str("method", e.Method).
			Str("outcome", string(e.Outcome)).
			Int("status", e.StatusCode).
			Str("error", e.Error).
			Dur("duration", e.Duration()).
			Msg("relay attempt")
	}
}
