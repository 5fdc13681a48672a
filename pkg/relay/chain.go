package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/relay/normalize"
)

const (
	DefaultAttemptTimeout = 15 * time.Second
	// StrategyDirect names the unmediated first attempt in logs and events.
	StrategyDirect = "direct"
	// GetMessageParam carries the message on GET relays, which send no body.
	GetMessageParam = "chatInput"

	maxResponseBytes = 4 << 20
)

// Chain delivers a payload to an endpoint, first directly and then through
// each relay strategy in order, stopping at the first success. Attempts are
// strictly sequential.
type Chain struct {
	client     *http.Client
	strategies []Strategy
	timeout    time.Duration
	logger     zerolog.Logger
	observer   attempts.Observer
	now        func() time.Time
}

type ChainOption func(*Chain)

func WithHTTPClient(client *http.Client) ChainOption {
	return func(c *Chain) {
		if client != nil {
			c.client = client
		}
	}
}

func WithStrategies(strategies []Strategy) ChainOption {
	return func(c *Chain) {
		c.strategies = append([]Strategy(nil), strategies...)
	}
}

func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) ChainOption {
	return func(c *Chain) { c.logger = logger }
}

func WithObserver(o attempts.Observer) ChainOption {
	return func(c *Chain) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithClock(now func() time.Time) ChainOption {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{
		client:     &http.Client{},
		strategies: DefaultStrategies(),
		timeout:    DefaultAttemptTimeout,
		logger:     log.Logger,
		observer:   attempts.Nop,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Strategies returns a copy of the relay list in priority order.
func (c *Chain) Strategies() []Strategy {
	return append([]Strategy(nil), c.strategies...)
}

// attempt is one network call, direct or relayed. eventURL is the target
// without the message parameter GET relays add; it is the only URL that
// reaches events, errors and logs.
type attempt struct {
	strategy string
	method   string
	url      string
	eventURL string
	body     []byte
}

// Deliver sends message to endpoint and returns the normalized reply. When
// the direct call and every relay fail it returns ErrAllStrategiesFailed. If
// ctx is cancelled no further attempts are made and the context error is
// returned instead.
func (c *Chain) Deliver(ctx context.Context, message string, endpoint Endpoint) (string, error) {
	payload := NewOutboundPayload(message, c.now())
	body, err := payload.Encode()
	if err != nil {
		return "", errors.Wrap(err, "encode payload")
	}

	deliveryID := uuid.New()
	logger := c.logger.With().
		Str("component", "relay").
		Str("delivery_id", deliveryID.String()).
		Logger()

	plan := make([]attempt, 0, len(c.strategies)+1)
	plan = append(plan, attempt{
		strategy: StrategyDirect,
		method:   http.MethodPost,
		url:      string(endpoint),
		eventURL: string(endpoint),
		body:     body,
	})
	for _, s := range c.strategies {
		plan = append(plan, strategyAttempt(s, endpoint, message, body))
	}

	for i, a := range plan {
		if err := ctx.Err(); err != nil {
			logger.Debug().Err(err).Int("attempt", i).Msg("delivery abandoned by caller")
			return "", errors.Wrap(err, "delivery cancelled")
		}
		raw, err := c.do(ctx, deliveryID, i, a)
		if err == nil {
			logger.Debug().Str("strategy", a.strategy).Int("attempt", i).Msg("delivery succeeded")
			return normalize.Normalize(raw), nil
		}
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "delivery cancelled")
		}
		logger.Warn().Err(err).Str("strategy", a.strategy).Str("method", a.method).Int("attempt", i).Msg("delivery attempt failed")
	}

	logger.Error().Int("attempts", len(plan)).Msg("all delivery strategies failed")
	return "", ErrAllStrategiesFailed
}

func strategyAttempt(s Strategy, endpoint Endpoint, message string, body []byte) attempt {
	u := s.Rewrite(endpoint)
	a := attempt{strategy: s.Name, method: s.Method, url: u, eventURL: u}
	if s.Method == http.MethodGet {
		a.url = appendQueryParam(u, GetMessageParam, message)
		return a
	}
	a.body = body
	return a
}

// do performs a single bounded attempt and returns the decoded body on a
// 2xx response.
func (c *Chain) do(ctx context.Context, deliveryID uuid.UUID, index int, a attempt) (any, error) {
	ev := attempts.Event{
		ID:         uuid.New(),
		DeliveryID: deliveryID,
		Attempt:    index,
		Strategy:   a.strategy,
		Method:     a.method,
		URL:        a.eventURL,
		StartedAt:  c.now(),
	}
	raw, status, err := c.roundTrip(ctx, a)
	ev.FinishedAt = c.now()
	ev.StatusCode = status
	switch {
	case err == nil:
		ev.Outcome = attempts.OutcomeSuccess
	case ctx.Err() != nil:
		ev.Outcome = attempts.OutcomeCancelled
		ev.Error = err.Error()
	default:
		var se *StatusError
		if errors.As(err, &se) {
			ev.Outcome = attempts.OutcomeStatus
		} else {
			ev.Outcome = attempts.OutcomeTransport
		}
		ev.Error = err.Error()
	}
	c.observer.Observe(ctx, ev)
	return raw, err
}

func (c *Chain) roundTrip(ctx context.Context, a attempt) (any, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if a.body != nil {
		body = bytes.NewReader(a.body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, a.method, a.url, body)
	if err != nil {
		return nil, 0, &TransportError{Strategy: a.strategy, Err: redactURL(err, a.eventURL)}
	}
	if a.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Strategy: a.strategy, Err: redactURL(err, a.eventURL)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, resp.StatusCode, &StatusError{Strategy: a.strategy, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Strategy: a.strategy, Err: errors.Wrap(err, "read body")}
	}
	return normalize.Decode(data), resp.StatusCode, nil
}

func appendQueryParam(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
		if strings.HasSuffix(u, "?") || strings.HasSuffix(u, "&") {
			sep = ""
		}
	}
	return u + sep + key + "=" + url.QueryEscape(value)
}

// redactURL replaces the URL carried by a *url.Error with safe so the
// message text of a GET relay never shows up in error strings.
func redactURL(err error, safe string) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: safe, Err: ue.Err}
}
