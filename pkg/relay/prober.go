package relay

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/hookchat/pkg/attempts"
)

const DefaultProbeTimeout = 8 * time.Second

// Prober answers whether an endpoint looks reachable. It goes through a
// single fixed relay rather than the full chain, so its answer can disagree
// with what Deliver would manage.
type Prober struct {
	client   *http.Client
	relay    Strategy
	timeout  time.Duration
	logger   zerolog.Logger
	observer attempts.Observer
}

type ProberOption func(*Prober)

func WithProbeHTTPClient(client *http.Client) ProberOption {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithProbeLogger(logger zerolog.Logger) ProberOption {
	return func(p *Prober) { p.logger = logger }
}

func WithProbeObserver(o attempts.Observer) ProberOption {
	return func(p *Prober) {
		if o != nil {
			p.observer = o
		}
	}
}

func NewProber(relay Strategy, opts ...ProberOption) *Prober {
	p := &Prober{
		client:   &http.Client{},
		relay:    relay,
		timeout:  DefaultProbeTimeout,
		logger:   log.Logger,
		observer: attempts.Nop,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe issues a GET for endpoint through the probe relay. Any error,
// timeout or non-2xx status yields false.
func (p *Prober) Probe(ctx context.Context, endpoint Endpoint) bool {
	target := p.relay.Rewrite(endpoint)
	ev := attempts.Event{
		ID:         uuid.New(),
		DeliveryID: uuid.New(),
		Strategy:   "probe:" + p.relay.Name,
		Method:     http.MethodGet,
		URL:        target,
		StartedAt:  time.Now(),
	}
	defer func() {
		ev.FinishedAt = time.Now()
		p.observer.Observe(ctx, ev)
	}()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		ev.Outcome, ev.Error = attempts.OutcomeTransport, err.Error()
		p.logger.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("probe request could not be built")
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		ev.Outcome, ev.Error = attempts.OutcomeTransport, err.Error()
		p.logger.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("probe failed")
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	ev.StatusCode = resp.StatusCode
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if ok {
		ev.Outcome = attempts.OutcomeSuccess
	} else {
		ev.Outcome = attempts.OutcomeStatus
	}
	p.logger.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint.String()).Bool("reachable", ok).Msg("probe finished")
	return ok
}
