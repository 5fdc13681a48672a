package relay

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Service is the surface the front-ends call: resolve the endpoint for the
// requested mode, then deliver or probe.
type Service struct {
	endpoints Endpoints
	chain     *Chain
	prober    *Prober
}

func NewService(endpoints Endpoints, chain *Chain, prober *Prober) (*Service, error) {
	if err := endpoints.Validate(); err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, errors.New("relay chain is nil")
	}
	if prober == nil {
		return nil, errors.New("prober is nil")
	}
	return &Service{endpoints: endpoints, chain: chain, prober: prober}, nil
}

func (s *Service) Endpoints() Endpoints { return s.endpoints }

// SendMessage delivers text to the endpoint selected by testMode. Surrounding
// whitespace is trimmed and an empty message is rejected before any network
// call.
func (s *Service) SendMessage(ctx context.Context, text string, testMode bool) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("message is empty")
	}
	return s.chain.Deliver(ctx, text, s.endpoints.Resolve(testMode))
}

func (s *Service) CheckReachable(ctx context.Context, testMode bool) bool {
	return s.prober.Probe(ctx, s.endpoints.Resolve(testMode))
}
