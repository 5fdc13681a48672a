package relay

import (
	"strings"

	"github.com/pkg/errors"
)

// Endpoint is the URI of a remote workflow trigger.
type Endpoint string

func (e Endpoint) String() string { return string(e) }

const (
	DefaultProductionURL Endpoint = "https://n8n.ftp-co.com/webhook/d1b5485e-7b95-4d31-9438-32b6552128f6"
	DefaultTestURL       Endpoint = "https://n8n.ftp-co.com/webhook-test/d1b5485e-7b95-4d31-9438-32b6552128f6"
)

// Mode names the two webhook flavours exposed by a workflow.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

// ModeFor maps the boolean test flag used by callers to a Mode.
func ModeFor(testMode bool) Mode {
	if testMode {
		return ModeTest
	}
	return ModeProduction
}

// Endpoints holds the production and test webhook URIs. It is immutable once
// built and carries no record of previous resolutions.
type Endpoints struct {
	Production Endpoint
	Test       Endpoint
}

func DefaultEndpoints() Endpoints {
	return Endpoints{Production: DefaultProductionURL, Test: DefaultTestURL}
}

// Resolve returns the test endpoint when testMode is set, production otherwise.
func (e Endpoints) Resolve(testMode bool) Endpoint {
	if testMode {
		return e.Test
	}
	return e.Production
}

func (e Endpoints) Validate() error {
	if strings.TrimSpace(string(e.Production)) == "" {
		return errors.New("production endpoint is empty")
	}
	if strings.TrimSpace(string(e.Test)) == "" {
		return errors.New("test endpoint is empty")
	}
	return nil
}
