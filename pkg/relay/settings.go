package relay

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/hookchat/pkg/attempts"
)

const SectionSlug = "relay"

// Settings holds the webhook endpoints and relay behaviour.
type Settings struct {
	ProductionURL  string `glazed:"production-url"`
	TestURL        string `glazed:"test-url"`
	AttemptTimeout int    `glazed:"attempt-timeout"`
	ProbeTimeout   int    `glazed:"probe-timeout"`
	StrategiesFile string `glazed:"strategies-file"`
	ProbeStrategy  string `glazed:"probe-strategy"`
}

func DefaultSettings() Settings {
	return Settings{
		ProductionURL:  string(DefaultProductionURL),
		TestURL:        string(DefaultTestURL),
		AttemptTimeout: int(DefaultAttemptTimeout / time.Second),
		ProbeTimeout:   int(DefaultProbeTimeout / time.Second),
		ProbeStrategy:  StrategyAllOrigins,
	}
}

// NewSection returns the glazed section definition for relay settings.
func NewSection() (schema.Section, error) {
	d := DefaultSettings()
	return schema.NewSection(
		SectionSlug,
		"Webhook endpoints and CORS relay fallback",
		schema.WithFields(
			fields.New("production-url", fields.TypeString, fields.WithDefault(d.ProductionURL), fields.WithHelp("Production webhook URL")),
			fields.New("test-url", fields.TypeString, fields.WithDefault(d.TestURL), fields.WithHelp("Test webhook URL")),
			fields.New("attempt-timeout", fields.TypeInteger, fields.WithDefault(d.AttemptTimeout), fields.WithHelp("Timeout in seconds for each delivery attempt")),
			fields.New("probe-timeout", fields.TypeInteger, fields.WithDefault(d.ProbeTimeout), fields.WithHelp("Timeout in seconds for the reachability probe")),
			fields.New("strategies-file", fields.TypeString, fields.WithDefault(""), fields.WithHelp("YAML file overriding the relay strategy list")),
			fields.New("probe-strategy", fields.TypeString, fields.WithDefault(d.ProbeStrategy), fields.WithHelp("Relay used by the reachability probe")),
		),
	)
}

// SettingsFromValues decodes the relay section, falling back to defaults for
// anything left unset.
func SettingsFromValues(parsed *values.Values) (Settings, error) {
	s := DefaultSettings()
	if parsed == nil {
		return s, nil
	}
	if err := parsed.DecodeSectionInto(SectionSlug, &s); err != nil {
		return s, errors.Wrap(err, "decode relay settings")
	}
	d := DefaultSettings()
	if strings.TrimSpace(s.ProductionURL) == "" {
		s.ProductionURL = d.ProductionURL
	}
	if strings.TrimSpace(s.TestURL) == "" {
		s.TestURL = d.TestURL
	}
	if strings.TrimSpace(s.ProbeStrategy) == "" {
		s.ProbeStrategy = d.ProbeStrategy
	}
	return s, nil
}

func (s Settings) Endpoints() Endpoints {
	return Endpoints{Production: Endpoint(s.ProductionURL), Test: Endpoint(s.TestURL)}
}

func (s Settings) Strategies() ([]Strategy, error) {
	if strings.TrimSpace(s.StrategiesFile) == "" {
		return DefaultStrategies(), nil
	}
	return LoadStrategiesFile(s.StrategiesFile)
}

// BuildOptions are the runtime collaborators shared by chain and prober.
type BuildOptions struct {
	Client   *http.Client
	Logger   zerolog.Logger
	Observer attempts.Observer
}

// BuildService wires a Service from settings.
func BuildService(s Settings, opts BuildOptions) (*Service, error) {
	strategies, err := s.Strategies()
	if err != nil {
		return nil, err
	}
	probeRelay, ok := FindStrategy(strategies, s.ProbeStrategy)
	if !ok {
		probeRelay, ok = FindStrategy(DefaultStrategies(), s.ProbeStrategy)
	}
	if !ok {
		return nil, errors.Errorf("unknown probe strategy %q", s.ProbeStrategy)
	}

	chain := NewChain(
		WithHTTPClient(opts.Client),
		WithStrategies(strategies),
		WithAttemptTimeout(time.Duration(s.AttemptTimeout)*time.Second),
		WithLogger(opts.Logger),
		WithObserver(opts.Observer),
	)
	prober := NewProber(probeRelay,
		WithProbeHTTPClient(opts.Client),
		WithProbeTimeout(time.Duration(s.ProbeTimeout)*time.Second),
		WithProbeLogger(opts.Logger),
		WithProbeObserver(opts.Observer),
	)
	return NewService(s.Endpoints(), chain, prober)
}
