package relay

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy is one relay in the fallback list. Rewrite maps the target
// endpoint to the relay URL, Method is either GET or POST.
type Strategy struct {
	Name    string
	Rewrite func(Endpoint) string
	Method  string
}

// NewPrefixStrategy builds a strategy that appends the query-escaped target
// to prefix, which is how every public CORS relay we use is addressed.
func NewPrefixStrategy(name, prefix, method string) (Strategy, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != http.MethodGet && method != http.MethodPost {
		return Strategy{}, errors.Errorf("strategy %q: unsupported method %q", name, method)
	}
	if strings.TrimSpace(prefix) == "" {
		return Strategy{}, errors.Errorf("strategy %q: empty prefix", name)
	}
	return Strategy{
		Name:   name,
		Method: method,
		Rewrite: func(target Endpoint) string {
			return prefix + url.QueryEscape(string(target))
		},
	}, nil
}

func mustPrefixStrategy(name, prefix, method string) Strategy {
	s, err := NewPrefixStrategy(name, prefix, method)
	if err != nil {
		panic(err)
	}
	return s
}

const (
	StrategyCorsProxy  = "corsproxy"
	StrategyAllOrigins = "allorigins"
	StrategyCodetabs   = "codetabs"
)

// DefaultStrategies returns the relay list in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		mustPrefixStrategy(StrategyCorsProxy, "https://corsproxy.io/?", http.MethodPost),
		mustPrefixStrategy(StrategyAllOrigins, "https://api.allorigins.win/get?url=", http.MethodGet),
		mustPrefixStrategy(StrategyCodetabs, "https://api.codetabs.com/v1/proxy?quest=", http.MethodPost),
	}
}

// FindStrategy looks a strategy up by name.
func FindStrategy(strategies []Strategy, name string) (Strategy, bool) {
	for _, s := range strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

type strategyFileEntry struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
	Method string `yaml:"method"`
}

type strategyFile struct {
	Strategies []strategyFileEntry `yaml:"strategies"`
}

// ParseStrategies reads a YAML relay list. Entry order is kept as priority.
func ParseStrategies(data []byte) ([]Strategy, error) {
	var f strategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse strategies")
	}
	if len(f.Strategies) == 0 {
		return nil, errors.New("strategies file lists no strategies")
	}
	seen := map[string]struct{}{}
	out := make([]Strategy, 0, len(f.Strategies))
	for i, e := range f.Strategies {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.Errorf("strategy #%d has no name", i)
		}
		if _, ok := seen[name]; ok {
			return nil, errors.Errorf("duplicate strategy %q", name)
		}
		seen[name] = struct{}{}
		s, err := NewPrefixStrategy(name, e.Prefix, e.Method)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func LoadStrategiesFile(path string) ([]Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read strategies file %s", path)
	}
	return ParseStrategies(data)
}
