package cmds

import (
	"context"
	"net/http"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/redisstream"
	"github.com/go-go-golems/hookchat/pkg/relay"
	"github.com/go-go-golems/hookchat/pkg/workflows"
)

// GetMiddlewares resolves values from flags, arguments, HOOKCHAT_* env vars
// and defaults, in that order of precedence.
func GetMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv("HOOKCHAT",
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}

// commonSections are shared by every command that talks to the webhook.
func commonSections() ([]schema.Section, error) {
	relaySection, err := relay.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build relay section")
	}
	redisSection, err := redisstream.NewParameterLayer()
	if err != nil {
		return nil, errors.Wrap(err, "build redis section")
	}
	n8nSection, err := workflows.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "build n8n section")
	}
	return []schema.Section{relaySection, redisSection, n8nSection}, nil
}

// runtime holds what a command needs once its values are parsed.
type runtime struct {
	Relay     relay.Settings
	Redis     redisstream.Settings
	N8N       workflows.Settings
	PubSub    *redisstream.PubSub
	Sink      *attempts.WatermillSink
	Service   *relay.Service
	Workflows *workflows.Client
}

func newRuntime(ctx context.Context, parsed *values.Values) (*runtime, error) {
	relaySettings, err := relay.SettingsFromValues(parsed)
	if err != nil {
		return nil, err
	}
	redisSettings, err := redisstream.SettingsFromValues(parsed)
	if err != nil {
		return nil, err
	}
	n8nSettings, err := workflows.SettingsFromValues(parsed)
	if err != nil {
		return nil, err
	}
	if n8nSettings.APIKey == "" {
		n8nSettings.APIKey = viper.GetString("n8n-api-key")
	}

	if redisSettings.Enabled {
		if err := redisstream.EnsureGroupAtTail(ctx, redisSettings.Addr, redisSettings.Topic, redisSettings.Group); err != nil {
			return nil, errors.Wrap(err, "ensure redis consumer group")
		}
	}
	ps, err := redisstream.BuildPubSub(redisSettings, log.Logger)
	if err != nil {
		return nil, err
	}

	sink := attempts.NewWatermillSink(ps.Publisher, redisSettings.Topic, log.Logger)
	client := &http.Client{}
	svc, err := relay.BuildService(relaySettings, relay.BuildOptions{
		Client:   client,
		Logger:   log.With().Str("component", "relay").Logger(),
		Observer: sink,
	})
	if err != nil {
		_ = sink.Close()
		_ = ps.Close()
		return nil, errors.Wrap(err, "build relay service")
	}

	return &runtime{
		Relay:     relaySettings,
		Redis:     redisSettings,
		N8N:       n8nSettings,
		PubSub:    ps,
		Sink:      sink,
		Service:   svc,
		Workflows: n8nSettings.NewClient(workflows.WithLogger(log.Logger)),
	}, nil
}

// Close flushes queued attempt events before closing the pub/sub.
func (r *runtime) Close() error {
	sinkErr := r.Sink.Close()
	if err := r.PubSub.Close(); err != nil {
		return err
	}
	return sinkErr
}
