package cmds

import (
	"context"
	"io/fs"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/webchat"
)

type ServeCommand struct {
	*cmds.CommandDescription
	staticFS fs.FS
}

var _ cmds.BareCommand = (*ServeCommand)(nil)

type ServeSettings struct {
	Addr string `glazed:"addr"`
}

// NewServeCommand builds the web front-end command. staticFS must contain
// static/index.html.
func NewServeCommand(staticFS fs.FS) (*ServeCommand, error) {
	sections, err := commonSections()
	if err != nil {
		return nil, err
	}
	return &ServeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"serve",
			cmds.WithShort("Serve the browser chat UI and its JSON/websocket API"),
			cmds.WithFlags(
				fields.New("addr", fields.TypeString, fields.WithDefault(":8080"), fields.WithHelp("Address to listen on")),
			),
			cmds.WithSections(sections...),
		),
		staticFS: staticFS,
	}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsed *values.Values) error {
	s := &ServeSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize settings")
	}

	rt, err := newRuntime(ctx, parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	logger := log.With().Str("component", "webchat").Logger()
	router := webchat.NewRouter(ctx, rt.Service,
		webchat.WithStaticFS(c.staticFS),
		webchat.WithWorkflowLister(rt.Workflows, rt.N8N.Limit),
		webchat.WithLogger(logger),
	)

	srv, err := webchat.NewServer(s.Addr, router)
	if err != nil {
		return err
	}
	srv.AddBackground(func(ctx context.Context) error {
		return attempts.Consume(ctx, rt.PubSub.Subscriber, rt.Redis.Topic, attempts.LogHandler(log.With().Str("component", "attempts").Logger()))
	})

	logger.Info().
		Str("production", rt.Relay.ProductionURL).
		Str("test", rt.Relay.TestURL).
		Bool("redis", rt.Redis.Enabled).
		Msg("relay configured")
	return srv.Run(ctx)
}
