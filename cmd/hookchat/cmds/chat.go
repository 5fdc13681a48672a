package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/ui"
)

type ChatCommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*ChatCommand)(nil)

type ChatSettings struct {
	TestMode bool `glazed:"test-mode"`
	Plain    bool `glazed:"plain"`
}

func NewChatCommand() (*ChatCommand, error) {
	sections, err := commonSections()
	if err != nil {
		return nil, err
	}
	return &ChatCommand{
		CommandDescription: cmds.NewCommandDescription(
			"chat",
			cmds.WithShort("Interactive chat with the workflow webhook"),
			cmds.WithFlags(
				fields.New("test-mode", fields.TypeBool, fields.WithDefault(true), fields.WithHelp("Start in test mode (tab toggles)")),
				fields.New("plain", fields.TypeBool, fields.WithDefault(false), fields.WithHelp("Show replies without markdown rendering")),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *ChatCommand) Run(ctx context.Context, parsed *values.Values) error {
	s := &ChatSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize settings")
	}

	rt, err := newRuntime(ctx, parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := make(chan attempts.Event, 16)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return attempts.Consume(ctx, rt.PubSub.Subscriber, rt.Redis.Topic, func(e attempts.Event) {
			select {
			case feed <- e:
			default:
				log.Debug().Str("strategy", e.Strategy).Msg("attempt feed full, dropping event")
			}
		})
	})
	eg.Go(func() error {
		defer cancel()
		opts := []ui.Option{ui.WithTestMode(s.TestMode), ui.WithAttemptFeed(feed)}
		if s.Plain {
			opts = append(opts, ui.WithPlainReplies())
		}
		return ui.Run(ctx, rt.Service, opts...)
	})
	return eg.Wait()
}
