package cmds

import (
	"context"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"

	"github.com/go-go-golems/hookchat/pkg/relay"
)

type PingCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*PingCommand)(nil)

type PingSettings struct {
	TestMode bool `glazed:"test-mode"`
	All      bool `glazed:"all"`
}

func NewPingCommand() (*PingCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}
	sections, err := commonSections()
	if err != nil {
		return nil, err
	}
	return &PingCommand{
		CommandDescription: cmds.NewCommandDescription(
			"ping",
			cmds.WithShort("Check whether the webhook is reachable through the probe relay"),
			cmds.WithFlags(
				fields.New("test-mode", fields.TypeBool, fields.WithDefault(true), fields.WithHelp("Probe the test webhook instead of production")),
				fields.New("all", fields.TypeBool, fields.WithDefault(false), fields.WithHelp("Probe both the production and test webhooks")),
			),
			cmds.WithSections(append(sections, glazedSection)...),
		),
	}, nil
}

func (c *PingCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *values.Values, gp middlewares.Processor) error {
	s := &PingSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize settings")
	}

	rt, err := newRuntime(ctx, parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	modes := []bool{s.TestMode}
	if s.All {
		modes = []bool{false, true}
	}
	for _, testMode := range modes {
		started := time.Now()
		reachable := rt.Service.CheckReachable(ctx, testMode)
		row := types.NewRow(
			types.MRP("mode", string(relay.ModeFor(testMode))),
			types.MRP("endpoint", rt.Service.Endpoints().Resolve(testMode).String()),
			types.MRP("reachable", reachable),
			types.MRP("probe", rt.Relay.ProbeStrategy),
			types.MRP("duration_ms", time.Since(started).Milliseconds()),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
