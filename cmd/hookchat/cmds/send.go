package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/go-go-golems/hookchat/pkg/relay"
)

type SendCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*SendCommand)(nil)

type SendSettings struct {
	Message  string `glazed:"message"`
	TestMode bool   `glazed:"test-mode"`
	Plain    bool   `glazed:"plain"`
}

func NewSendCommand() (*SendCommand, error) {
	sections, err := commonSections()
	if err != nil {
		return nil, err
	}
	return &SendCommand{
		CommandDescription: cmds.NewCommandDescription(
			"send",
			cmds.WithShort("Send one message to the workflow webhook and print the reply"),
			cmds.WithLong(`Send a message to the production or test webhook. When the direct call
fails, the message is retried through each configured CORS relay in order.`),
			cmds.WithArguments(
				fields.New("message", fields.TypeString, fields.WithHelp("Message to send"), fields.WithRequired(true)),
			),
			cmds.WithFlags(
				fields.New("test-mode", fields.TypeBool, fields.WithDefault(true), fields.WithHelp("Use the test webhook instead of production")),
				fields.New("plain", fields.TypeBool, fields.WithDefault(false), fields.WithHelp("Print the raw reply without markdown rendering")),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *SendCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s := &SendSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize settings")
	}

	rt, err := newRuntime(ctx, parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	reply, err := rt.Service.SendMessage(ctx, s.Message, s.TestMode)
	if err != nil {
		if errors.Is(err, relay.ErrAllStrategiesFailed) {
			return errors.Wrapf(err, "could not reach %s webhook directly or through any relay", relay.ModeFor(s.TestMode))
		}
		return err
	}

	if s.Plain || !isatty.IsTerminal(os.Stdout.Fd()) {
		_, err = fmt.Fprintln(w, reply)
		return err
	}
	styled, err := glamour.Render(reply, "dark")
	if err != nil {
		_, err = fmt.Fprintln(w, reply)
		return err
	}
	_, err = fmt.Fprint(w, styled)
	return err
}
