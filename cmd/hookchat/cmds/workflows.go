package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
)

type WorkflowsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = (*WorkflowsCommand)(nil)

type WorkflowsSettings struct {
	Limit int `glazed:"limit"`
}

func NewWorkflowsCommand() (*WorkflowsCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, errors.Wrap(err, "could not create Glazed parameter layer")
	}
	sections, err := commonSections()
	if err != nil {
		return nil, err
	}
	return &WorkflowsCommand{
		CommandDescription: cmds.NewCommandDescription(
			"workflows",
			cmds.WithShort("List workflows from the n8n API"),
			cmds.WithFlags(
				fields.New("limit", fields.TypeInteger, fields.WithDefault(0), fields.WithHelp("Number of workflows to fetch (0 uses --n8n-workflow-limit)")),
			),
			cmds.WithSections(append(sections, glazedSection)...),
		),
	}, nil
}

func (c *WorkflowsCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *values.Values, gp middlewares.Processor) error {
	s := &WorkflowsSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "failed to initialize settings")
	}

	rt, err := newRuntime(ctx, parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	limit := s.Limit
	if limit <= 0 {
		limit = rt.N8N.Limit
	}
	wfs, err := rt.Workflows.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, wf := range wfs {
		row := types.NewRow(
			types.MRP("id", wf.ID),
			types.MRP("name", wf.Name),
			types.MRP("active", wf.Active),
			types.MRP("created_at", wf.CreatedAt),
			types.MRP("updated_at", wf.UpdatedAt),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
