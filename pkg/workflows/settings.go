package workflows

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
)

const SectionSlug = "n8n"

type Settings struct {
	APIURL string `glazed:"n8n-api-url"`
	APIKey string `glazed:"n8n-api-key"`
	Limit  int    `glazed:"n8n-workflow-limit"`
}

func NewSection() (schema.Section, error) {
	return schema.NewSection(
		SectionSlug,
		"n8n REST API access",
		schema.WithFields(
			fields.New("n8n-api-url", fields.TypeString, fields.WithDefault(DefaultBaseURL), fields.WithHelp("n8n public API base URL")),
			fields.New("n8n-api-key", fields.TypeString, fields.WithDefault(""), fields.WithHelp("n8n API key (X-N8N-API-KEY)")),
			fields.New("n8n-workflow-limit", fields.TypeInteger, fields.WithDefault(DefaultLimit), fields.WithHelp("Number of workflows to list")),
		),
	)
}

func SettingsFromValues(parsed *values.Values) (Settings, error) {
	s := Settings{APIURL: DefaultBaseURL, Limit: DefaultLimit}
	if parsed == nil {
		return s, nil
	}
	if err := parsed.DecodeSectionInto(SectionSlug, &s); err != nil {
		return s, errors.Wrap(err, "decode n8n settings")
	}
	return s, nil
}

func (s Settings) NewClient(opts ...Option) *Client {
	return NewClient(s.APIURL, s.APIKey, opts...)
}
