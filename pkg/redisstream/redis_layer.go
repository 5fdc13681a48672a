package redisstream

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"

	"github.com/go-go-golems/hookchat/pkg/attempts"
)

const SectionSlug = "redis"

// Settings holds Redis Streams transport configuration for Watermill.
type Settings struct {
	Enabled  bool   `glazed:"redis-enabled" glazed.default:"false" glazed.help:"Publish relay attempt events to Redis Streams"`
	Addr     string `glazed:"redis-addr" glazed.default:"localhost:6379" glazed.help:"Redis address host:port"`
	Group    string `glazed:"redis-group" glazed.default:"hookchat" glazed.help:"Redis consumer group"`
	Consumer string `glazed:"redis-consumer" glazed.default:"hookchat-1" glazed.help:"Redis consumer name"`
	Topic    string `glazed:"redis-topic" glazed.default:"hookchat.attempts" glazed.help:"Stream carrying relay attempt events"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:     "localhost:6379",
		Group:    "hookchat",
		Consumer: "hookchat-1",
		Topic:    attempts.DefaultTopic,
	}
}

// NewParameterLayer returns a section definition for Redis Streams settings.
func NewParameterLayer() (schema.Section, error) {
	d := DefaultSettings()
	return schema.NewSection(
		SectionSlug,
		"Redis configuration for relay attempt events",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool, fields.WithDefault(false), fields.WithHelp("Publish relay attempt events to Redis Streams")),
			fields.New("redis-addr", fields.TypeString, fields.WithDefault(d.Addr), fields.WithHelp("Redis address host:port")),
			fields.New("redis-group", fields.TypeString, fields.WithDefault(d.Group), fields.WithHelp("Redis consumer group")),
			fields.New("redis-consumer", fields.TypeString, fields.WithDefault(d.Consumer), fields.WithHelp("Redis consumer name")),
			fields.New("redis-topic", fields.TypeString, fields.WithDefault(d.Topic), fields.WithHelp("Stream carrying relay attempt events")),
		),
	)
}

func SettingsFromValues(parsed *values.Values) (Settings, error) {
	s := DefaultSettings()
	if parsed == nil {
		return s, nil
	}
	if err := parsed.DecodeSectionInto(SectionSlug, &s); err != nil {
		return s, errors.Wrap(err, "decode redis settings")
	}
	if s.Topic == "" {
		s.Topic = attempts.DefaultTopic
	}
	return s, nil
}
