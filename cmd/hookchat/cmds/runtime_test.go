package cmds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/relay"
	"github.com/go-go-golems/hookchat/pkg/workflows"
)

func TestNewRuntime_DefaultsWithoutParsedValues(t *testing.T) {
	rt, err := newRuntime(context.Background(), nil)
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	require.Equal(t, relay.DefaultEndpoints(), rt.Service.Endpoints())
	require.False(t, rt.Redis.Enabled)
	require.Equal(t, attempts.DefaultTopic, rt.Redis.Topic)
	require.Equal(t, workflows.DefaultLimit, rt.N8N.Limit)
	require.NotNil(t, rt.Workflows)
	require.NotNil(t, rt.Sink)
}

func TestCommandsBuild(t *testing.T) {
	sections, err := commonSections()
	require.NoError(t, err)
	require.Len(t, sections, 3)

	send, err := NewSendCommand()
	require.NoError(t, err)
	require.Equal(t, "send", send.Description().Name)

	_, err = NewPingCommand()
	require.NoError(t, err)
	_, err = NewWorkflowsCommand()
	require.NoError(t, err)
	_, err = NewChatCommand()
	require.NoError(t, err)
	_, err = NewServeCommand(nil)
	require.NoError(t, err)
}
