package ui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/relay"
)

type fakeService struct {
	mu        sync.Mutex
	reply     string
	err       error
	reachable map[bool]bool
	sent      []string
	modes     []bool
}

func (f *fakeService) SendMessage(_ context.Context, text string, testMode bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.modes = append(f.modes, testMode)
	return f.reply, f.err
}

func (f *fakeService) CheckReachable(_ context.Context, testMode bool) bool {
	return f.reachable[testMode]
}

func (f *fakeService) Endpoints() relay.Endpoints {
	return relay.Endpoints{Production: "https://prod/webhook", Test: "https://test/webhook-test"}
}

// run executes cmd and every command batched under it, returning the
// messages they produce.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func newTestModel(svc *fakeService, opts ...Option) Model {
	return NewModel(context.Background(), svc, append([]Option{WithPlainReplies()}, opts...)...)
}

func TestNewModel_DefaultsToTestModeWithGreeting(t *testing.T) {
	m := newTestModel(&fakeService{})
	require.True(t, m.TestMode())
	require.Equal(t, StatusChecking, m.Status())
	msgs := m.Transcript().Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, SenderSystem, msgs[0].Sender)
	require.Contains(t, msgs[0].Text, "test webhook")
}

func TestEnter_SendsAndAppendsReply(t *testing.T) {
	svc := &fakeService{reply: "hello back"}
	m := newTestModel(svc)
	m.input.SetValue("  hello  ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Busy())
	require.Equal(t, "", m.input.Value())

	reply, ok := find[replyMsg](run(cmd))
	require.True(t, ok)
	require.Equal(t, []string{"hello"}, svc.sent)
	require.Equal(t, []bool{true}, svc.modes)

	m, _ = update(t, m, reply)
	require.False(t, m.Busy())
	msgs := m.Transcript().Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, SenderUser, msgs[1].Sender)
	require.Equal(t, "hello", msgs[1].Text)
	require.Equal(t, SenderBot, msgs[2].Sender)
	require.Equal(t, "hello back", msgs[2].Text)
}

func TestEnter_IgnoresEmptyInputAndWhileBusy(t *testing.T) {
	svc := &fakeService{}
	m := newTestModel(svc)
	m.input.SetValue("   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.False(t, m.Busy())

	m.input.SetValue("one")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("two")
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestReply_AllStrategiesFailedAddsSystemMessage(t *testing.T) {
	m := newTestModel(&fakeService{})
	m.busy = true
	m, _ = update(t, m, replyMsg{err: relay.ErrAllStrategiesFailed})
	last := m.Transcript().Messages()[m.Transcript().Len()-1]
	require.Equal(t, SenderSystem, last.Sender)
	require.Equal(t, AllFailedText, last.Text)

	m, _ = update(t, m, replyMsg{err: errors.New("boom")})
	last = m.Transcript().Messages()[m.Transcript().Len()-1]
	require.Equal(t, "Sending failed: boom", last.Text)
}

func TestTab_TogglesModeAndReprobes(t *testing.T) {
	svc := &fakeService{reachable: map[bool]bool{false: true}}
	m := newTestModel(svc)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.False(t, m.TestMode())
	require.Equal(t, StatusChecking, m.Status())

	status, ok := find[statusMsg](run(cmd))
	require.True(t, ok)
	require.False(t, status.testMode)
	m, _ = update(t, m, status)
	require.Equal(t, StatusOnline, m.Status())

	// a probe answer for the other mode arrives late and is ignored
	m, _ = update(t, m, statusMsg{testMode: true, reachable: false})
	require.Equal(t, StatusOnline, m.Status())

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestCtrlR_Reprobes(t *testing.T) {
	m := newTestModel(&fakeService{reachable: map[bool]bool{true: false}})
	m.status = StatusOnline
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, StatusChecking, m.Status())
	status, ok := find[statusMsg](run(cmd))
	require.True(t, ok)
	m, _ = update(t, m, status)
	require.Equal(t, StatusOffline, m.Status())
}

func TestCtrlY_CopiesLastReply(t *testing.T) {
	var copied string
	m := newTestModel(&fakeService{}, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "", copied)
	require.Equal(t, nothingToCopy, m.Transcript().Messages()[m.Transcript().Len()-1].Text)

	m.transcript.Add(SenderBot, "first")
	m.transcript.Add(SenderBot, "second")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "second", copied)
	require.Equal(t, copiedText, m.Transcript().Messages()[m.Transcript().Len()-1].Text)
}

func TestAttemptFeed_ShowsCurrentStrategy(t *testing.T) {
	feed := make(chan attempts.Event, 1)
	m := newTestModel(&fakeService{}, WithAttemptFeed(feed))
	m.busy = true

	m, cmd := update(t, m, attemptMsg(attempts.Event{Strategy: "allorigins"}))
	require.NotNil(t, cmd)
	require.Equal(t, "allorigins", m.current)
	require.Contains(t, m.View(), "(allorigins)")

	m, _ = update(t, m, attemptMsg(attempts.Event{Strategy: "probe:allorigins"}))
	require.Equal(t, "allorigins", m.current)

	feed <- attempts.Event{Strategy: "codetabs"}
	msg := cmd()
	m, _ = update(t, m, msg)
	require.Equal(t, "codetabs", m.current)
}

func TestTranscript_LastReply(t *testing.T) {
	tr := NewTranscript()
	_, ok := tr.LastReply()
	require.False(t, ok)
	tr.Add(SenderUser, "q")
	tr.Add(SenderBot, "a")
	tr.Add(SenderSystem, "note")
	last, ok := tr.LastReply()
	require.True(t, ok)
	require.Equal(t, "a", last.Text)
	require.NotEmpty(t, last.ID)
	require.Equal(t, 3, tr.Len())
}
