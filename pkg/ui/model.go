package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/hookchat/pkg/attempts"
	"github.com/go-go-golems/hookchat/pkg/relay"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	endpointStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	userStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	botStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	systemStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	checkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// ChatService is what the TUI needs from the relay core.
type ChatService interface {
	SendMessage(ctx context.Context, text string, testMode bool) (string, error)
	CheckReachable(ctx context.Context, testMode bool) bool
	Endpoints() relay.Endpoints
}

type Status string

const (
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

const (
	AllFailedText = "Every attempt to reach the webhook failed, including all CORS relays. The server may be blocking relay traffic too."
	copiedText    = "Last reply copied to clipboard."
	nothingToCopy = "No reply to copy yet."
)

type replyMsg struct {
	text string
	err  error
}

type statusMsg struct {
	testMode  bool
	reachable bool
}

type attemptMsg attempts.Event

type Option func(*Model)

// WithTestMode sets the initial mode. The default is test.
func WithTestMode(testMode bool) Option {
	return func(m *Model) { m.testMode = testMode }
}

// WithAttemptFeed lets the model show which strategy a delivery is on.
func WithAttemptFeed(ch <-chan attempts.Event) Option {
	return func(m *Model) { m.attempts = ch }
}

func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copy = write
		}
	}
}

// WithPlainReplies disables glamour rendering of bot replies.
func WithPlainReplies() Option {
	return func(m *Model) { m.plain = true }
}

type Model struct {
	ctx        context.Context
	svc        ChatService
	transcript *Transcript

	input    textinput.Model
	viewport viewport.Model
	spinner  bspinner.Model
	renderer *glamour.TermRenderer

	testMode bool
	status   Status
	busy     bool
	current  string
	width    int
	plain    bool

	attempts <-chan attempts.Event
	copy     func(string) error
}

func NewModel(ctx context.Context, svc ChatService, opts ...Option) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	ti := textinput.New()
	ti.Placeholder = "Type a message and press enter"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := bspinner.New()
	sp.Spinner = bspinner.Dot
	sp.Style = checkStyle

	m := Model{
		ctx:        ctx,
		svc:        svc,
		transcript: NewTranscript(),
		input:      ti,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		testMode:   true,
		status:     StatusChecking,
		width:      80,
		copy:       clipboard.WriteAll,
	}
	for _, o := range opts {
		o(&m)
	}
	m.renderer = m.newRenderer(m.width)
	m.transcript.Add(SenderSystem, fmt.Sprintf("Chatting with the %s webhook. tab switches mode, ctrl+r re-checks the connection, ctrl+y copies the last reply.", relay.ModeFor(m.testMode)))
	m.refresh()
	return m
}

func (m Model) Transcript() *Transcript { return m.transcript }
func (m Model) TestMode() bool          { return m.testMode }
func (m Model) Status() Status          { return m.status }
func (m Model) Busy() bool              { return m.busy }

func (m Model) newRenderer(width int) *glamour.TermRenderer {
	if m.plain {
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

func waitForAttempt(ch <-chan attempts.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return attemptMsg(e)
	}
}

func (m Model) sendCmd(text string, testMode bool) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.svc.SendMessage(m.ctx, text, testMode)
		return replyMsg{text: reply, err: err}
	}
}

func (m Model) probeCmd(testMode bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{testMode: testMode, reachable: m.svc.CheckReachable(m.ctx, testMode)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.probeCmd(m.testMode), waitForAttempt(m.attempts))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ev.Width
		m.input.Width = ev.Width - 4
		m.viewport.Width = ev.Width
		m.viewport.Height = max(ev.Height-5, 3)
		m.renderer = m.newRenderer(max(ev.Width-4, 20))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch ev.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.testMode = !m.testMode
			m.status = StatusChecking
			m.transcript.Add(SenderSystem, fmt.Sprintf("Switched to %s mode.", relay.ModeFor(m.testMode)))
			m.refresh()
			return m, tea.Batch(m.probeCmd(m.testMode), m.spinner.Tick)
		case "ctrl+r":
			m.status = StatusChecking
			return m, tea.Batch(m.probeCmd(m.testMode), m.spinner.Tick)
		case "ctrl+y":
			last, ok := m.transcript.LastReply()
			switch {
			case !ok:
				m.transcript.Add(SenderSystem, nothingToCopy)
			case m.copy(last.Text) != nil:
				m.transcript.Add(SenderSystem, "Could not access the clipboard.")
			default:
				m.transcript.Add(SenderSystem, copiedText)
			}
			m.refresh()
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.transcript.Add(SenderUser, text)
			m.busy = true
			m.current = ""
			m.refresh()
			return m, tea.Batch(m.sendCmd(text, m.testMode), m.spinner.Tick)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case replyMsg:
		m.busy = false
		m.current = ""
		switch {
		case ev.err == nil:
			m.transcript.Add(SenderBot, ev.text)
		case stderrors.Is(ev.err, relay.ErrAllStrategiesFailed):
			m.transcript.Add(SenderSystem, AllFailedText)
		case m.ctx.Err() != nil:
			return m, nil
		default:
			m.transcript.Add(SenderSystem, "Sending failed: "+ev.err.Error())
		}
		m.refresh()
		return m, nil

	case statusMsg:
		if ev.testMode != m.testMode {
			return m, nil
		}
		if ev.reachable {
			m.status = StatusOnline
		} else {
			m.status = StatusOffline
		}
		return m, nil

	case attemptMsg:
		if m.busy && !strings.HasPrefix(ev.Strategy, "probe:") {
			m.current = ev.Strategy
		}
		return m, waitForAttempt(m.attempts)

	case bspinner.TickMsg:
		if !m.busy && m.status != StatusChecking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	var b strings.Builder
	for _, msg := range m.transcript.Messages() {
		ts := timeStyle.Render(msg.Timestamp.Format("15:04"))
		switch msg.Sender {
		case SenderUser:
			b.WriteString(ts + " " + userStyle.Render("you") + "\n" + msg.Text + "\n\n")
		case SenderBot:
			b.WriteString(ts + " " + botStyle.Render("bot") + "\n" + m.renderReply(msg.Text) + "\n")
		default:
			b.WriteString(ts + " " + systemStyle.Render(msg.Text) + "\n\n")
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderReply(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) statusView() string {
	switch m.status {
	case StatusOnline:
		return onlineStyle.Render("● online")
	case StatusOffline:
		return offlineStyle.Render("● offline")
	default:
		return checkStyle.Render(m.spinner.View() + " checking")
	}
}

func (m Model) View() string {
	endpoint := m.svc.Endpoints().Resolve(m.testMode)
	header := headerStyle.Render("hookchat") + " " +
		fmt.Sprintf("[%s]", relay.ModeFor(m.testMode)) + " " +
		m.statusView() + " " +
		endpointStyle.Render(endpoint.String())

	footer := helpStyle.Render("enter send • tab mode • ctrl+r check • ctrl+y copy • esc quit")
	if m.busy {
		waiting := "waiting for reply"
		if m.current != "" {
			waiting += " (" + m.current + ")"
		}
		footer = m.spinner.View() + " " + helpStyle.Render(waiting)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), footer)
}
