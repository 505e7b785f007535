package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/circl-ai/circl/internal/astralis"
	"github.com/circl-ai/circl/internal/chat"
	"github.com/circl-ai/circl/internal/model"
	"github.com/circl-ai/circl/pkg/logger"
)

// State is the chat view state.
type State int

const (
	// StateLoading covers session setup before the first prompt.
	StateLoading State = iota
	// StateReady accepts input.
	StateReady
	// StateStreaming has a query in flight; input is blurred until done.
	StateStreaming
)

const (
	// Lines reserved outside the viewport: header, input, status bar.
	chromeHeight = 3
	panelWidth   = 34
	setupTimeout = 30 * time.Second
	eventBuffer  = 64
)

// Model is the Bubble Tea model for the interactive chat view.
type Model struct {
	state State
	theme *Theme

	width  int
	height int
	ready  bool

	manager *chat.Manager
	user    model.User

	sessionID string
	// resumeID selects an existing session; empty starts a new one.
	resumeID     string
	queryTimeout time.Duration

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// events carries stream activity from the manager's hooks into Update.
	events chan tea.Msg

	profiles []model.Profile
	status   string
	fatal    error
}

// New builds the chat view and its manager. The manager's hooks feed the
// event channel rather than writing to the terminal directly.
func New(client *astralis.Client, log *logger.Logger, user model.User, resumeID string, queryTimeout time.Duration) Model {
	events := make(chan tea.Msg, eventBuffer)

	manager := chat.NewManager(client, log, chat.Hooks{
		OnThought:  func(string) { events <- streamUpdateMsg{} },
		OnResponse: func(string) { events <- streamUpdateMsg{} },
		OnFound:    func(profiles []model.Profile) { events <- profilesMsg{profiles: profiles} },
		OnStatus:   func(status string) { events <- statusMsg{text: status} },
	})

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask about people in your network"
	input.CharLimit = 4096
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		state:        StateLoading,
		theme:        NewTheme(),
		manager:      manager,
		user:         user,
		resumeID:     resumeID,
		queryTimeout: queryTimeout,
		viewport:     viewport.New(80, 20),
		input:        input,
		spinner:      sp,
		events:       events,
	}
}

// Err returns the error that terminated the view, if any. The caller inspects
// it after the program exits.
func (m Model) Err() error {
	return m.fatal
}

// SessionID returns the active session once setup completed.
func (m Model) SessionID() string {
	return m.sessionID
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.setupCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionReadyMsg:
		if msg.err != nil {
			m.fatal = msg.err
			return m, tea.Quit
		}
		m.sessionID = msg.sessionID
		m.state = StateReady
		m.status = ""
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case streamUpdateMsg:
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, m.waitForEvent()

	case statusMsg:
		m.status = msg.text
		m.refreshViewport()
		return m, m.waitForEvent()

	case profilesMsg:
		m.profiles = msg.profiles
		m.layout()
		m.refreshViewport()
		return m, m.waitForEvent()

	case streamDoneMsg:
		m.state = StateReady
		if msg.err == nil {
			m.status = ""
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		m.input.Focus()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.state == StateLoading || m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.forward(msg)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.layout()
	m.refreshViewport()
	return m
}

// layout sizes the viewport against the window, reserving a column for the
// profile panel when results are showing.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	width := m.width
	if len(m.profiles) > 0 && width > panelWidth*2 {
		width -= panelWidth
	}
	height := m.height - chromeHeight
	if height < 1 {
		height = 1
	}
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = m.width - len(m.input.Prompt) - 1
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.state == StateReady {
			return m, tea.Quit
		}
		return m, nil

	case "enter":
		if m.state != StateReady {
			return m, nil
		}
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		return m.submit(content)

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m.forward(msg)
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.state == StateReady {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submit(content string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.input.Blur()
	m.state = StateStreaming
	m.status = "Processing query..."
	return m, tea.Batch(m.startStream(content), m.waitForEvent(), m.spinner.Tick)
}

// setupCmd loads the session list and selects or creates the session,
// off the UI goroutine.
func (m Model) setupCmd() tea.Cmd {
	manager, user, resumeID := m.manager, m.user, m.resumeID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()

		manager.LoadSessions(ctx)

		if resumeID != "" {
			if err := manager.SelectSession(ctx, resumeID); err != nil {
				return sessionReadyMsg{err: err}
			}
			return sessionReadyMsg{sessionID: resumeID}
		}

		sessionID, err := manager.StartSession(ctx, user.UserID)
		return sessionReadyMsg{sessionID: sessionID, err: err}
	}
}

// startStream runs the query in the background. Completion goes through the
// event channel so it orders after every fragment the hooks produced.
func (m Model) startStream(content string) tea.Cmd {
	manager, sessionID, timeout, events := m.manager, m.sessionID, m.queryTimeout, m.events
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		events <- streamDoneMsg{err: manager.Send(ctx, sessionID, content)}
		return nil
	}
}

// waitForEvent blocks for the next stream event. Each event handler re-arms
// it until streamDoneMsg arrives.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg { return <-events }
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}
