// Package tui is the terminal front end of a realtime voice session.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/conversation"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

const sessionRefreshInterval = 250 * time.Millisecond

// Controller is the part of the orchestrator the terminal UI drives.
type Controller interface {
	Session() orchestration.Session
	Transcript() conversation.Snapshot
	Profiles() []realtime.Profile
	Subscribe(fn func(conversation.Snapshot)) (unsubscribe func())

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	ToggleMute(ctx context.Context) error
	ToggleRecording(ctx context.Context) error
	SetProfile(ctx context.Context, id string) error
}

// ModelInfo describes the remote session, shown in the header.
type ModelInfo struct {
	Model              string
	TranscriptionModel string
	Voice              string
}

type snapshotMsg conversation.Snapshot

type refreshMsg struct{}

type resultMsg struct {
	operation string
	err       error
}

type Model struct {
	ctx        context.Context
	controller Controller
	info       ModelInfo

	snapshot conversation.Snapshot
	session  orchestration.Session
	profiles []realtime.Profile

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int

	busy string
	err  error
}

func NewModel(ctx context.Context, controller Controller, info ModelInfo) Model {
	return Model{
		ctx:        ctx,
		controller: controller,
		info:       info,
		snapshot:   controller.Transcript(),
		session:    controller.Session(),
		profiles:   controller.Profiles(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refresh())
}

func refresh() tea.Cmd {
	return tea.Tick(sessionRefreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := strings.Count(m.header(), "\n") + 1
		footerHeight := strings.Count(m.footer(), "\n") + 1
		height := max(msg.Height-headerHeight-footerHeight, 1)
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.syncTranscript()

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case snapshotMsg:
		// Snapshots are delivered on their own goroutines and may arrive out
		// of order.
		if msg.Version >= m.snapshot.Version {
			m.snapshot = conversation.Snapshot(msg)
			m.syncTranscript()
		}

	case refreshMsg:
		m.session = m.controller.Session()
		cmds = append(cmds, refresh())

	case resultMsg:
		m.busy = ""
		m.err = msg.err
		m.session = m.controller.Session()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return tea.Quit

	case "c":
		if m.session.Connected || m.session.State == orchestration.StateConnecting {
			return m.run("disconnecting", func(ctx context.Context) error {
				m.controller.Disconnect(ctx)
				return nil
			})
		}
		return m.run("connecting", m.controller.Connect)

	case " ", "r":
		return m.run("", m.controller.ToggleRecording)

	case "m":
		return m.run("", m.controller.ToggleMute)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(m.profiles) {
			return nil
		}
		id := m.profiles[i].ID
		return m.run("", func(ctx context.Context) error {
			return m.controller.SetProfile(ctx, id)
		})
	}
	return nil
}

// run executes a control operation off the UI goroutine.
func (m *Model) run(busy string, operation func(ctx context.Context) error) tea.Cmd {
	if m.busy != "" {
		return nil
	}
	m.busy = busy
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{operation: busy, err: operation(ctx)}
	}
}

func (m *Model) syncTranscript() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderTranscript(m.snapshot, m.width))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) header() string {
	title := titleStyle.Render("ema realtime")
	details := mutedStyle.Render(m.info.Model + " · " + m.info.TranscriptionModel + " · " + m.info.Voice)
	status := renderStatus(m.session)
	if m.busy != "" {
		status = m.spinner.View() + " " + m.busy
	}
	return title + "  " + details + "\n" + status
}

func (m Model) footer() string {
	lines := []string{}
	if profiles := renderProfiles(m.profiles, m.session.Profile); profiles != "" {
		lines = append(lines, profiles)
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	}
	lines = append(lines, renderHelp(m.session))
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " starting"
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}

// Run blocks until the user quits. Transcript snapshots are pushed into the
// program as they are published.
func Run(ctx context.Context, controller Controller, info ModelInfo) error {
	p := tea.NewProgram(NewModel(ctx, controller, info), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := controller.Subscribe(func(snapshot conversation.Snapshot) {
		go p.Send(snapshotMsg(snapshot))
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
