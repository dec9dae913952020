package chatcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

const inputHeight = 3

var (
	chatTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	chatMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	chatBorderStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(lipgloss.Color("237"))
)

type chatKeyMap struct {
	Send     key.Binding
	Newline  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.PageUp, k.PageDown, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Newline}, {k.PageUp, k.PageDown, k.Quit}}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Newline:  key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	}
}

type snapshotMsg study.Snapshot

type turnDoneMsg struct {
	err error
}

type commandDoneMsg struct {
	out  string
	quit bool
	err  error
}

type chatModel struct {
	ctx      context.Context
	session  *chatSession
	snapshot study.Snapshot
	updates  chan study.Snapshot
	page     int

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	notice string
	width  int
	height int
	ready  bool
}

func newChatModel(ctx context.Context, s *chatSession) chatModel {
	keys := defaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Ask about " + s.title() + "... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("82"))),
	)

	return chatModel{
		ctx:      ctx,
		session:  s,
		snapshot: s.conv.Snapshot(),
		updates:  make(chan study.Snapshot, 64),
		input:    ta,
		spinner:  sp,
		help:     help.New(),
		keys:     keys,
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(textarea.Blink, m.waitForSnapshot())
}

// waitForSnapshot delivers the next conversation update to the program.
func (m chatModel) waitForSnapshot() bubbletea.Cmd {
	updates, ctx := m.updates, m.ctx
	return func() bubbletea.Msg {
		select {
		case s := <-updates:
			return snapshotMsg(s)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width)
		vpHeight := max(msg.Height-inputHeight-4, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd bubbletea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd bubbletea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.snapshot = study.Snapshot(msg)
		m.refresh()
		return m, m.waitForSnapshot()

	case turnDoneMsg:
		if msg.err != nil {
			m.notice = cliui.FailMark + " " + msg.err.Error()
		}
		m.snapshot = m.session.conv.Snapshot()
		m.refresh()
		return m, nil

	case commandDoneMsg:
		if msg.quit {
			return m, bubbletea.Quit
		}
		if msg.err != nil {
			m.notice = cliui.FailMark + " " + msg.err.Error()
		} else {
			m.notice = msg.out
		}
		m.snapshot = m.session.conv.Snapshot()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.Loading {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// submit sends the input as a question or runs it as a slash command.
func (m chatModel) submit() (bubbletea.Model, bubbletea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.snapshot.Loading {
		m.notice = "Wait for the current reply to finish."
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	ctx, s := m.ctx, m.session

	if strings.HasPrefix(text, "/") {
		return m, func() bubbletea.Msg {
			out, quit, err := s.command(ctx, text)
			return commandDoneMsg{out: out, quit: quit, err: err}
		}
	}

	m.snapshot.Loading = true
	send := func() bubbletea.Msg {
		_, err := s.conv.Send(ctx, text)
		return turnDoneMsg{err: err}
	}
	return m, bubbletea.Batch(send, m.spinner.Tick)
}

func (m *chatModel) refresh() {
	if p, ok := m.session.pages.Current(); ok {
		m.page = p
	}
	if !m.ready {
		return
	}
	content := m.session.renderTranscript(m.snapshot, m.viewport.Width-2)
	if content == "" {
		content = chatMutedStyle.Render("Ask a question to get started.")
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m chatModel) header() string {
	parts := []string{
		chatTitleStyle.Render("Study Buddy"),
		m.session.title(),
		client.PersonaName(client.EffectivePersona(m.snapshot.DocumentID, m.snapshot.Persona)),
		"web " + onOff(m.snapshot.WebSearch),
	}
	if m.page > 0 {
		parts = append(parts, fmt.Sprintf("p. %d", m.page))
	}
	return strings.Join(parts, chatMutedStyle.Render(" · "))
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := chatNoticeStyle.Render(m.notice)
	if m.snapshot.Loading {
		status = m.spinner.View() + " " + chatMutedStyle.Render("Thinking...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		chatBorderStyle.Render(m.viewport.View()),
		status,
		m.input.View(),
		m.help.View(m.keys),
	)
}

// runChatTUI runs the full screen chat until the user quits.
func runChatTUI(ctx context.Context, s *chatSession) error {
	model := newChatModel(ctx, s)

	unsubscribe := s.conv.Subscribe(func(snap study.Snapshot) {
		select {
		case model.updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}
