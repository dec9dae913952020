package quizcmder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

var (
	quizTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	quizMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	quizCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	quizCorrectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	quizWrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	quizQuestionStyle = lipgloss.NewStyle().Bold(true)
	quizBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("237")).Padding(1, 2)
)

type quizKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Pick   key.Binding
	Select key.Binding
	Retry  key.Binding
	Quit   key.Binding
}

func (k quizKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pick, k.Select, k.Retry, k.Quit}
}

func (k quizKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Pick}, {k.Select, k.Retry, k.Quit}}
}

func defaultKeyMap() quizKeyMap {
	return quizKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Pick:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "pick")),
		Select: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Retry:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "try again"), key.WithDisabled()),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

type quizLoadedMsg struct {
	round *study.QuizRound
	err   error
}

type quizModel struct {
	ctx     context.Context
	session *quizSession

	round   *study.QuizRound
	cursor  int
	loading bool
	err     error

	spinner spinner.Model
	help    help.Model
	keys    quizKeyMap
	width   int
}

func newQuizModel(ctx context.Context, s *quizSession) quizModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("82"))),
	)

	return quizModel{
		ctx:     ctx,
		session: s,
		loading: true,
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
}

func (m quizModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(m.generate(), m.spinner.Tick)
}

func (m quizModel) generate() bubbletea.Cmd {
	ctx, s := m.ctx, m.session
	return func() bubbletea.Msg {
		round, err := s.generate(ctx)
		return quizLoadedMsg{round: round, err: err}
	}
}

func (m quizModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case quizLoadedMsg:
		m.loading = false
		m.round, m.err = msg.round, msg.err
		m.cursor = 0
		m.keys.Retry.SetEnabled(false)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m quizModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, bubbletea.Quit
	}
	if m.loading || m.round == nil {
		return m, nil
	}

	if m.round.Done() {
		if key.Matches(msg, m.keys.Retry) {
			m.loading = true
			m.round = nil
			return m, bubbletea.Batch(m.generate(), m.spinner.Tick)
		}
		return m, nil
	}

	if m.round.Answered() {
		if key.Matches(msg, m.keys.Select) {
			if !m.round.Next() {
				m.session.finish(m.ctx, m.round)
				m.keys.Retry.SetEnabled(true)
			}
			m.cursor = 0
		}
		return m, nil
	}

	options := len(m.round.Current().Options)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < options-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Pick):
		n, _ := strconv.Atoi(msg.String())
		if n >= 1 && n <= options {
			m.cursor = n - 1
			_, _ = m.round.Answer(m.cursor)
		}
	case key.Matches(msg, m.keys.Select):
		_, _ = m.round.Answer(m.cursor)
	}
	return m, nil
}

func (m quizModel) View() string {
	var body string
	switch {
	case m.loading:
		body = m.spinner.View() + " " + quizMutedStyle.Render("Generating your quiz...")
	case m.err != nil:
		body = cliui.FailMark + " " + m.err.Error()
	case m.round.Done():
		body = m.resultView()
	default:
		body = m.questionView()
	}

	header := quizTitleStyle.Render("Quiz") + quizMutedStyle.Render(" · ") + m.session.document.Filename
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		quizBoxStyle.Render(body),
		m.help.View(m.keys),
	)
}

func (m quizModel) questionView() string {
	r := m.round
	q := r.Current()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", quizMutedStyle.Render(fmt.Sprintf("Question %d of %d · Score: %d", r.Index()+1, r.Len(), r.Score())))
	fmt.Fprintf(&b, "%s\n\n", quizQuestionStyle.Render(q.Question))

	for i, opt := range q.Options {
		line := fmt.Sprintf("%d) %s", i+1, opt)
		switch {
		case r.Answered() && i == q.CorrectAnswer:
			line = quizCorrectStyle.Render("✓ " + line)
		case r.Answered() && i == r.Selected():
			line = quizWrongStyle.Render("✗ " + line)
		case r.Answered():
			line = "  " + line
		case i == m.cursor:
			line = quizCursorStyle.Render("> " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if r.Answered() {
		if r.Selected() == q.CorrectAnswer {
			b.WriteString("\n" + quizCorrectStyle.Render("Correct!"))
		} else {
			b.WriteString("\n" + quizWrongStyle.Render("Incorrect."))
		}
		if q.Explanation != "" {
			b.WriteString("\n" + quizMutedStyle.Render(q.Explanation))
		}
		next := "Next Question"
		if r.Last() {
			next = "Show Results"
		}
		b.WriteString("\n\n" + quizCursorStyle.Render("enter") + " " + next)
	}

	return b.String()
}

func (m quizModel) resultView() string {
	r := m.round
	return strings.Join([]string{
		"🏆 " + quizTitleStyle.Render("Quiz Complete!"),
		"",
		fmt.Sprintf("You scored %d out of %d", r.Score(), r.Len()),
		quizMutedStyle.Render(r.Verdict()),
		"",
		quizCursorStyle.Render("r") + " Try Again   " + quizCursorStyle.Render("q") + " Quit",
	}, "\n")
}

// runQuizTUI runs the full screen quiz until the user quits.
func runQuizTUI(ctx context.Context, s *quizSession) error {
	program := bubbletea.NewProgram(newQuizModel(ctx, s),
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	final, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(quizModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
