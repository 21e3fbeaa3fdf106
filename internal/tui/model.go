// Package tui renders the live voice session in the terminal: transcript,
// session flags, server progress and the playback loudness meter, with key
// bindings for the session commands.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	session "github.com/girovoice/giro-core/core"
)

const (
	loudnessPollInterval = 100 * time.Millisecond
	loudnessBarWidth     = 24

	patienceStep = 250 * time.Millisecond
	minPatience  = 250 * time.Millisecond
	maxPatience  = 10 * time.Second
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	inactiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Italic(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Controller is the slice of the session orchestrator the interface drives.
type Controller interface {
	ToggleListening()
	SetMuted(muted bool)
	SetLanguage(tag string)
	SetPatience(patience time.Duration)
	State() session.SessionState
	Loudness() float64
}

var languageCycle = []string{"pt-BR", "en-US", "es-ES"}

// Messages pushed into the program from the orchestrator callbacks.

type StateMsg struct{ State session.SessionState }

type TranscriptMsg struct {
	Author session.Author
	Text   string
}

type ToolUsedMsg struct{}

type loudnessTickMsg struct{}

type transcriptLine struct {
	author session.Author
	text   string
	tool   bool
}

type Model struct {
	controller Controller

	state    session.SessionState
	loudness float64
	lines    []transcriptLine

	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool
}

func NewModel(controller Controller) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return Model{
		controller: controller,
		state:      controller.State(),
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollLoudness())
}

func (m Model) pollLoudness() tea.Cmd {
	return tea.Tick(loudnessPollInterval, func(time.Time) tea.Msg {
		return loudnessTickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "l":
			m.controller.ToggleListening()
		case "m":
			m.controller.SetMuted(!m.state.Muted)
		case "g":
			m.controller.SetLanguage(nextLanguage(m.state.Language))
		case "+", "=":
			m.controller.SetPatience(clampPatience(m.state.Patience + patienceStep))
		case "-":
			m.controller.SetPatience(clampPatience(m.state.Patience - patienceStep))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		transcriptHeight := msg.Height - 6
		if transcriptHeight < 3 {
			transcriptHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, transcriptHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = transcriptHeight
		}
		m.refreshTranscript()
		return m, nil

	case StateMsg:
		m.state = msg.State
		return m, nil

	case TranscriptMsg:
		m.lines = append(m.lines, transcriptLine{author: msg.Author, text: msg.Text})
		m.refreshTranscript()
		return m, nil

	case ToolUsedMsg:
		m.lines = append(m.lines, transcriptLine{tool: true, text: "consulted an external source"})
		m.refreshTranscript()
		return m, nil

	case loudnessTickMsg:
		m.loudness = m.controller.Loudness()
		return m, m.pollLoudness()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}

	width := m.viewport.Width
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for _, line := range m.lines {
		var prefix string
		style := toolStyle
		switch {
		case line.tool:
			prefix = "tool"
		case line.author == session.AuthorUser:
			prefix = "you"
			style = userStyle
		default:
			prefix = "giro"
			style = assistantStyle
		}
		b.WriteString(style.Render(prefix+":") + " ")
		b.WriteString(wordwrap.String(line.text, width-len(prefix)-2))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "starting session..."
	}

	header := titleStyle.Render("giro") + "  " + m.statusLine()

	return strings.Join([]string{
		header,
		m.viewport.View(),
		m.meterLine(),
		helpStyle.Render("l listen · m mute · g language · +/- patience · q quit"),
	}, "\n")
}

func (m Model) statusLine() string {
	flag := func(label string, on bool) string {
		if on {
			return activeStyle.Render(label)
		}
		return inactiveStyle.Render(label)
	}

	parts := []string{
		flag("listening", m.state.Listening),
		flag("muted", m.state.Muted),
		flag("speaking", m.state.Speaking),
		flag("waiting", m.state.Waiting),
		statusStyle.Render(fmt.Sprintf("%s · patience %s", m.state.Language, m.state.Patience)),
	}

	if m.state.ServerStage != session.StageNone {
		parts = append(parts, m.spinner.View()+" "+activeStyle.Render(m.state.ServerStage.String()))
	}

	return strings.Join(parts, "  ")
}

// meterLine renders the smoothed playback loudness as a fixed-width bar.
func (m Model) meterLine() string {
	filled := int(m.loudness * loudnessBarWidth)
	if filled > loudnessBarWidth {
		filled = loudnessBarWidth
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", loudnessBarWidth-filled)
	return statusStyle.Render("output ") + activeStyle.Render(bar)
}

func nextLanguage(current string) string {
	for i, tag := range languageCycle {
		if tag == current {
			return languageCycle[(i+1)%len(languageCycle)]
		}
	}
	return languageCycle[0]
}

func clampPatience(patience time.Duration) time.Duration {
	if patience < minPatience {
		return minPatience
	}
	if patience > maxPatience {
		return maxPatience
	}
	return patience
}
