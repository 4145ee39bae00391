// Package tui provides the Bubble Tea progress view for the generation
// pipeline. The pipeline runs on a worker goroutine and reports through
// Program.Send; the model itself never does I/O.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// ── Step state ───────────────────

type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepDone
	StepFailed
)

// StepMsg updates one pipeline step. Sent from the worker goroutine via
// Program.Send.
type StepMsg struct {
	Index  int
	Status StepStatus
	Detail string
}

// DoneMsg ends the program. Result is printed after the TUI exits.
type DoneMsg struct {
	Err    error
	Result string
}

// ── Model ────────────────────

// Model renders a fixed list of pipeline steps with a spinner on the one
// currently running.
type Model struct {
	title    string
	steps    []string
	statuses []StepStatus
	details  []string
	spin     spinner.Model

	// Final outcome, readable after Run returns.
	Err    error
	Result string

	quitting bool
}

// New returns a progress model for the given step names.
func New(title string, steps []string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return Model{
		title:    title,
		steps:    steps,
		statuses: make([]StepStatus, len(steps)),
		details:  make([]string, len(steps)),
		spin:     sp,
	}
}

func (m Model) Init() tea.Cmd { return m.spin.Tick }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case StepMsg:
		if msg.Index >= 0 && msg.Index < len(m.steps) {
			m.statuses[msg.Index] = msg.Status
			m.details[msg.Index] = msg.Detail
		}
		return m, nil

	case DoneMsg:
		m.Err = msg.Err
		m.Result = msg.Result
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" "+m.title+" ") + "\n\n")

	for i, step := range m.steps {
		var icon, label string
		switch m.statuses[i] {
		case StepDone:
			icon = doneStyle.Render("✓")
			label = step
		case StepFailed:
			icon = failStyle.Render("✗")
			label = failStyle.Render(step)
		case StepRunning:
			icon = m.spin.View()
			label = runningStyle.Render(step)
		default:
			icon = dimStyle.Render("○")
			label = dimStyle.Render(step)
		}
		sb.WriteString("  " + icon + " " + label)
		if d := m.details[i]; d != "" {
			sb.WriteString("  " + detailStyle.Render(d))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n" + hintStyle.Render("  q quit") + "\n")
	return sb.String()
}

// Run drives the progress view while work executes on its own goroutine.
// work receives a send function for StepMsg updates and must return the
// final outcome, which Run relays as a DoneMsg. Returns the finished model.
func Run(title string, steps []string, work func(send func(tea.Msg)) (string, error)) (Model, error) {
	p := tea.NewProgram(New(title, steps))

	go func() {
		result, err := work(p.Send)
		p.Send(DoneMsg{Err: err, Result: result})
	}()

	final, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	return final.(Model), nil
}
