package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const maxCallLog = 8

// CallStatus is one line of call progress.
type CallStatus struct {
	Icon  string
	Text  string
	State string

	// Done ends the view after rendering this status.
	Done bool
}

// CallView shows a live call in the terminal.
type CallView struct {
	program *tea.Program
	model   *callModel
	wg      sync.WaitGroup
}

type callModel struct {
	title     string
	spinner   spinner.Model
	state     string
	lines     []string
	done      bool
	hangingUp bool
	onQuit    func()
}

// NewCallView creates the view. onQuit runs once when the user presses q or
// ctrl+c; the view keeps rendering until a Done status arrives.
func NewCallView(title string, onQuit func()) *CallView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &callModel{
		title:   title,
		spinner: s,
		state:   "Connecting...",
		onQuit:  onQuit,
	}
	return &CallView{
		model:   model,
		program: tea.NewProgram(model),
	}
}

// Start starts the UI in a goroutine
func (v *CallView) Start() {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		if _, err := v.program.Run(); err != nil {
			PrintError(fmt.Sprintf("UI error: %v", err))
		}
	}()
}

// Update renders a status.
func (v *CallView) Update(s CallStatus) {
	v.program.Send(s)
}

// Stop waits for the view to finish, quitting it if needed.
func (v *CallView) Stop() {
	v.program.Quit()
	v.wg.Wait()
}

func (m *callModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.hangingUp {
				m.hangingUp = true
				m.state = "Hanging up..."
				if m.onQuit != nil {
					m.onQuit()
				}
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case CallStatus:
		m.apply(msg)
		if m.done {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *callModel) apply(s CallStatus) {
	if s.State != "" {
		m.state = s.State
	}
	if s.Text != "" {
		icon := s.Icon
		if icon == "" {
			icon = IconInfo
		}
		m.lines = append(m.lines, fmt.Sprintf("%s %s", icon, s.Text))
		if len(m.lines) > maxCallLog {
			m.lines = m.lines[len(m.lines)-maxCallLog:]
		}
	}
	m.done = m.done || s.Done
}

func (m *callModel) View() string {
	var b strings.Builder

	b.WriteString("\n" + TitleStyle.Render(IconCall+" "+m.title) + "\n\n")
	for _, line := range m.lines {
		b.WriteString("  " + line + "\n")
	}
	if len(m.lines) > 0 {
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(MutedStyle.Render(m.state) + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.state))
	b.WriteString(MutedStyle.Render("Press q to hang up"))
	return b.String()
}
