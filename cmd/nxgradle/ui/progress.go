package ui

import (
	"fmt"
	"io"
	"strings"

	"nxgradle/internal/setup"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type progressMsg setup.InitProgress

type progressDoneMsg struct{}

// ProgressModel renders run phases from an initializer progress channel.
type ProgressModel struct {
	spinner spinner.Model
	bar     progress.Model
	updates <-chan setup.InitProgress
	current setup.InitProgress
	done    bool
	styles  Styles
}

// NewProgressModel creates a model reading from updates until the run
// completes, fails, or the channel is closed.
func NewProgressModel(updates <-chan setup.InitProgress, styles Styles) ProgressModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styles.Title
	return ProgressModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		updates: updates,
		current: setup.InitProgress{Phase: "start", Message: "Starting..."},
		styles:  styles,
	}
}

// waitForProgress listens for the next progress update
func (m ProgressModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		p, ok := <-m.updates
		if !ok {
			return progressDoneMsg{}
		}
		return progressMsg(p)
	}
}

// Init starts the spinner and the channel listener.
func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update handles messages.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.current = setup.InitProgress(msg)
		if m.current.IsError || m.current.Phase == "complete" {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForProgress()

	case progressDoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current phase. Nothing is left on screen once done; the
// report is printed afterwards.
func (m ProgressModel) View() string {
	if m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.current.Message))
	sb.WriteString(m.bar.ViewAs(m.current.Percent))
	sb.WriteString("\n")
	return sb.String()
}

// Current returns the last progress update received.
func (m ProgressModel) Current() setup.InitProgress {
	return m.current
}

// Done reports whether the run has finished.
func (m ProgressModel) Done() bool {
	return m.done
}

// RunProgress displays updates on w until the channel is closed or a final
// update arrives. It blocks; callers run it in a goroutine.
func RunProgress(w io.Writer, updates <-chan setup.InitProgress, styles Styles) error {
	p := tea.NewProgram(NewProgressModel(updates, styles),
		tea.WithOutput(w),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	_, err := p.Run()
	return err
}
