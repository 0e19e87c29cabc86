// Package tui shows live render progress in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dpfractal/internal/render"
)

var (
	title    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00cccc"))
	label    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	value    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	barFull  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	warn     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	failed   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	hint     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#666688"))
)

const barWidth = 40

type FrameMsg render.Progress

type DoneMsg struct {
	Summary render.Summary
	Err     error
}

type Model struct {
	name      string
	total     int
	progress  render.Progress
	cancel    func()
	canceling bool
	done      bool
	summary   render.Summary
	err       error
}

func NewModel(name string, total int, cancel func()) Model {
	return Model{name: name, total: total, cancel: cancel}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.canceling && m.cancel != nil {
				m.cancel()
			}
			m.canceling = true
		}
	case FrameMsg:
		m.progress = render.Progress(msg)
	case DoneMsg:
		m.done, m.summary, m.err = true, msg.Summary, msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + title.Render(m.name) + "\n\n")

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.progress.Frame) / float64(m.total)
	}
	frac = min(max(frac, 0), 1)
	filled := int(frac * barWidth)
	b.WriteString("  " + barFull.Render(strings.Repeat("█", filled)) +
		barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3.0f%%\n\n", frac*100))

	row := func(k, v string) {
		b.WriteString("  " + label.Render(fmt.Sprintf("%-10s", k)) + value.Render(v) + "\n")
	}
	row("frame", fmt.Sprintf("%d / %d", m.progress.Frame, m.total))
	row("elapsed", m.progress.Elapsed.Round(time.Millisecond).String())
	row("rate", fmt.Sprintf("%.2f fps", rate(m.progress)))
	row("eta", eta(m.progress, m.total).Round(time.Second).String())

	if m.progress.NonFinite > 0 {
		b.WriteString("  " + warn.Render(fmt.Sprintf("%d cells diverged", m.progress.NonFinite)) + "\n")
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString("\n  " + failed.Render("error: "+m.err.Error()) + "\n")
	case m.done:
		b.WriteString("\n  " + value.Render(fmt.Sprintf("done: %d frames", m.summary.Frames)) + "\n")
	case m.canceling:
		b.WriteString("\n  " + warn.Render("stopping after current frame...") + "\n")
	default:
		b.WriteString("\n  " + hint.Render("q to stop") + "\n")
	}
	return b.String()
}

func rate(p render.Progress) float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Frame) / p.Elapsed.Seconds()
}

func eta(p render.Progress, total int) time.Duration {
	if p.Frame == 0 || p.Frame >= total {
		return 0
	}
	per := p.Elapsed / time.Duration(p.Frame)
	return per * time.Duration(total-p.Frame)
}

// Run shows the progress view while job runs in the background. job
// receives a callback that forwards progress to the view. cancel is invoked
// when the user quits; job is expected to return soon after.
func Run(name string, total int, cancel func(), job func(report func(render.Progress)) (render.Summary, error)) (render.Summary, error) {
	p := tea.NewProgram(NewModel(name, total, cancel))

	go func() {
		sum, err := job(func(pr render.Progress) { p.Send(FrameMsg(pr)) })
		p.Send(DoneMsg{Summary: sum, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return render.Summary{}, err
	}
	m := final.(Model)
	return m.summary, m.err
}
