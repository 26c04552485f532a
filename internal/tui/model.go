package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgzap/internal/processor"
)

// Model renders batch progress from a stream of processor updates. It
// quits when the stream is closed. Ctrl+C cancels the batch but the model
// keeps draining updates until the producer closes the stream.
type Model struct {
	updates   <-chan processor.ProgressUpdate
	cancel    func()
	stopping  bool
	started   time.Time
	width     int
	total     int
	converted int
	failed    int
	skipped   int
	current   string
	quitting  bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

func NewModel(updates <-chan processor.ProgressUpdate) Model {
	return Model{updates: updates, started: time.Now()}
}

// WithCancel sets the function called when the user presses Ctrl+C.
func (m Model) WithCancel(cancel func()) Model {
	m.cancel = cancel
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.converted += msg.ConvertedDelta
		m.failed += msg.FailedDelta
		m.skipped += msg.SkippedDelta
		if msg.Current != "" {
			m.current = msg.Current
		}
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.stopping {
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

// Done is the number of finished jobs, successful or not.
func (m Model) Done() int {
	return m.converted + m.failed
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1, float64(m.Done())/float64(m.total))
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	counts := labelStyle.Render(fmt.Sprintf("Jobs: %d/%d", m.Done(), m.total)) +
		dimStyle.Render(fmt.Sprintf("  skipped:%d", m.skipped))
	if m.failed > 0 {
		counts += warnStyle.Render(fmt.Sprintf("  failed:%d", m.failed))
	}

	title := titleStyle.Render("imgzap")
	if m.stopping {
		title += warnStyle.Render("  stopping after running jobs...")
	}

	lines := []string{
		title,
		counts,
		dimStyle.Render(fmt.Sprintf("Last: %s", filepath.Base(m.current))),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(renderBar(barWidth, ratio)),
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
