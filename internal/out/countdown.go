package out

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type countdownTickMsg time.Time

type countdownModel struct {
	spinner spinner.Model
	end     time.Time
	done    bool
}

func newCountdownModel(end time.Time) countdownModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)
	return countdownModel{spinner: s, end: end}
}

func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return countdownTickMsg(t)
	})
}

func (m countdownModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, countdownTick())
}

func (m countdownModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case countdownTickMsg:
		if !time.Time(msg).Before(m.end) {
			m.done = true
			return m, tea.Quit
		}
		return m, countdownTick()
	default:
		return m, nil
	}
}

func (m countdownModel) View() string {
	if m.done {
		return ""
	}
	remaining := time.Until(m.end)
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining.Seconds())
	return fmt.Sprintf("%s Next cycle in %02d:%02d:%02d", m.spinner.View(), total/3600, total%3600/60, total%60)
}

// RunCountdown blocks for d, showing a live countdown when w is a terminal
// and falling back to a plain context-aware sleep otherwise.
func RunCountdown(ctx context.Context, w io.Writer, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if !isTerminal(w) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	p := tea.NewProgram(
		newCountdownModel(time.Now().Add(d)),
		tea.WithInput(nil),
		tea.WithOutput(w),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
