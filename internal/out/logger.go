package out

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	banner  lipgloss.Style
	rule    lipgloss.Style
	addr    lipgloss.Style
	dim     lipgloss.Style
}

func newStyles() styles {
	return styles{
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		fail:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		banner:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		rule:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		addr:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		dim:     lipgloss.NewStyle().Faint(true),
	}
}

// Logger renders human-readable status lines tagged with account context.
// It is safe for concurrent use by all workflow goroutines.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
	now    func() time.Time
}

func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w, styles: newStyles(), now: time.Now}
}

// Short truncates an address for log lines.
func Short(addr string) string {
	if len(addr) <= 6 {
		return addr
	}
	return addr[:6]
}

func (l *Logger) Info(addr, format string, args ...any) {
	l.line(l.styles.info, addr, format, args...)
}

func (l *Logger) Success(addr, format string, args ...any) {
	l.line(l.styles.success, addr, format, args...)
}

func (l *Logger) Warn(addr, format string, args ...any) {
	l.line(l.styles.warn, addr, format, args...)
}

func (l *Logger) Fail(addr, format string, args ...any) {
	l.line(l.styles.fail, addr, format, args...)
}

func (l *Logger) Dim(addr, format string, args ...any) {
	l.line(l.styles.dim, addr, format, args...)
}

// Banner prints a prominent standalone line with no account context.
func (l *Logger) Banner(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, l.styles.banner.Render(fmt.Sprintf(format, args...)))
}

// Rule prints a section divider.
func (l *Logger) Rule(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	title := fmt.Sprintf(format, args...)
	fmt.Fprintln(l.w, l.styles.rule.Render(strings.Repeat("─", 8)+" "+title+" "+strings.Repeat("─", 8)))
}

func (l *Logger) line(style lipgloss.Style, addr, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stamp := l.now().Format("15:04:05")
	prefix := stamp
	if addr != "" {
		prefix = fmt.Sprintf("%s (%s)", stamp, l.styles.addr.Render(Short(addr)))
	}
	fmt.Fprintln(l.w, prefix+" "+style.Render(fmt.Sprintf(format, args...)))
}
