package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avoronov/ringlog/internal/collect"
)

// Model is the bubbletea model for the live collector dashboard.
type Model struct {
	fetch    StatusFunc
	target   string
	interval time.Duration

	// snapshots
	prev     collect.Status
	curr     collect.Status
	lastTick time.Time
	fetchErr error

	// computed rates
	capturesPerSec float64
	drainedPerSec  float64

	// terminal size
	width  int
	height int

	// quit signal
	quitting bool
}

type tickMsg time.Time

type statusMsg struct {
	status collect.Status
	at     time.Time
	err    error
}

// NewModel creates a dashboard model polling fetch every interval.
func NewModel(fetch StatusFunc, target string, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{
		fetch:    fetch,
		target:   target,
		interval: interval,
		width:    80,
		height:   24,
	}
}

// Init triggers the first poll immediately.
func (m Model) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m Model) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := fetch(ctx)
		return statusMsg{status: st, at: time.Now(), err: err}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.fetchCmd()

	case statusMsg:
		if msg.err != nil {
			m.fetchErr = msg.err
			return m, m.tickCmd()
		}
		m.fetchErr = nil
		m.prev = m.curr
		m.curr = msg.status

		if !m.lastTick.IsZero() {
			elapsed := msg.at.Sub(m.lastTick).Seconds()
			if elapsed > 0 {
				m.capturesPerSec = float64(m.curr.Counters.Captured-m.prev.Counters.Captured) / elapsed
				m.drainedPerSec = float64(m.curr.Counters.Drained-m.prev.Counters.Drained) / elapsed
			}
		}
		m.lastTick = msg.at
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := headerStyle.Render(fmt.Sprintf("ringlog watch | %s | min level %s", m.target, m.curr.MinLevel))
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.fetchErr != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf(" UNREACHABLE: %v", m.fetchErr)))
		b.WriteString("\n\n")
	}

	b.WriteString(labelStyle.Render(" Buffer:       "))
	b.WriteString(fmt.Sprintf("%s / %s\n", formatBytes(int64(m.curr.UsedBytes)), formatBytes(int64(m.curr.CapacityBytes))))
	b.WriteString(labelStyle.Render(" Occupancy:    "))
	b.WriteString(m.renderGauge())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(" Captures/sec: "))
	b.WriteString(fmt.Sprintf("%s\n", formatRate(m.capturesPerSec)))
	b.WriteString(labelStyle.Render(" Drained/sec:  "))
	b.WriteString(fmt.Sprintf("%s\n", formatRate(m.drainedPerSec)))
	b.WriteString(labelStyle.Render(" Rejected:     "))
	if m.curr.Counters.Rejected > 0 {
		b.WriteString(rejectedStyle.Render(fmt.Sprintf("%d", m.curr.Counters.Rejected)))
	} else {
		b.WriteString("0")
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(" Truncated:    "))
	b.WriteString(fmt.Sprintf("%d\n", m.curr.Counters.Truncated))
	b.WriteString(labelStyle.Render(" Drains:       "))
	b.WriteString(fmt.Sprintf("%d\n", m.curr.Counters.Drains))
	b.WriteString(labelStyle.Render(" Resets:       "))
	b.WriteString(fmt.Sprintf("%d\n", m.curr.Counters.Resets))

	b.WriteString(sepStyle.Render(strings.Repeat("-", m.width)))
	b.WriteString("\n")
	b.WriteString(m.renderLevels())

	return b.String()
}

func (m Model) renderGauge() string {
	const slots = 30
	filled := 0
	if m.curr.CapacityBytes > 0 {
		filled = m.curr.UsedBytes * slots / m.curr.CapacityBytes
	}
	if filled > slots {
		filled = slots
	}
	pct := 0.0
	if m.curr.CapacityBytes > 0 {
		pct = float64(m.curr.UsedBytes) / float64(m.curr.CapacityBytes) * 100
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", slots-filled)
	if pct >= 90 {
		return fmt.Sprintf("[%s] %s", gaugeHotStyle.Render(bar), gaugeHotStyle.Render(fmt.Sprintf("%.0f%%", pct)))
	}
	return fmt.Sprintf("[%s] %.0f%%", bar, pct)
}

func (m Model) renderLevels() string {
	var b strings.Builder
	b.WriteString(boldStyle.Render("Captures by level"))
	b.WriteString("\n")
	limit := 8
	if len(m.curr.Counters.ByLevel) < limit {
		limit = len(m.curr.Counters.ByLevel)
	}
	if limit == 0 {
		b.WriteString(labelStyle.Render(" (none yet)"))
		b.WriteString("\n")
		return b.String()
	}
	for i := 0; i < limit; i++ {
		lc := m.curr.Counters.ByLevel[i]
		b.WriteString(fmt.Sprintf(" %-10s %d\n", lc.Level, lc.Count))
	}
	return b.String()
}

// styles
var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Faint(true)
	boldStyle     = lipgloss.NewStyle().Bold(true)
	sepStyle      = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Background(lipgloss.Color("196")).Foreground(lipgloss.Color("15")).Padding(0, 1)
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeHotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// helpers

func formatRate(r float64) string {
	switch {
	case r >= 1_000_000:
		return fmt.Sprintf("%.1fM", r/1_000_000)
	case r >= 1_000:
		return fmt.Sprintf("%.1fK", r/1_000)
	default:
		return fmt.Sprintf("%.0f", r)
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.1f TB", float64(b)/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
