// Package tui is cmd/flowctl's presentation layer: it renders the
// live Pending/Ready/Error board as a constraint system solves, and
// carries zero business logic of its own (same split the teacher
// draws between internal/update and internal/tui).
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/corewave/dataflow/internal/events"
	"github.com/corewave/dataflow/internal/logging"
)

// VariableEventMsg is sent to the Bubble Tea program each time a
// variable's state changes. The board's sole source of truth is the
// stream of these messages — it never reads a Component or System
// directly.
type VariableEventMsg events.Event

// variableRow is the board's last-known state for one variable.
type variableRow struct {
	name       string
	generation int64
	kind       events.Kind
	value      string
	cause      string
	updatedAt  time.Time
}

// BoardModel renders every variable of a constraint system as a
// single live-updating board: one row per variable, its current
// Pending/Ready/Error/Ok state, generation and value.
type BoardModel struct {
	rows  map[string]*variableRow
	order []string

	logs    []LogMsg
	maxLogs int

	spin spinner.Model

	width, height int
	quitting      bool
}

// NewBoardModel returns an empty board ready to receive
// VariableEventMsg values as they arrive on the program's event loop.
func NewBoardModel() BoardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorInfo)
	return BoardModel{
		rows:    make(map[string]*variableRow),
		maxLogs: 10,
		spin:    s,
	}
}

func (m BoardModel) Init() tea.Cmd { return m.spin.Tick }

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case VariableEventMsg:
		row, ok := m.rows[msg.VarName]
		if !ok {
			row = &variableRow{name: msg.VarName}
			m.rows[msg.VarName] = row
			m.order = append(m.order, msg.VarName)
		}
		row.generation = msg.Generation
		row.kind = msg.Kind
		row.cause = msg.Err
		row.updatedAt = time.Now()
		if msg.Kind == events.KindReady || msg.Kind == events.KindOk {
			row.value = msg.Value.GoString()
		}

		level := logging.LevelInfo
		if msg.Kind == events.KindError {
			level = logging.LevelWarn
		}
		m.logs = append(m.logs, LogMsg{
			Timestamp: row.updatedAt,
			Level:     level,
			Message:   fmt.Sprintf("%s -> %s (gen %d)", msg.VarName, msg.Kind.String(), msg.Generation),
		})
		if len(m.logs) > m.maxLogs {
			m.logs = m.logs[len(m.logs)-m.maxLogs:]
		}
		return m, nil

	case LogMsg:
		m.logs = append(m.logs, msg)
		if len(m.logs) > m.maxLogs {
			m.logs = m.logs[len(m.logs)-m.maxLogs:]
		}
		return m, nil
	}

	return m, nil
}

func (m BoardModel) View() string {
	var sections []string
	sections = append(sections, TitleStyle.Render("dataflow board"))
	sections = append(sections, m.renderRows())
	if len(m.logs) > 0 {
		sections = append(sections, m.renderLogs())
	}
	sections = append(sections, formatHelp([]KeyBinding{{"q", "quit"}}))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BoardModel) renderRows() string {
	if len(m.order) == 0 {
		return lipgloss.NewStyle().Foreground(ColorMuted).Render("waiting for events...")
	}
	lines := make([]string, 0, len(m.order))
	for _, name := range m.order {
		row := m.rows[name]
		line := formatVariableLine(row.name, row.generation, row.kind, row.value, row.cause)
		if row.kind == events.KindPending {
			line = m.spin.View() + " " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m BoardModel) renderLogs() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(ColorInfo).Render("\nRecent activity:")
	lines := []string{header}
	for _, l := range m.logs {
		lines = append(lines, logLineStyle(l.Level).
			Render(fmt.Sprintf("  [%s] %s", l.Timestamp.Format("15:04:05"), l.Message)))
	}
	return strings.Join(lines, "\n")
}

func logLineStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelError:
		return lipgloss.NewStyle().Foreground(ColorError)
	case logging.LevelWarn:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	}
}
