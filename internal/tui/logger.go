package tui

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/corewave/dataflow/internal/logging"
)

// LogMsg is sent to the board's program whenever a log line is captured
// from internal/logging's human-readable output (the format Logger.log
// produces when JSON mode is off: "<timestamp> [cycle] [LEVEL] msg").
// Level is recovered from that bracketed tag so the board can color a
// warning or error line differently from routine info output.
type LogMsg struct {
	Timestamp time.Time
	Level     logging.Level
	Message   string
}

// LogWriter is an io.Writer that captures a *logging.Logger's output and
// forwards each line to a running Bubble Tea program as a LogMsg,
// instead of letting it tear through the board's alt-screen.
type LogWriter struct {
	program *tea.Program
	mu      sync.Mutex
}

// NewLogWriter returns a LogWriter that forwards captured lines to program.
func NewLogWriter(program *tea.Program) *LogWriter {
	return &LogWriter{program: program}
}

// Write implements io.Writer.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := strings.TrimSpace(string(p))
	if msg != "" && w.program != nil {
		w.program.Send(LogMsg{
			Timestamp: time.Now(),
			Level:     parseLevelTag(msg),
			Message:   msg,
		})
	}

	return len(p), nil
}

// parseLevelTag recovers the bracketed level tag internal/logging
// writes ("[INFO]", "[WARN]", "[ERROR]") from a captured line, defaulting
// to LevelInfo if none is found (e.g. a line from a writer other than
// internal/logging).
func parseLevelTag(line string) logging.Level {
	switch {
	case strings.Contains(line, "[ERROR]"):
		return logging.LevelError
	case strings.Contains(line, "[WARN]"):
		return logging.LevelWarn
	default:
		return logging.LevelInfo
	}
}
