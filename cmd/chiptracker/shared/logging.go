package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// SetupLogger configures a charmbracelet logger writing to stderr
func SetupLogger(level string, noColor bool) (*log.Logger, error) {
	return NewLogger(os.Stderr, level, noColor)
}

// NewLogger builds the root logger. Components derive their own with
// WithPrefix.
func NewLogger(w io.Writer, level string, noColor bool) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	logger.SetStyles(logStyles())
	if noColor {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger, nil
}

func logStyles() *log.Styles {
	styles := log.DefaultStyles()
	styles.Prefix = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("9"))
	styles.Keys["room"] = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styles.Values["room"] = lipgloss.NewStyle().Bold(true)
	return styles
}
