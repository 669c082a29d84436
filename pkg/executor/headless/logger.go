package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/surfer/pkg/types"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows step and action progress (default)
	LogLevelNormal
	// LogLevelVerbose adds model goals and LLM call details
	LogLevelVerbose
	// LogLevelDebug shows raw step outputs
	LogLevelDebug
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	styleSection = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("217"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Logger renders run progress for a terminal or CI log
type Logger struct {
	level  LogLevel
	writer io.Writer
}

// NewLogger creates a new logger with the specified level writing to stdout
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(level, os.Stdout)
}

// NewLoggerTo creates a logger writing to w
func NewLoggerTo(level LogLevel, w io.Writer) *Logger {
	return &Logger{level: level, writer: w}
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		rule := strings.Repeat("=", 70)
		fmt.Fprintf(l.writer, "\n%s\n%s\n%s\n", styleHeader.Render(rule), styleHeader.Render("  "+message), styleHeader.Render(rule))
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintln(l.writer, styleSection.Render("▶ "+title))
		fmt.Fprintln(l.writer, styleMuted.Render(strings.Repeat("─", 50)))
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer, styleSuccess.Render("✓ "+fmt.Sprintf(format, args...)))
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer, styleInfo.Render(fmt.Sprintf(format, args...)))
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, styleWarning.Render("⚠ Warning: "+fmt.Sprintf(format, args...)))
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, styleError.Render("✗ Error: "+fmt.Sprintf(format, args...)))
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		fmt.Fprintln(l.writer, styleMuted.Render("→ "+fmt.Sprintf(format, args...)))
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		fmt.Fprintln(l.writer, styleMuted.Render("[DEBUG] "+fmt.Sprintf(format, args...)))
	}
}

// Event renders one agent event.
func (l *Logger) Event(ev *types.AgentEvent) {
	switch ev.Type {
	case types.EventTypeStepStart:
		if l.level >= LogLevelNormal {
			fmt.Fprintln(l.writer, styleSection.Render(fmt.Sprintf("\n[%d] step", ev.Step+1)))
		}
	case types.EventTypeAPICallStart:
		l.Verbosef("calling model (%v messages, %v context tokens)", ev.Metadata["messages"], ev.Metadata["context_tokens"])
	case types.EventTypeStepOutput:
		l.Debugf("%s", ev.Content)
	case types.EventTypeActionResult:
		l.ActionResult(ev.Action, ev.Success, ev.Content)
	case types.EventTypeValidation:
		if ev.Success {
			l.Successf("completion accepted: %s", ev.Content)
		} else {
			l.Warningf("completion rejected: %s", ev.Content)
		}
	case types.EventTypeTokenUsage:
		if ev.TokenUsage != nil {
			l.Verbosef("tokens: %d prompt, %d completion", ev.TokenUsage.PromptTokens, ev.TokenUsage.CompletionTokens)
		}
	case types.EventTypeError:
		if ev.Error != nil {
			l.Errorf("%v", ev.Error)
		}
	}
}

// ActionResult logs an executed action with formatting based on verbosity
func (l *Logger) ActionResult(action string, success bool, line string) {
	switch l.level {
	case LogLevelQuiet:
	case LogLevelNormal:
		if success {
			fmt.Fprintln(l.writer, styleMuted.Render("  • "+action))
		} else {
			fmt.Fprintln(l.writer, styleWarning.Render("  ✗ "+action))
		}
	case LogLevelVerbose, LogLevelDebug:
		if success {
			fmt.Fprintln(l.writer, styleSection.Render("  • "+line))
		} else {
			fmt.Fprintln(l.writer, styleWarning.Render("  ✗ "+line))
		}
	}
}

// Summary prints a final run summary
func (l *Logger) Summary(summary *RunSummary) {
	l.printSummaryHeader()
	l.printStatus(summary.Status)
	l.printTaskAndDuration(summary)
	l.printAnswer(summary)
	l.printMetrics(summary)
	l.printError(summary)
	l.printSummaryFooter()
}

func (l *Logger) printSummaryHeader() {
	fmt.Fprintln(l.writer)
	fmt.Fprintln(l.writer, styleHeader.Render(strings.Repeat("=", 70)))
	fmt.Fprintln(l.writer, styleHeader.Render("  RUN SUMMARY"))
	fmt.Fprintln(l.writer, styleHeader.Render(strings.Repeat("=", 70)))
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case StatusSuccess:
		fmt.Fprintln(l.writer, styleSuccess.Render("✓ SUCCESS"))
	case StatusFailed:
		fmt.Fprintln(l.writer, styleError.Render("✗ FAILED"))
	case StatusError:
		fmt.Fprintln(l.writer, styleError.Render("✗ ERROR"))
	default:
		fmt.Fprintln(l.writer, status)
	}
}

func (l *Logger) printTaskAndDuration(summary *RunSummary) {
	fmt.Fprintf(l.writer, "  Task: %s\n", summary.Task)
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Second))
}

func (l *Logger) printAnswer(summary *RunSummary) {
	if summary.Answer == "" {
		return
	}
	fmt.Fprintf(l.writer, "  Answer: %s\n", summary.Answer)
}

func (l *Logger) printMetrics(summary *RunSummary) {
	m := summary.Metrics
	if m.Steps == 0 && m.TokensUsed == 0 {
		return
	}

	fmt.Fprintf(l.writer, "\n  📊 Metrics:\n")
	fmt.Fprintf(l.writer, "    Steps: %d\n", m.Steps)
	fmt.Fprintf(l.writer, "    Actions: %d (%d failed)\n", m.Actions, m.FailedActions)
	if m.TokensUsed > 0 {
		fmt.Fprintf(l.writer, "    Tokens used: %s\n", formatNumber(m.TokensUsed))
	}
}

func (l *Logger) printError(summary *RunSummary) {
	if summary.Error == "" {
		return
	}

	fmt.Fprintln(l.writer)
	fmt.Fprintln(l.writer, styleError.Render("  Error Details:"))
	fmt.Fprintln(l.writer, styleError.Render("    "+summary.Error))
}

func (l *Logger) printSummaryFooter() {
	fmt.Fprintln(l.writer, styleHeader.Render(strings.Repeat("=", 70)))
	fmt.Fprintln(l.writer)
}

// ParseLogLevel converts a string log level to LogLevel type
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
