// Package output provides formatted terminal output for gantry operations.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eugenetaranov/gantry/internal/platform"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Output handles formatted output.
type Output struct {
	w        io.Writer
	useColor bool
	debug    bool
}

// New creates a new output handler.
func New(w io.Writer) *Output {
	return &Output{
		w:        w,
		useColor: true,
	}
}

// SetColor enables or disables color output.
func (o *Output) SetColor(enabled bool) {
	o.useColor = enabled
}

// SetDebug enables or disables debug output.
func (o *Output) SetDebug(enabled bool) {
	o.debug = enabled
}

// color returns the string wrapped in color codes if enabled.
func (o *Output) color(c, s string) string {
	if !o.useColor {
		return s
	}
	return c + s + colorReset
}

// Target prints the target banner for an operation.
func (o *Output) Target(name, description string) {
	o.printf("%s %s %s\n", o.color(colorBold, "TARGET"), name,
		o.color(colorGray, description))
}

// CommandResult prints the outcome of a shell command.
func (o *Output) CommandResult(cmd *platform.ShellCommand, elapsed time.Duration) {
	indicator := "✓"
	statusColor := colorGreen
	if cmd.Status() != 0 {
		indicator = "✗"
		statusColor = colorRed
	}

	status := fmt.Sprintf("exit=%d", cmd.Status())
	if cmd.Signal() != 0 {
		status = fmt.Sprintf("signal=%d", cmd.Signal())
	}

	o.printf("%s %s %s %s\n",
		o.color(statusColor, indicator),
		cmd.Command(),
		o.color(statusColor, status),
		o.color(colorGray, fmt.Sprintf("(%.2fs)", elapsed.Seconds())))

	if out := strings.TrimRight(cmd.Output(), "\n"); out != "" {
		for _, line := range strings.Split(out, "\n") {
			o.printf("  %s\n", line)
		}
	}
}

// Transfer prints the outcome of a file transfer.
func (o *Output) Transfer(verb, src, dst string, err error) {
	if err != nil {
		o.printf("%s %s %s → %s: %v\n", o.color(colorRed, "✗"), verb, src, dst, err)
		return
	}
	o.printf("%s %s %s → %s\n", o.color(colorGreen, "✓"), verb, src, dst)
}

// Permissions prints the permission bits of a remote path.
func (o *Output) Permissions(path string, bits uint32) {
	o.printf("%s %o\n", path, bits)
}

// Launched prints a launched process.
func (o *Output) Launched(path string, pid int) {
	o.printf("%s launched %s %s\n", o.color(colorGreen, "✓"), path,
		o.color(colorGray, fmt.Sprintf("pid=%d", pid)))
}

// InfoTable prints aligned key/value rows. Empty values are skipped.
func (o *Output) InfoTable(rows [][2]string) {
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		o.printf("%s %s\n",
			o.color(colorCyan, fmt.Sprintf("%-*s", width, row[0])),
			row[1])
	}
}

// Section prints a section header.
func (o *Output) Section(name string) {
	o.printf("\n%s\n", o.color(colorBold, name))
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorBlue, "INFO"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorYellow, "WARN"), fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorRed, "ERROR"), fmt.Sprintf(format, args...))
}

// Debug prints a debug message (only in debug mode).
func (o *Output) Debug(format string, args ...any) {
	if o.debug {
		o.printf("%s %s\n", o.color(colorGray, "DEBUG"), fmt.Sprintf(format, args...))
	}
}

func (o *Output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}
