// Package log provides the console output functions used by all commands.
// Log output goes to stderr so that command results on stdout stay
// machine-readable.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/viper"
)

// Output is the stream all log messages are written to. Tests may replace it
// to capture output.
var Output io.Writer = os.Stderr

func logf(style *pterm.Style, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = fmt.Fprint(Output, style.Sprint(msg))
}

// Debugf prints a message which is only relevant when running with the
// verbose flag.
func Debugf(format string, a ...interface{}) {
	if !viper.GetBool("verbose") {
		return
	}
	logf(&pterm.ThemeDefault.DebugMessageStyle, format, a...)
}

func Infof(format string, a ...interface{}) {
	logf(&pterm.ThemeDefault.InfoMessageStyle, format, a...)
}

func Info(a ...interface{}) {
	Infof("%s", fmt.Sprint(a...))
}

func Warnf(format string, a ...interface{}) {
	logf(&pterm.ThemeDefault.WarningMessageStyle, format, a...)
}

func Warn(a ...interface{}) {
	Warnf("%s", fmt.Sprint(a...))
}

func Successf(format string, a ...interface{}) {
	logf(&pterm.ThemeDefault.SuccessMessageStyle, format, a...)
}

func Errorf(format string, a ...interface{}) {
	logf(&pterm.ThemeDefault.ErrorMessageStyle, format, a...)
}

// Error prints an error. With the verbose flag set, errors wrapped via
// github.com/pkg/errors are printed with their stack trace.
func Error(err error) {
	if viper.GetBool("verbose") {
		logf(&pterm.ThemeDefault.ErrorMessageStyle, "%+v", err)
		return
	}
	logf(&pterm.ThemeDefault.ErrorMessageStyle, "%v", err)
}

// Printf prints to the log output without any styling.
func Printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(Output, format, a...)
}

func Print(a ...interface{}) {
	_, _ = fmt.Fprintln(Output, a...)
}
