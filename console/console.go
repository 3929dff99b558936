package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Out and Err receive every message printed by this package.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// QuietMode suppresses progress messages. Errors and warnings are
// always shown.
var QuietMode = false

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// StyleError formats failure messages (Red).
func StyleError(msg string) string { return red(msg) }

// StyleSuccess formats success messages (Green).
func StyleSuccess(msg string) string { return green(msg) }

// StyleAction formats operations in progress (Yellow).
func StyleAction(msg string) string { return yellow(msg) }

// StyleTitle ...
func StyleTitle(title string) string { return bold(cyan(title)) }

// PrintTitle prints a heading, e.g. the name of the experiment
// the following messages refer to.
func PrintTitle(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	fmt.Fprintln(Out, StyleTitle(fmt.Sprintf(format, a...)))
}

// PrintAction prints the name of an operation being started,
// e.g. "Submitting ocean model".
func PrintAction(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	fmt.Fprintln(Out, StyleAction(fmt.Sprintf(format, a...)))
}

// PrintSuccess ...
func PrintSuccess(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	fmt.Fprintln(Out, StyleSuccess(fmt.Sprintf(format, a...)))
}

// PrintMessage prints a plain progress line.
func PrintMessage(format string, a ...interface{}) {
	if QuietMode {
		return
	}
	fmt.Fprintf(Out, format+"\n", a...)
}

// PrintWarning prints a warning to Err.
func PrintWarning(format string, a ...interface{}) {
	fmt.Fprintf(Err, "%s %s\n", StyleAction("[WARN]"), fmt.Sprintf(format, a...))
}

// PrintError prints an error message in red to Err.
func PrintError(format string, a ...interface{}) {
	fmt.Fprintln(Err, StyleError(fmt.Sprintf(format, a...)))
}
