package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
	StyleStep
)

type Console struct {
	out       io.Writer
	errOut    io.Writer
	useColors bool
	styles    map[ConsoleStyle]*color.Color
}

func NewConsole() *Console {
	return NewConsoleWithWriters(os.Stdout, os.Stderr, isTerminal())
}

// NewConsoleWithWriters builds a console over arbitrary writers, mainly for tests and dry runs.
func NewConsoleWithWriters(out, errOut io.Writer, useColors bool) *Console {
	styles := map[ConsoleStyle]*color.Color{
		StyleError:   color.New(color.FgRed, color.Bold),
		StyleWarning: color.New(color.FgYellow),
		StyleSuccess: color.New(color.FgGreen),
		StyleInfo:    color.New(color.FgBlue),
		StyleStep:    color.New(color.FgCyan, color.Bold),
	}
	for _, c := range styles {
		if useColors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return &Console{
		out:       out,
		errOut:    errOut,
		useColors: useColors,
		styles:    styles,
	}
}

func isTerminal() bool {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// Out is the writer used for regular progress output.
func (c *Console) Out() io.Writer {
	return c.out
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	styleColor, ok := c.styles[style]
	if !ok || !c.useColors {
		return message
	}
	return styleColor.Sprint(message)
}

func (c *Console) PrintError(message string) {
	fmt.Fprintf(c.errOut, "%s\n", c.formatMessage(StyleError, "Error: "+message))
}

func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(c.errOut, "%s\n", c.formatMessage(StyleWarning, "Warning: "+message))
}

func (c *Console) PrintSuccess(message string) {
	fmt.Fprintf(c.out, "%s\n", c.formatMessage(StyleSuccess, message))
}

func (c *Console) PrintInfo(message string) {
	fmt.Fprintf(c.out, "%s\n", c.formatMessage(StyleInfo, message))
}

// PrintStep announces a workflow step as "[n/total] description".
func (c *Console) PrintStep(number, total int, description string) {
	fmt.Fprintf(c.out, "%s\n", c.formatMessage(StyleStep, fmt.Sprintf("[%d/%d] %s", number, total, description)))
}

// Println writes an unstyled line.
func (c *Console) Println(message string) {
	fmt.Fprintln(c.out, message)
}

func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var parts []string

	if context != "" {
		parts = append(parts, context)
	}

	if cause != "" {
		parts = append(parts, fmt.Sprintf("Cause: %s", cause))
	}

	if suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", suggestion))
	}

	return strings.Join(parts, "\n")
}
