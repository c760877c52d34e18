package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type statusStyle struct {
	label  string
	colors text.Colors
}

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {label: "INFO", colors: text.Colors{text.FgBlue}},
	statusOK:    {label: "OK", colors: text.Colors{text.FgGreen}},
	statusWarn:  {label: "WARN", colors: text.Colors{text.FgYellow}},
	statusError: {label: "ERROR", colors: text.Colors{text.FgRed, text.Bold}},
}

const statusLabelWidth = 22

// renderStatusLine formats "  Label:   [KIND] message", padded so messages
// line up across a section.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %-*s [%s]", statusLabelWidth, label+":", style.label)
	if message != "" {
		b.WriteString(" ")
		b.WriteString(message)
	}
	if colorize {
		return style.colors.Sprint(b.String())
	}
	return b.String()
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	if colorize {
		line = text.Colors{text.FgCyan, text.Bold}.Sprint(line)
	}
	return []string{line}
}

func shouldColorize(writer io.Writer) bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
