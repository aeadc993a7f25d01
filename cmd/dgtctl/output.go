package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// field is one labelled line of text output.
type field struct {
	Key   string
	Value string
}

// formatDoc renders v as json or yaml, or fields as aligned text.
func formatDoc(format string, v any, fields []field) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return formatFields(fields), nil
	}
}

func formatFields(fields []field) string {
	width := 0
	for _, f := range fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	var b strings.Builder
	for _, f := range fields {
		value := f.Value
		if value == "" {
			value = noteStyle.Render("-")
		} else {
			value = valueStyle.Render(value)
		}
		fmt.Fprintf(&b, "%s  %s\n", keyStyle.Render(fmt.Sprintf("%-*s", width, f.Key)), value)
	}
	return b.String()
}
