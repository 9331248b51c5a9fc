package analytics

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	window   lipgloss.Style
	key      lipgloss.Style
	value    lipgloss.Style
	detail   lipgloss.Style
	warning  lipgloss.Style
	critical lipgloss.Style
	ok       lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		window:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		ok:       lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
	}
}
