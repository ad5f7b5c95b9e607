package tui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Accent    lipgloss.Color
	AccentAlt lipgloss.Color
	Border    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
}

// DefaultTheme is used when the configured theme is unknown.
const DefaultTheme = "catppuccin"

var palettes = map[string]palette{
	"catppuccin": {
		Text:      lipgloss.Color("#cdd6f4"),
		Muted:     lipgloss.Color("#a6adc8"),
		Accent:    lipgloss.Color("#cba6f7"),
		AccentAlt: lipgloss.Color("#f38ba8"),
		Border:    lipgloss.Color("#585b70"),
		Success:   lipgloss.Color("#94e2d5"),
		Warning:   lipgloss.Color("#f9e2af"),
	},
	"dracula": {
		Text:      lipgloss.Color("#f8f8f2"),
		Muted:     lipgloss.Color("#6272a4"),
		Accent:    lipgloss.Color("#ff79c6"),
		AccentAlt: lipgloss.Color("#bd93f9"),
		Border:    lipgloss.Color("#44475a"),
		Success:   lipgloss.Color("#50fa7b"),
		Warning:   lipgloss.Color("#f1fa8c"),
	},
	"gruvbox": {
		Text:      lipgloss.Color("#ebdbb2"),
		Muted:     lipgloss.Color("#a89984"),
		Accent:    lipgloss.Color("#fabd2f"),
		AccentAlt: lipgloss.Color("#d3869b"),
		Border:    lipgloss.Color("#665c54"),
		Success:   lipgloss.Color("#b8bb26"),
		Warning:   lipgloss.Color("#fe8019"),
	},
	"solarized_dark": {
		Text:      lipgloss.Color("#fdf6e3"),
		Muted:     lipgloss.Color("#93a1a1"),
		Accent:    lipgloss.Color("#b58900"),
		AccentAlt: lipgloss.Color("#268bd2"),
		Border:    lipgloss.Color("#586e75"),
		Success:   lipgloss.Color("#859900"),
		Warning:   lipgloss.Color("#cb4b16"),
	},
}

type styles struct {
	title   lipgloss.Style
	body    lipgloss.Style
	choice  lipgloss.Style
	index   lipgloss.Style
	ending  lipgloss.Style
	status  lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
	divider lipgloss.Style
}

func stylesFor(name string) styles {
	p := paletteFor(name)
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		body:    lipgloss.NewStyle().Foreground(p.Text),
		choice:  lipgloss.NewStyle().Foreground(p.Text),
		index:   lipgloss.NewStyle().Bold(true).Foreground(p.AccentAlt),
		ending:  lipgloss.NewStyle().Bold(true).Foreground(p.Success),
		status:  lipgloss.NewStyle().Foreground(p.Muted),
		err:     lipgloss.NewStyle().Foreground(p.Warning),
		help:    lipgloss.NewStyle().Foreground(p.Muted).Italic(true),
		divider: lipgloss.NewStyle().Foreground(p.Border),
	}
}

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[DefaultTheme]
}

// ThemeNames lists the available palettes in stable order.
func ThemeNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string) string {
	names := ThemeNames()
	for i, name := range names {
		if name == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}
