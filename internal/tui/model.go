package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"gamebook/app/internal/gamebook"
)

// Navigator is the reading session the terminal player drives.
type Navigator interface {
	Start(ctx context.Context) (gamebook.Scene, error)
	Follow(ctx context.Context, linkID int64) (gamebook.Scene, error)
	Restart(ctx context.Context) (gamebook.Scene, error)
}

const maxChoiceKeys = 9

type sceneMsg struct {
	scene gamebook.Scene
}

type errMsg struct {
	err error
}

type model struct {
	ctx    context.Context
	nav    Navigator
	logger *logrus.Logger

	scene    gamebook.Scene
	hasScene bool
	loading  bool
	status   string
	failed   bool

	theme  string
	styles styles

	width        int
	rendered     string
	renderedFor  int64
	renderedWrap int
}

func newModel(ctx context.Context, nav Navigator, theme string, logger *logrus.Logger) model {
	if _, ok := palettes[theme]; !ok {
		theme = DefaultTheme
	}
	return model{
		ctx:     ctx,
		nav:     nav,
		logger:  logger,
		loading: true,
		theme:   theme,
		styles:  stylesFor(theme),
		width:   80,
	}
}

func (m model) Init() tea.Cmd {
	return m.startCmd()
}

func (m model) startCmd() tea.Cmd {
	return func() tea.Msg {
		scene, err := m.nav.Start(m.ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return sceneMsg{scene: scene}
	}
}

func (m model) restartCmd() tea.Cmd {
	return func() tea.Msg {
		scene, err := m.nav.Restart(m.ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return sceneMsg{scene: scene}
	}
}

func (m model) followCmd(linkID int64) tea.Cmd {
	return func() tea.Msg {
		scene, err := m.nav.Follow(m.ctx, linkID)
		if err != nil {
			return errMsg{err: err}
		}
		return sceneMsg{scene: scene}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.rerender()
		return m, nil
	case sceneMsg:
		m.scene = msg.scene
		m.hasScene = true
		m.loading = false
		m.failed = false
		m.status = ""
		m.rerender()
		return m, nil
	case errMsg:
		m.loading = false
		m.failed = true
		m.status = describeError(msg.err)
		if m.logger != nil {
			m.logger.WithField("error", msg.err.Error()).WithField("component", "tui").Warn("player action failed")
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.loading = true
		m.status = "Restarting..."
		return m, m.restartCmd()
	case "t":
		m.theme = nextThemeName(m.theme)
		m.styles = stylesFor(m.theme)
		m.status = "Theme: " + m.theme
		return m, nil
	}

	if len(key) != 1 || key[0] < '1' || key[0] > '9' || m.loading || !m.hasScene {
		return m, nil
	}

	index := int(key[0] - '1')
	if index >= len(m.scene.Choices) {
		m.failed = true
		m.status = fmt.Sprintf("There is no choice %s on this page.", key)
		return m, nil
	}

	m.loading = true
	m.status = ""
	return m, m.followCmd(m.scene.Choices[index].LinkID)
}

func (m *model) rerender() {
	if !m.hasScene {
		return
	}

	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	if m.renderedFor == m.scene.PageID && m.renderedWrap == wrap && m.rendered != "" {
		return
	}

	m.rendered = renderBody(m.scene.Body, wrap)
	m.renderedFor = m.scene.PageID
	m.renderedWrap = wrap
}

// renderBody renders page text as Markdown, falling back to the raw text.
func renderBody(body string, wrap int) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
	if err != nil {
		return body
	}
	rendered, err := renderer.Render(body)
	if err != nil {
		return body
	}
	return strings.Trim(rendered, "\n")
}

func describeError(err error) string {
	switch {
	case eris.Is(err, gamebook.ErrNoPages):
		return "This gamebook has no pages yet. Add some with the editor first."
	case eris.Is(err, gamebook.ErrPageNotFound):
		return "That choice leads to a page that no longer exists."
	case eris.Is(err, gamebook.ErrLinkNotFound):
		return "That choice is no longer available."
	default:
		return "Something went wrong: " + eris.Cause(err).Error()
	}
}

func (m model) View() string {
	var b strings.Builder

	if !m.hasScene {
		b.WriteString(m.styles.title.Render("Gamebook") + "\n\n")
		if m.loading {
			b.WriteString(m.styles.status.Render("Loading...") + "\n")
		}
		if m.status != "" {
			b.WriteString(m.styles.err.Render(m.status) + "\n")
		}
		b.WriteString("\n" + m.styles.help.Render("q quit"))
		return b.String()
	}

	b.WriteString(m.styles.title.Render(fmt.Sprintf("Page %d", m.scene.PageID)) + "\n\n")
	if m.rendered != "" {
		b.WriteString(m.rendered + "\n\n")
	}

	if m.scene.IsEnding {
		b.WriteString(m.styles.ending.Render("The End") + "\n\n")
	}

	for i, choice := range m.scene.Choices {
		if i >= maxChoiceKeys {
			b.WriteString(m.styles.status.Render(fmt.Sprintf("(%d more choices not shown)", len(m.scene.Choices)-maxChoiceKeys)) + "\n")
			break
		}
		b.WriteString(m.styles.index.Render(fmt.Sprintf("%d.", i+1)) + " " + m.styles.choice.Render(choice.Label) + "\n")
	}

	divider := strings.Repeat("─", max(10, min(m.width, 60)))
	b.WriteString("\n" + m.styles.divider.Render(divider) + "\n")

	if m.status != "" {
		style := m.styles.status
		if m.failed {
			style = m.styles.err
		}
		b.WriteString(style.Render(m.status) + "\n")
	}

	b.WriteString(m.styles.help.Render(m.helpLine()))
	return b.String()
}

func (m model) helpLine() string {
	parts := make([]string, 0, 4)
	if n := min(len(m.scene.Choices), maxChoiceKeys); n > 0 {
		parts = append(parts, fmt.Sprintf("1-%d choose", n))
	}
	if m.scene.IsEnding || len(m.scene.Choices) == 0 {
		parts = append(parts, "r restart")
	}
	parts = append(parts, "t theme", "q quit")
	return strings.Join(parts, " • ")
}
