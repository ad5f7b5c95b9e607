package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"

	"gamebook/app/internal/gamebook"
)

type stubNavigator struct {
	start     gamebook.Scene
	startErr  error
	follow    map[int64]gamebook.Scene
	followErr error
	followed  []int64
	restarts  int
}

func (s *stubNavigator) Start(context.Context) (gamebook.Scene, error) {
	return s.start, s.startErr
}

func (s *stubNavigator) Follow(_ context.Context, linkID int64) (gamebook.Scene, error) {
	s.followed = append(s.followed, linkID)
	if s.followErr != nil {
		return gamebook.Scene{}, s.followErr
	}
	return s.follow[linkID], nil
}

func (s *stubNavigator) Restart(ctx context.Context) (gamebook.Scene, error) {
	s.restarts++
	return s.Start(ctx)
}

func newStubNavigator() *stubNavigator {
	return &stubNavigator{
		start: gamebook.Scene{PageID: 1, Body: "A fork in the road.", Choices: []gamebook.Choice{
			{LinkID: 10, TargetPageID: 2, Label: "Go left"},
			{LinkID: 11, TargetPageID: 3, Label: gamebook.DefaultLinkLabel},
		}},
		follow: map[int64]gamebook.Scene{
			11: {PageID: 3, Body: "A dragon.", IsEnding: true},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive runs cmd and feeds its message back into the model.
func drive(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()

	if cmd == nil {
		t.Fatalf("expected a command")
	}
	next, _ := m.Update(cmd())
	return next
}

func started(t *testing.T, nav *stubNavigator) tea.Model {
	t.Helper()

	m := newModel(context.Background(), nav, "dracula", nil)
	return drive(t, m, m.Init())
}

func TestModelStartsOnFirstScene(t *testing.T) {
	t.Parallel()

	m := started(t, newStubNavigator()).(model)

	if !m.hasScene || m.scene.PageID != 1 {
		t.Fatalf("expected scene for page 1, got %#v", m.scene)
	}

	view := m.View()
	for _, want := range []string{"Page 1", "1.", "Go left", "2.", gamebook.DefaultLinkLabel, "q quit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got %q", want, view)
		}
	}
}

func TestModelFollowsChoiceByNumber(t *testing.T) {
	t.Parallel()

	nav := newStubNavigator()
	m := started(t, nav)

	next, cmd := m.Update(key("2"))
	m = drive(t, next, cmd)

	if len(nav.followed) != 1 || nav.followed[0] != 11 {
		t.Fatalf("expected link 11 to be followed, got %v", nav.followed)
	}

	current := m.(model)
	if current.scene.PageID != 3 || !current.scene.IsEnding {
		t.Fatalf("expected ending page 3, got %#v", current.scene)
	}
	view := current.View()
	if !strings.Contains(view, "The End") || !strings.Contains(view, "r restart") {
		t.Fatalf("expected ending controls, got %q", view)
	}
}

func TestModelIgnoresMissingChoice(t *testing.T) {
	t.Parallel()

	nav := newStubNavigator()
	m := started(t, nav)

	next, cmd := m.Update(key("7"))
	if cmd != nil {
		t.Fatalf("expected no command for an unavailable choice")
	}
	if len(nav.followed) != 0 {
		t.Fatalf("expected nothing to be followed, got %v", nav.followed)
	}
	if !strings.Contains(next.(model).status, "no choice 7") {
		t.Fatalf("expected status to explain missing choice, got %q", next.(model).status)
	}
}

func TestModelKeepsSceneOnDanglingLink(t *testing.T) {
	t.Parallel()

	nav := newStubNavigator()
	nav.followErr = eris.Wrapf(gamebook.ErrPageNotFound, "page %d", 2)
	m := started(t, nav)

	next, cmd := m.Update(key("1"))
	current := drive(t, next, cmd).(model)

	if current.scene.PageID != 1 {
		t.Fatalf("expected to stay on page 1, got %d", current.scene.PageID)
	}
	if !current.failed || !strings.Contains(current.status, "no longer exists") {
		t.Fatalf("expected dangling link message, got %q", current.status)
	}
}

func TestModelRestartAndQuit(t *testing.T) {
	t.Parallel()

	nav := newStubNavigator()
	m := started(t, nav)

	next, cmd := m.Update(key("r"))
	drive(t, next, cmd)
	if nav.restarts != 1 {
		t.Fatalf("expected one restart, got %d", nav.restarts)
	}

	for _, msg := range []tea.KeyMsg{key("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("expected quit command for %q", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected tea.QuitMsg for %q", msg.String())
		}
	}
}

func TestModelReportsEmptyBook(t *testing.T) {
	t.Parallel()

	nav := &stubNavigator{startErr: gamebook.ErrNoPages}
	m := started(t, nav).(model)

	if m.hasScene {
		t.Fatalf("expected no scene for an empty book")
	}
	if !strings.Contains(m.View(), "no pages yet") {
		t.Fatalf("expected empty book message, got %q", m.View())
	}
}

func TestThemeCycleWrapsAround(t *testing.T) {
	t.Parallel()

	names := ThemeNames()
	if got := nextThemeName(names[len(names)-1]); got != names[0] {
		t.Fatalf("expected wrap to %q, got %q", names[0], got)
	}
	if got := nextThemeName("unknown"); got != names[0] {
		t.Fatalf("expected unknown theme to start at %q, got %q", names[0], got)
	}

	m := newModel(context.Background(), newStubNavigator(), "missing", nil)
	if m.theme != DefaultTheme {
		t.Fatalf("expected fallback theme %q, got %q", DefaultTheme, m.theme)
	}
}
