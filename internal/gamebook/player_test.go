package gamebook

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
)

type stubReader struct {
	pages   map[int64]*Page
	startID int64
	err     error
}

func (s *stubReader) GetPage(ctx context.Context, id int64) (*Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	page, ok := s.pages[id]
	if !ok {
		return nil, eris.Wrapf(ErrPageNotFound, "page %d", id)
	}
	return page, nil
}

func (s *stubReader) StartPageID(ctx context.Context) (int64, error) {
	if s.startID == 0 {
		return 0, ErrNoPages
	}
	return s.startID, nil
}

func storyReader() *stubReader {
	return &stubReader{
		startID: 1,
		pages: map[int64]*Page{
			1: {ID: 1, Body: "A fork in the road.", Links: []Link{
				{ID: 10, FromPageID: 1, ToPageID: 2, Text: "Go left"},
				{ID: 11, FromPageID: 1, ToPageID: 3, Text: ""},
				{ID: 12, FromPageID: 1, ToPageID: 99, Text: "Jump"},
			}},
			2: {ID: 2, Body: "A dragon.", IsEnding: true, Links: []Link{}},
			3: {ID: 3, Body: "A river.", Links: []Link{
				{ID: 13, FromPageID: 3, ToPageID: 1, Text: "Back"},
			}},
		},
	}
}

func TestNewPlayerRequiresReader(t *testing.T) {
	t.Parallel()

	if _, err := NewPlayer(nil, nil); err == nil {
		t.Fatalf("expected error when reader is nil")
	}
}

func TestPlayerStartBuildsScene(t *testing.T) {
	t.Parallel()

	player, err := NewPlayer(storyReader(), silentLogger())
	if err != nil {
		t.Fatalf("NewPlayer returned error: %v", err)
	}

	if _, ok := player.Scene(); ok {
		t.Fatalf("expected no scene before start")
	}

	scene, err := player.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if scene.PageID != 1 || scene.Body != "A fork in the road." {
		t.Fatalf("unexpected start scene %#v", scene)
	}
	if len(scene.Choices) != 3 {
		t.Fatalf("expected 3 choices, got %d", len(scene.Choices))
	}
	if scene.Choices[1].Label != DefaultLinkLabel {
		t.Fatalf("expected blank link labelled %q, got %q", DefaultLinkLabel, scene.Choices[1].Label)
	}
	if scene.Choices[0].TargetPageID != 2 {
		t.Fatalf("expected first choice to lead to 2, got %d", scene.Choices[0].TargetPageID)
	}
}

func TestPlayerFollowAndRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	player, _ := NewPlayer(storyReader(), nil)

	if _, err := player.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	scene, err := player.Follow(ctx, 10)
	if err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	if scene.PageID != 2 || !scene.IsEnding {
		t.Fatalf("expected ending page 2, got %#v", scene)
	}
	if len(scene.Choices) != 0 {
		t.Fatalf("expected no choices on the ending, got %d", len(scene.Choices))
	}

	scene, err = player.Restart(ctx)
	if err != nil {
		t.Fatalf("Restart returned error: %v", err)
	}
	if scene.PageID != 1 {
		t.Fatalf("expected restart at page 1, got %d", scene.PageID)
	}
}

func TestPlayerFollowRejectsForeignAndDanglingLinks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	player, _ := NewPlayer(storyReader(), nil)

	if _, err := player.Follow(ctx, 10); err == nil {
		t.Fatalf("expected error when following before start")
	}

	if _, err := player.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	scene, err := player.Follow(ctx, 13)
	if !eris.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound for link of another page, got %v", err)
	}
	if scene.PageID != 1 {
		t.Fatalf("expected to stay on page 1, got %d", scene.PageID)
	}

	scene, err = player.Follow(ctx, 12)
	if !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound for dangling link, got %v", err)
	}
	if scene.PageID != 1 {
		t.Fatalf("expected to stay on page 1, got %d", scene.PageID)
	}

	current, ok := player.Scene()
	if !ok || current.PageID != 1 {
		t.Fatalf("expected current scene on page 1, got %#v", current)
	}
}

func TestPlayerStartOnEmptyBook(t *testing.T) {
	t.Parallel()

	player, _ := NewPlayer(&stubReader{pages: map[int64]*Page{}}, nil)

	if _, err := player.Start(context.Background()); !eris.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestPlayerAgainstRepository(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t, nil, 0)
	ctx := context.Background()

	start, _ := svc.CreatePage(ctx)
	end, _ := svc.CreatePage(ctx)
	link, _ := svc.CreateLink(ctx, start.ID)
	if err := svc.UpdateLinkTarget(ctx, link.ID, end.ID); err != nil {
		t.Fatalf("UpdateLinkTarget returned error: %v", err)
	}
	if err := svc.UpdatePageIsEnding(ctx, end.ID, true); err != nil {
		t.Fatalf("UpdatePageIsEnding returned error: %v", err)
	}

	player, err := NewPlayer(svc, nil)
	if err != nil {
		t.Fatalf("NewPlayer returned error: %v", err)
	}

	scene, err := player.Start(ctx)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if scene.PageID != start.ID || len(scene.Choices) != 1 {
		t.Fatalf("unexpected start scene %#v", scene)
	}

	scene, err = player.Follow(ctx, scene.Choices[0].LinkID)
	if err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}
	if scene.PageID != end.ID || !scene.IsEnding {
		t.Fatalf("expected ending page %d, got %#v", end.ID, scene)
	}
}
