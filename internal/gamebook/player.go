package gamebook

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// PageReader is the subset of the service a reading session needs.
type PageReader interface {
	GetPage(ctx context.Context, id int64) (*Page, error)
	StartPageID(ctx context.Context) (int64, error)
}

// Choice is one option offered to the reader on the current page.
type Choice struct {
	LinkID       int64
	TargetPageID int64
	Label        string
}

// Scene is the reader's view of the current page.
type Scene struct {
	PageID   int64
	Body     string
	IsEnding bool
	Choices  []Choice
}

// Player walks a reader through the page graph, one page at a time.
type Player struct {
	reader PageReader
	logger *logrus.Logger

	mu      sync.Mutex
	current *Page
}

// NewPlayer constructs a reading session. Call Start before reading.
func NewPlayer(reader PageReader, logger *logrus.Logger) (*Player, error) {
	if reader == nil {
		return nil, eris.New("page reader is required")
	}
	return &Player{reader: reader, logger: logger}, nil
}

// Start loads the start page and returns its scene.
func (p *Player) Start(ctx context.Context) (Scene, error) {
	id, err := p.reader.StartPageID(ctx)
	if err != nil {
		return Scene{}, err
	}

	page, err := p.reader.GetPage(ctx, id)
	if err != nil {
		return Scene{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = page
	p.logTransition("session started", page.ID)
	return sceneOf(page), nil
}

// Restart returns the reader to the start page.
func (p *Player) Restart(ctx context.Context) (Scene, error) {
	return p.Start(ctx)
}

// Follow moves along a link of the current page. On failure the reader stays
// on the current page.
func (p *Player) Follow(ctx context.Context, linkID int64) (Scene, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return Scene{}, eris.New("player has not been started")
	}

	var chosen *Link
	for i := range current.Links {
		if current.Links[i].ID == linkID {
			chosen = &current.Links[i]
			break
		}
	}
	if chosen == nil {
		return sceneOf(current), eris.Wrapf(ErrLinkNotFound, "link %d on page %d", linkID, current.ID)
	}

	next, err := p.reader.GetPage(ctx, chosen.ToPageID)
	if err != nil {
		return sceneOf(current), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = next
	p.logTransition("followed link", next.ID)
	return sceneOf(next), nil
}

// Scene returns the current page as the reader sees it.
func (p *Player) Scene() (Scene, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return Scene{}, false
	}
	return sceneOf(p.current), true
}

// SceneOf converts a page into the reader's view.
func SceneOf(page *Page) Scene {
	return sceneOf(page)
}

func sceneOf(page *Page) Scene {
	choices := make([]Choice, 0, len(page.Links))
	for _, link := range page.Links {
		choices = append(choices, Choice{
			LinkID:       link.ID,
			TargetPageID: link.ToPageID,
			Label:        link.Label(),
		})
	}

	return Scene{
		PageID:   page.ID,
		Body:     page.Body,
		IsEnding: page.IsEnding,
		Choices:  choices,
	}
}

func (p *Player) logTransition(message string, pageID int64) {
	if p.logger == nil {
		return
	}
	p.logger.WithFields(logrus.Fields{"component": "gamebook.player", "page_id": pageID}).Debug(message)
}
