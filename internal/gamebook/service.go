package gamebook

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"gamebook/app/internal/llm"
)

// Service defines the editor operations built on top of the repository.
type Service interface {
	ListPages(ctx context.Context) ([]Page, error)
	GetPage(ctx context.Context, id int64) (*Page, error)
	ListLinksFrom(ctx context.Context, fromPageID int64) ([]Link, error)
	CountPages(ctx context.Context) (int64, error)
	StartPageID(ctx context.Context) (int64, error)

	CreatePage(ctx context.Context) (*Page, error)
	CreateLink(ctx context.Context, fromPageID int64) (*Link, error)
	UpdatePageBody(ctx context.Context, id int64, body string) error
	UpdatePageIsEnding(ctx context.Context, id int64, isEnding bool) error
	UpdateLinkText(ctx context.Context, linkID int64, text string) error
	UpdateLinkTarget(ctx context.Context, linkID int64, toPageID int64) error
	UpdateLinkTargetInput(ctx context.Context, linkID int64, raw string) error
	DeletePage(ctx context.Context, id int64) error
	DeleteLink(ctx context.Context, linkID int64) error

	PageSnapshot() Snapshot[Page]
	LinkSnapshot() Snapshot[Link]
	UpdateLinkTextAt(ctx context.Context, version uint64, index int, text string) error
	UpdateLinkTargetAt(ctx context.Context, version uint64, index int, raw string) error
	DeleteLinkAt(ctx context.Context, version uint64, index int) error
	DeletePageAt(ctx context.Context, version uint64, index int) error

	DanglingLinks(ctx context.Context) ([]Link, error)
	DraftPageBody(ctx context.Context, linkID int64) (string, error)
}

// ServiceOptions configures the gamebook service.
type ServiceOptions struct {
	Repository Repository
	// Drafter is optional; without it DraftPageBody reports ErrDrafterUnavailable.
	Drafter   llm.Drafter
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
	// StartPageID overrides the lowest page id as the reader's entry point.
	StartPageID int64
}

type service struct {
	repo        Repository
	drafter     llm.Drafter
	logger      *logrus.Logger
	sentryHub   *sentry.Hub
	startPageID int64

	pages *Cache[Page]
	links *Cache[Link]
}

var _ Service = (*service)(nil)

// NewService wires the gamebook service with its dependencies.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Repository == nil {
		return nil, eris.New("gamebook repository is required")
	}
	if opts.StartPageID < 0 {
		return nil, eris.New("start page id must not be negative")
	}

	return &service{
		repo:        opts.Repository,
		drafter:     opts.Drafter,
		logger:      opts.Logger,
		sentryHub:   opts.SentryHub,
		startPageID: opts.StartPageID,
		pages:       NewCache[Page](),
		links:       NewCache[Link](),
	}, nil
}

func (s *service) ListPages(ctx context.Context) ([]Page, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		s.recordError(nil, err, "listing pages")
		return nil, err
	}

	s.pages.Replace(0, pages)
	return pages, nil
}

func (s *service) GetPage(ctx context.Context, id int64) (*Page, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"page_id": id}, err, "retrieving page")
		return nil, err
	}

	s.links.Replace(id, page.Links)
	return page, nil
}

func (s *service) ListLinksFrom(ctx context.Context, fromPageID int64) ([]Link, error) {
	links, err := s.repo.ListLinksFrom(ctx, fromPageID)
	if err != nil {
		s.recordError(logrus.Fields{"from_page_id": fromPageID}, err, "listing links")
		return nil, err
	}

	s.links.Replace(fromPageID, links)
	return links, nil
}

func (s *service) CountPages(ctx context.Context) (int64, error) {
	count, err := s.repo.CountPages(ctx)
	if err != nil {
		s.recordError(nil, err, "counting pages")
		return 0, err
	}
	return count, nil
}

func (s *service) StartPageID(ctx context.Context) (int64, error) {
	if s.startPageID > 0 {
		return s.startPageID, nil
	}

	id, err := s.repo.FirstPageID(ctx)
	if err != nil {
		s.recordError(nil, err, "selecting start page")
		return 0, err
	}
	return id, nil
}

func (s *service) CreatePage(ctx context.Context) (*Page, error) {
	page, err := s.repo.CreatePage(ctx)
	if err != nil {
		s.recordError(nil, err, "creating page")
		return nil, err
	}

	s.pages.Invalidate()
	return page, nil
}

func (s *service) CreateLink(ctx context.Context, fromPageID int64) (*Link, error) {
	exists, err := s.repo.PageExists(ctx, fromPageID)
	if err != nil {
		s.recordError(logrus.Fields{"from_page_id": fromPageID}, err, "checking link source")
		return nil, err
	}
	if !exists {
		wrapped := eris.Wrapf(ErrPageNotFound, "page %d", fromPageID)
		s.recordError(logrus.Fields{"from_page_id": fromPageID}, wrapped, "creating link")
		return nil, wrapped
	}

	link, err := s.repo.CreateLink(ctx, fromPageID)
	if err != nil {
		s.recordError(logrus.Fields{"from_page_id": fromPageID}, err, "creating link")
		return nil, err
	}

	s.links.Invalidate()
	return link, nil
}

func (s *service) UpdatePageBody(ctx context.Context, id int64, body string) error {
	if err := s.repo.UpdatePageBody(ctx, id, body); err != nil {
		s.recordError(logrus.Fields{"page_id": id}, err, "updating page body")
		return err
	}

	s.pages.Invalidate()
	return nil
}

func (s *service) UpdatePageIsEnding(ctx context.Context, id int64, isEnding bool) error {
	if err := s.repo.UpdatePageIsEnding(ctx, id, isEnding); err != nil {
		s.recordError(logrus.Fields{"page_id": id, "is_ending": isEnding}, err, "updating page ending flag")
		return err
	}

	s.pages.Invalidate()
	return nil
}

func (s *service) UpdateLinkText(ctx context.Context, linkID int64, text string) error {
	if err := s.repo.UpdateLinkText(ctx, linkID, text); err != nil {
		s.recordError(logrus.Fields{"link_id": linkID}, err, "updating link text")
		return err
	}

	s.links.Invalidate()
	return nil
}

func (s *service) UpdateLinkTarget(ctx context.Context, linkID int64, toPageID int64) error {
	exists, err := s.repo.PageExists(ctx, toPageID)
	if err != nil {
		s.recordError(logrus.Fields{"link_id": linkID, "to_page_id": toPageID}, err, "checking link target")
		return err
	}
	if !exists {
		invalid := &InvalidTargetError{
			Input:  strconv.FormatInt(toPageID, 10),
			Reason: "no page with this id exists",
		}
		s.recordError(logrus.Fields{"link_id": linkID, "to_page_id": toPageID}, invalid, "rejecting link target")
		return invalid
	}

	if err := s.repo.UpdateLinkToPageID(ctx, linkID, toPageID); err != nil {
		s.recordError(logrus.Fields{"link_id": linkID, "to_page_id": toPageID}, err, "updating link target")
		return err
	}

	s.links.Invalidate()
	return nil
}

func (s *service) UpdateLinkTargetInput(ctx context.Context, linkID int64, raw string) error {
	toPageID, err := ParseTargetInput(raw)
	if err != nil {
		s.recordError(logrus.Fields{"link_id": linkID, "input": raw}, err, "rejecting link target")
		return err
	}

	return s.UpdateLinkTarget(ctx, linkID, toPageID)
}

func (s *service) DeletePage(ctx context.Context, id int64) error {
	if err := s.repo.DeletePage(ctx, id); err != nil {
		s.recordError(logrus.Fields{"page_id": id}, err, "deleting page")
		return err
	}

	s.pages.Invalidate()
	return nil
}

func (s *service) DeleteLink(ctx context.Context, linkID int64) error {
	if err := s.repo.DeleteLink(ctx, linkID); err != nil {
		s.recordError(logrus.Fields{"link_id": linkID}, err, "deleting link")
		return err
	}

	s.links.Invalidate()
	return nil
}

func (s *service) PageSnapshot() Snapshot[Page] {
	return s.pages.Snapshot()
}

func (s *service) LinkSnapshot() Snapshot[Link] {
	return s.links.Snapshot()
}

func (s *service) UpdateLinkTextAt(ctx context.Context, version uint64, index int, text string) error {
	link, err := s.linkAt(version, index)
	if err != nil {
		return err
	}
	return s.UpdateLinkText(ctx, link.ID, text)
}

func (s *service) UpdateLinkTargetAt(ctx context.Context, version uint64, index int, raw string) error {
	link, err := s.linkAt(version, index)
	if err != nil {
		return err
	}
	return s.UpdateLinkTargetInput(ctx, link.ID, raw)
}

func (s *service) DeleteLinkAt(ctx context.Context, version uint64, index int) error {
	link, err := s.linkAt(version, index)
	if err != nil {
		return err
	}
	return s.DeleteLink(ctx, link.ID)
}

func (s *service) DeletePageAt(ctx context.Context, version uint64, index int) error {
	page, err := s.pages.At(version, index)
	if err != nil {
		err = withCurrentVersion(err, s.pages.Version())
		s.recordError(logrus.Fields{"version": version, "index": index}, err, "resolving page position")
		return err
	}
	return s.DeletePage(ctx, page.ID)
}

func (s *service) linkAt(version uint64, index int) (Link, error) {
	link, err := s.links.At(version, index)
	if err != nil {
		err = withCurrentVersion(err, s.links.Version())
		s.recordError(logrus.Fields{"version": version, "index": index}, err, "resolving link position")
		return Link{}, err
	}
	return link, nil
}

// withCurrentVersion names the version a caller has to re-list at.
func withCurrentVersion(err error, current uint64) error {
	if !eris.Is(err, ErrStaleCache) {
		return err
	}
	return eris.Wrapf(err, "listing is now at version %d", current)
}

func (s *service) DanglingLinks(ctx context.Context) ([]Link, error) {
	links, err := s.repo.ListDanglingLinks(ctx)
	if err != nil {
		s.recordError(nil, err, "listing dangling links")
		return nil, err
	}
	return links, nil
}

func (s *service) DraftPageBody(ctx context.Context, linkID int64) (string, error) {
	if s.drafter == nil {
		return "", ErrDrafterUnavailable
	}

	link, err := s.repo.GetLink(ctx, linkID)
	if err != nil {
		s.recordError(logrus.Fields{"link_id": linkID}, err, "loading link for draft")
		return "", err
	}

	request := llm.DraftRequest{ChoiceText: link.Label()}

	source, err := s.repo.GetPage(ctx, link.FromPageID)
	switch {
	case err == nil:
		request.PreviousBody = source.Body
	case eris.Is(err, ErrPageNotFound):
		// The source page may have been deleted; draft without context.
	default:
		s.recordError(logrus.Fields{"link_id": linkID, "page_id": link.FromPageID}, err, "loading source page for draft")
		return "", err
	}

	body, err := s.drafter.Draft(ctx, request)
	if err != nil {
		s.recordError(logrus.Fields{"link_id": linkID}, err, "drafting page body")
		return "", eris.Wrapf(err, "drafting body for link %d", linkID)
	}

	return body, nil
}

// ParseTargetInput converts user-typed link target input into a page id.
func ParseTargetInput(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, &InvalidTargetError{Input: raw, Reason: "target page id must be numeric"}
	}
	if id <= 0 {
		return 0, &InvalidTargetError{Input: raw, Reason: "target page id must be positive"}
	}
	return id, nil
}

// IsClientError reports whether err stems from caller input rather than storage.
func IsClientError(err error) bool {
	var invalid *InvalidTargetError
	if errors.As(err, &invalid) {
		return true
	}

	for _, sentinel := range []error{ErrPageNotFound, ErrLinkNotFound, ErrNoPages, ErrStaleCache, ErrIndexOutOfRange, ErrDrafterUnavailable} {
		if eris.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	clientErr := IsClientError(err)

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error()).WithField("component", "gamebook.service")
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		if clientErr {
			entry.Warn(message)
		} else {
			entry.Error(message)
		}
	}

	if s.sentryHub != nil && !clientErr {
		s.sentryHub.CaptureException(err)
	}
}
