package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"gamebook/app/internal/gamebook"
)

type pageView struct {
	ID       int64      `json:"id"`
	Body     string     `json:"body"`
	IsEnding bool       `json:"isEnding"`
	Links    []linkView `json:"links,omitempty"`
}

type linkView struct {
	ID         int64  `json:"id"`
	FromPageID int64  `json:"fromPageId"`
	ToPageID   int64  `json:"toPageId"`
	Text       string `json:"text"`
	Label      string `json:"label"`
	SelfLink   bool   `json:"selfLink"`
}

type pageIDInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type linkIDInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type pageListOutput struct {
	Body struct {
		Version uint64     `json:"version" doc:"Cache version for position-based operations"`
		Pages   []pageView `json:"pages"`
	}
}

type pageOutput struct {
	Body pageView
}

type createdPageOutput struct {
	Location string `header:"Location"`
	Body     pageView
}

type updatePageInput struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		Body     *string `json:"body,omitempty" required:"false"`
		IsEnding *bool   `json:"isEnding,omitempty" required:"false"`
	}
}

type linkListOutput struct {
	Body struct {
		Version uint64     `json:"version" doc:"Cache version for position-based operations"`
		Links   []linkView `json:"links"`
	}
}

type linkOutput struct {
	Body linkView
}

type updateLinkInput struct {
	ID   int64 `path:"id" minimum:"1"`
	Body struct {
		Text *string `json:"text,omitempty" required:"false"`
		// ToPageID is taken as typed by the author and validated server side.
		ToPageID *string `json:"toPageId,omitempty" required:"false"`
	}
}

type draftOutput struct {
	Body struct {
		LinkID int64  `json:"linkId"`
		Body   string `json:"body"`
	}
}

func (s *Server) registerPageRoutes() {
	huma.Get(s.api, "/api/pages", s.listPagesHandler, jsonOperation("List pages"))
	huma.Post(s.api, "/api/pages", s.createPageHandler, jsonOperation("Create a blank page"), withStatus(stdhttp.StatusCreated))
	huma.Get(s.api, "/api/pages/{id}", s.getPageHandler, jsonOperation("Fetch a page with its links"))
	huma.Patch(s.api, "/api/pages/{id}", s.updatePageHandler, jsonOperation("Update page body or ending flag"))
	huma.Delete(s.api, "/api/pages/{id}", s.deletePageHandler, jsonOperation("Delete a page"))
	huma.Get(s.api, "/api/pages/{id}/links", s.listLinksHandler, jsonOperation("List links from a page"))
	huma.Post(s.api, "/api/pages/{id}/links", s.createLinkHandler, jsonOperation("Create a link from a page"), withStatus(stdhttp.StatusCreated))
}

func (s *Server) registerLinkRoutes() {
	huma.Get(s.api, "/api/links/dangling", s.danglingLinksHandler, jsonOperation("List links whose target page is missing"))
	huma.Patch(s.api, "/api/links/{id}", s.updateLinkHandler, jsonOperation("Update link text or target"))
	huma.Delete(s.api, "/api/links/{id}", s.deleteLinkHandler, jsonOperation("Delete a link"))
	huma.Post(s.api, "/api/links/{id}/draft", s.draftHandler, jsonOperation("Draft a body for the page a link leads to"))
}

func (s *Server) listPagesHandler(ctx context.Context, _ *struct{}) (*pageListOutput, error) {
	pages, err := s.service.ListPages(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing pages", nil)
	}

	out := &pageListOutput{}
	out.Body.Version = s.service.PageSnapshot().Version
	out.Body.Pages = make([]pageView, 0, len(pages))
	for i := range pages {
		out.Body.Pages = append(out.Body.Pages, toPageView(&pages[i]))
	}
	return out, nil
}

func (s *Server) createPageHandler(ctx context.Context, _ *struct{}) (*createdPageOutput, error) {
	page, err := s.service.CreatePage(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating page", nil)
	}

	view := toPageView(page)
	return &createdPageOutput{Location: pagePath(page.ID), Body: view}, nil
}

func (s *Server) getPageHandler(ctx context.Context, input *pageIDInput) (*pageOutput, error) {
	page, err := s.service.GetPage(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading page", logrus.Fields{"page_id": input.ID})
	}

	view := toPageView(page)
	if view.Links == nil {
		view.Links = []linkView{}
	}
	return &pageOutput{Body: view}, nil
}

func (s *Server) updatePageHandler(ctx context.Context, input *updatePageInput) (*pageOutput, error) {
	fields := logrus.Fields{"page_id": input.ID}

	if input.Body.Body == nil && input.Body.IsEnding == nil {
		return nil, huma.Error400BadRequest("provide body or isEnding")
	}

	if input.Body.Body != nil {
		if err := s.service.UpdatePageBody(ctx, input.ID, *input.Body.Body); err != nil {
			return nil, s.apiError(ctx, err, "updating page body", fields)
		}
	}
	if input.Body.IsEnding != nil {
		if err := s.service.UpdatePageIsEnding(ctx, input.ID, *input.Body.IsEnding); err != nil {
			return nil, s.apiError(ctx, err, "updating page ending flag", fields)
		}
	}

	return s.getPageHandler(ctx, &pageIDInput{ID: input.ID})
}

func (s *Server) deletePageHandler(ctx context.Context, input *pageIDInput) (*struct{}, error) {
	if err := s.service.DeletePage(ctx, input.ID); err != nil {
		return nil, s.apiError(ctx, err, "deleting page", logrus.Fields{"page_id": input.ID})
	}
	return nil, nil
}

func (s *Server) listLinksHandler(ctx context.Context, input *pageIDInput) (*linkListOutput, error) {
	links, err := s.service.ListLinksFrom(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing links", logrus.Fields{"page_id": input.ID})
	}

	out := &linkListOutput{}
	out.Body.Version = s.service.LinkSnapshot().Version
	out.Body.Links = toLinkViews(links)
	return out, nil
}

func (s *Server) createLinkHandler(ctx context.Context, input *pageIDInput) (*linkOutput, error) {
	link, err := s.service.CreateLink(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating link", logrus.Fields{"page_id": input.ID})
	}
	return &linkOutput{Body: toLinkView(*link)}, nil
}

func (s *Server) updateLinkHandler(ctx context.Context, input *updateLinkInput) (*struct{}, error) {
	fields := logrus.Fields{"link_id": input.ID}

	if input.Body.Text == nil && input.Body.ToPageID == nil {
		return nil, huma.Error400BadRequest("provide text or toPageId")
	}

	// The target is validated first so a rejected update leaves the text untouched.
	if input.Body.ToPageID != nil {
		if err := s.service.UpdateLinkTargetInput(ctx, input.ID, *input.Body.ToPageID); err != nil {
			return nil, s.apiError(ctx, err, "updating link target", fields)
		}
	}
	if input.Body.Text != nil {
		if err := s.service.UpdateLinkText(ctx, input.ID, *input.Body.Text); err != nil {
			return nil, s.apiError(ctx, err, "updating link text", fields)
		}
	}

	return nil, nil
}

func (s *Server) deleteLinkHandler(ctx context.Context, input *linkIDInput) (*struct{}, error) {
	if err := s.service.DeleteLink(ctx, input.ID); err != nil {
		return nil, s.apiError(ctx, err, "deleting link", logrus.Fields{"link_id": input.ID})
	}
	return nil, nil
}

func (s *Server) danglingLinksHandler(ctx context.Context, _ *struct{}) (*linkListOutput, error) {
	links, err := s.service.DanglingLinks(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing dangling links", nil)
	}

	out := &linkListOutput{}
	out.Body.Links = toLinkViews(links)
	return out, nil
}

func (s *Server) draftHandler(ctx context.Context, input *linkIDInput) (*draftOutput, error) {
	body, err := s.service.DraftPageBody(ctx, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "drafting page body", logrus.Fields{"link_id": input.ID})
	}

	out := &draftOutput{}
	out.Body.LinkID = input.ID
	out.Body.Body = body
	return out, nil
}

// apiError logs err and maps it to the HTTP status for its kind.
func (s *Server) apiError(ctx context.Context, err error, message string, fields logrus.Fields) error {
	status := statusFor(err)
	s.recordError(ctx, err, message, fields, status)

	var invalid *gamebook.InvalidTargetError
	switch {
	case errors.As(err, &invalid):
		return huma.Error422UnprocessableEntity("invalid link target", &huma.ErrorDetail{
			Message:  invalid.Reason,
			Location: "body.toPageId",
			Value:    invalid.Input,
		})
	case status == stdhttp.StatusInternalServerError:
		return huma.Error500InternalServerError("storage failure")
	default:
		return huma.NewError(status, eris.Cause(err).Error())
	}
}

func statusFor(err error) int {
	var invalid *gamebook.InvalidTargetError
	switch {
	case err == nil:
		return stdhttp.StatusOK
	case errors.As(err, &invalid):
		return stdhttp.StatusUnprocessableEntity
	case eris.Is(err, gamebook.ErrPageNotFound), eris.Is(err, gamebook.ErrLinkNotFound), eris.Is(err, gamebook.ErrNoPages):
		return stdhttp.StatusNotFound
	case eris.Is(err, gamebook.ErrStaleCache):
		return stdhttp.StatusConflict
	case eris.Is(err, gamebook.ErrIndexOutOfRange):
		return stdhttp.StatusBadRequest
	case eris.Is(err, gamebook.ErrDrafterUnavailable):
		return stdhttp.StatusServiceUnavailable
	default:
		return stdhttp.StatusInternalServerError
	}
}

func toPageView(page *gamebook.Page) pageView {
	view := pageView{ID: page.ID, Body: page.Body, IsEnding: page.IsEnding}
	if page.Links != nil {
		view.Links = toLinkViews(page.Links)
	}
	return view
}

func toLinkViews(links []gamebook.Link) []linkView {
	views := make([]linkView, 0, len(links))
	for _, link := range links {
		views = append(views, toLinkView(link))
	}
	return views
}

func toLinkView(link gamebook.Link) linkView {
	return linkView{
		ID:         link.ID,
		FromPageID: link.FromPageID,
		ToPageID:   link.ToPageID,
		Text:       link.Text,
		Label:      link.Label(),
		SelfLink:   link.IsSelfLink(),
	}
}

func jsonOperation(summary string) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.Summary = summary
		op.Tags = []string{"editor"}
	}
}

func withStatus(status int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.DefaultStatus = status
	}
}
