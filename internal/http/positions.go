package http

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"
)

// Position routes address rows by their index in the last listing. The
// version returned with that listing must be echoed back; a listing that has
// been refreshed or invalidated since then is answered with 409.

type positionInput struct {
	Index   int    `path:"index" minimum:"0"`
	Version uint64 `query:"version" required:"true"`
}

type updateLinkAtInput struct {
	Index   int    `path:"index" minimum:"0"`
	Version uint64 `query:"version" required:"true"`
	Body    struct {
		Text     *string `json:"text,omitempty" required:"false"`
		ToPageID *string `json:"toPageId,omitempty" required:"false"`
	}
}

func (s *Server) registerPositionRoutes() {
	huma.Patch(s.api, "/api/links/at/{index}", s.updateLinkAtHandler, jsonOperation("Update the link at a listing position"))
	huma.Delete(s.api, "/api/links/at/{index}", s.deleteLinkAtHandler, jsonOperation("Delete the link at a listing position"))
	huma.Delete(s.api, "/api/pages/at/{index}", s.deletePageAtHandler, jsonOperation("Delete the page at a listing position"))
}

func (s *Server) updateLinkAtHandler(ctx context.Context, input *updateLinkAtInput) (*struct{}, error) {
	fields := logrus.Fields{"index": input.Index, "version": input.Version}

	text, target := input.Body.Text, input.Body.ToPageID
	switch {
	case text == nil && target == nil:
		return nil, huma.Error400BadRequest("provide text or toPageId")
	case text != nil && target != nil:
		// Both edits would have to share one snapshot version.
		return nil, huma.Error400BadRequest("update text and toPageId in separate requests")
	case target != nil:
		if err := s.service.UpdateLinkTargetAt(ctx, input.Version, input.Index, *target); err != nil {
			return nil, s.apiError(ctx, err, "updating link target by position", fields)
		}
	default:
		if err := s.service.UpdateLinkTextAt(ctx, input.Version, input.Index, *text); err != nil {
			return nil, s.apiError(ctx, err, "updating link text by position", fields)
		}
	}

	return nil, nil
}

func (s *Server) deleteLinkAtHandler(ctx context.Context, input *positionInput) (*struct{}, error) {
	if err := s.service.DeleteLinkAt(ctx, input.Version, input.Index); err != nil {
		return nil, s.apiError(ctx, err, "deleting link by position", logrus.Fields{"index": input.Index, "version": input.Version})
	}
	return nil, nil
}

func (s *Server) deletePageAtHandler(ctx context.Context, input *positionInput) (*struct{}, error) {
	if err := s.service.DeletePageAt(ctx, input.Version, input.Index); err != nil {
		return nil, s.apiError(ctx, err, "deleting page by position", logrus.Fields{"index": input.Index, "version": input.Version})
	}
	return nil, nil
}
