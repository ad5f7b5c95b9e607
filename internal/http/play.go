package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"gamebook/app/internal/gamebook"
	"gamebook/app/internal/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
	playRoot             = "/play"
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type playInput struct {
	ID int64 `path:"id"`
}

func (s *Server) registerPlayRoutes() {
	huma.Get(s.api, playRoot, s.playStartHandler, htmlOperation(
		"Redirect to the start page",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, playRoot+"/{id}", s.playPageHandler, htmlOperation(
		"Preview a page as a reader",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) playStartHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	id, err := s.service.StartPageID(ctx)
	if err != nil {
		status := statusFor(err)
		message := playErrorMessage(status)
		if eris.Is(err, gamebook.ErrNoPages) {
			message = "The gamebook has no pages yet. Create one through the editor API."
		}
		s.recordError(ctx, err, "selecting start page", nil, status)
		return s.renderErrorResponse(ctx, status, message)
	}

	response := newHTMLResponse(stdhttp.StatusFound, nil)
	response.Location = pagePlayPath(id)
	return response, nil
}

func (s *Server) playPageHandler(ctx context.Context, input *playInput) (*htmlResponse, error) {
	page, err := s.service.GetPage(ctx, input.ID)
	if err != nil {
		status := statusFor(err)
		s.recordError(ctx, err, "loading page preview", logrus.Fields{"page_id": input.ID}, status)
		return s.renderErrorResponse(ctx, status, playErrorMessage(status))
	}

	scene := gamebook.SceneOf(page)
	data := templates.PlayPageData{
		Title:      fmt.Sprintf("Page %d • Gamebook", scene.PageID),
		PageID:     scene.PageID,
		Paragraphs: templates.Paragraphs(scene.Body),
		IsEnding:   scene.IsEnding,
		RestartURL: playRoot,
	}
	for _, choice := range scene.Choices {
		data.Choices = append(data.Choices, templates.ChoiceView{
			Label: choice.Label,
			URL:   pagePlayPath(choice.TargetPageID),
		})
	}

	body, err := renderComponent(ctx, templates.PlayPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering page preview", logrus.Fields{"page_id": input.ID}, stdhttp.StatusInternalServerError)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func playErrorMessage(status int) string {
	if status == stdhttp.StatusNotFound {
		return "This page does not exist. The link that led here may point at a deleted page."
	}
	return errorFallbackMessage
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		Title:       label + " • Gamebook",
		StatusLabel: label,
		Message:     message,
		RestartURL:  playRoot,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status}, stdhttp.StatusInternalServerError)
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "rendering component")
	}
	return buf.Bytes(), nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		op.Summary = summary
		op.Tags = []string{"player"}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		for _, status := range append([]int{stdhttp.StatusOK}, statuses...) {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {Schema: &huma.Schema{Type: "string"}},
				},
			}
		}
	}
}

func pagePath(id int64) string {
	return "/api/pages/" + strconv.FormatInt(id, 10)
}

func pagePlayPath(id int64) string {
	return playRoot + "/" + strconv.FormatInt(id, 10)
}
