package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"

	"gamebook/app/internal/db"
)

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Drafter  string `json:"drafter"`
		Pages    int64  `json:"pages"`
	}
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

// healthHandler reports degraded only for database problems; the drafter is optional.
func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Drafter = "ready"
	if !s.drafter {
		resp.Body.Drafter = "unconfigured"
	}

	degrade := func(err error, message string) {
		s.recordError(ctx, err, message, nil, stdhttp.StatusServiceUnavailable)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		degrade(err, "obtaining sql db")
		return resp, nil
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		degrade(err, "pinging database")
		return resp, nil
	}

	count, err := s.service.CountPages(ctx)
	if err != nil {
		degrade(err, "counting pages")
		return resp, nil
	}
	resp.Body.Pages = count

	return resp, nil
}
