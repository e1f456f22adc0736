package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/abelbrown/civic/internal/model"
)

// Entities implements the entity service.
type Entities struct{ c *Client }

// List returns every entity.
func (s *Entities) List(ctx context.Context) ([]model.Entity, error) {
	var out []model.Entity
	err := s.c.do(ctx, call{
		op:     "list entities",
		method: http.MethodGet,
		path:   "/api/politicians",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one entity by id.
func (s *Entities) Get(ctx context.Context, id string) (*model.Entity, error) {
	var out model.Entity
	err := s.c.do(ctx, call{
		op:     "get entity",
		method: http.MethodGet,
		path:   "/api/politicians/" + url.PathEscape(id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions implements the persisted session service. Every call requires a
// credential.
type Sessions struct{ c *Client }

// Create starts a persisted session. The returned session carries the
// service's canonical entity name.
func (s *Sessions) Create(ctx context.Context, req model.NewSession, cred string) (*model.Session, error) {
	var out model.Session
	err := s.c.do(ctx, call{
		op:     "create session",
		method: http.MethodPost,
		path:   "/api/research/sessions",
		cred:   cred,
		body:   req,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the caller's sessions.
func (s *Sessions) List(ctx context.Context, cred string) ([]model.Session, error) {
	var out []model.Session
	err := s.c.do(ctx, call{
		op:     "list sessions",
		method: http.MethodGet,
		path:   "/api/research/sessions",
		cred:   cred,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exchanges returns one page of a session's exchanges.
func (s *Sessions) Exchanges(ctx context.Context, sessionID, cred string, limit, offset int) ([]model.Exchange, error) {
	var out []model.Exchange
	err := s.c.do(ctx, call{
		op:     "list exchanges",
		method: http.MethodGet,
		path:   "/api/research/sessions/" + url.PathEscape(sessionID) + "/messages",
		cred:   cred,
		query: map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		},
		out: &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppendQuestion posts a question and returns the answered exchange.
func (s *Sessions) AppendQuestion(ctx context.Context, req model.NewQuestion, cred string) (*model.Exchange, error) {
	var out model.Exchange
	err := s.c.do(ctx, call{
		op:     "append question",
		method: http.MethodPost,
		path:   "/api/research/sessions/" + url.PathEscape(req.SessionID) + "/messages",
		cred:   cred,
		body:   req,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a session.
func (s *Sessions) Delete(ctx context.Context, sessionID, cred string) error {
	return s.c.do(ctx, call{
		op:     "delete session",
		method: http.MethodDelete,
		path:   "/api/research/sessions/" + url.PathEscape(sessionID),
		cred:   cred,
	})
}

// Reports implements the report service.
type Reports struct{ c *Client }

// ByEntityAndRole returns the latest report for an entity name in a role.
func (s *Reports) ByEntityAndRole(ctx context.Context, entityName, role string) (*model.Report, error) {
	var out model.Report
	err := s.c.do(ctx, call{
		op:     "report by entity",
		method: http.MethodGet,
		path:   "/api/reports",
		query:  map[string]string{"name": entityName, "role": role},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ByID returns a report, optionally with its sources.
func (s *Reports) ByID(ctx context.Context, reportID string, includeSources bool) (*model.Report, error) {
	var out model.Report
	err := s.c.do(ctx, call{
		op:     "report by id",
		method: http.MethodGet,
		path:   "/api/reports/" + url.PathEscape(reportID),
		query:  map[string]string{"include_sources": strconv.FormatBool(includeSources)},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
