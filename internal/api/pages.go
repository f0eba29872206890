package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/guard"
	"github.com/layarapp/layar-server/internal/http/response"
	"github.com/layarapp/layar-server/internal/livesync"
)

// PageResponse is what a page route renders: the guard decision and, when
// the page renders, the client's view.
type PageResponse struct {
	Path     string            `json:"path"`
	Decision guard.Decision    `json:"decision"`
	View     *domain.ViewState `json:"view,omitempty"`
}

func (s *Server) registerStreamRoute() {
	s.router.Get("/api/v1/stream", s.handleStream)
}

func (s *Server) registerPageRoutes() {
	s.router.Group(func(r chi.Router) {
		for _, path := range []string{guard.LoginPath, "/register", "/", guard.HomePath, guard.AdminPath} {
			r.Get(path, s.handlePage)
		}
		r.Get("/movie/{id}", s.handlePage)
	})
}

// handleStream streams view updates for the caller's replica.
// GET /api/v1/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	replica, err := replicaFrom(r.Context())
	if err != nil {
		response.Unauthorized(w, "Client token required", s.logger)
		return
	}
	s.sseHandler.Serve(w, r, replica.ID(), replica.View(), replica.Touch)
}

// handlePage applies the access guard to a page navigation. Browsers
// without a client get one on their first page load.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	replica, err := replicaFrom(ctx)
	if err != nil {
		var token string
		var created *livesync.Replica
		created, token, err = s.registry.Create(ctx)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		replica = created
		cookie := s.clientCookie(token)
		http.SetCookie(w, &cookie)
	}

	path := r.URL.Path
	decision, ok := guard.Navigate(s.settledSession(ctx, replica), path)
	if !ok {
		response.NotFound(w, "Page not found", s.logger)
		return
	}

	page := PageResponse{Path: path, Decision: decision}
	switch decision.Outcome {
	case guard.Redirect:
		http.Redirect(w, r, redirectLocation(decision), http.StatusSeeOther)
	case guard.Render:
		view := replica.View()
		page.View = &view
		response.Success(w, page, s.logger)
	default:
		response.Success(w, page, s.logger)
	}
}

func redirectLocation(d guard.Decision) string {
	if d.From == "" {
		return d.Location
	}
	return d.Location + "?" + url.Values{"from": {d.From}}.Encode()
}
