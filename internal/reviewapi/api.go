// Package reviewapi exposes the interactive triage engine over HTTP: the
// single reviewer's gesture session, the archive follow-up choice, and
// draft refinement. The process hosts exactly one review session; the
// routes are its event loop.
package reviewapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/refine"
	"github.com/linnemanlabs/sift/internal/review"
)

// API holds dependencies for HTTP handlers.
type API struct {
	logger     log.Logger
	session    *review.Session
	dispatcher *review.Dispatcher
	refiner    *refine.Engine

	refinements *refinements
}

// New creates a new API handler.
func New(logger log.Logger, session *review.Session, dispatcher *review.Dispatcher, refiner *refine.Engine) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if session == nil || dispatcher == nil || refiner == nil {
		panic(xerrors.New("review session, dispatcher, and refine engine are required"))
	}
	return &API{
		logger:      logger,
		session:     session,
		dispatcher:  dispatcher,
		refiner:     refiner,
		refinements: newRefinements(),
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/review", func(r chi.Router) {
		r.Post("/card", a.handleCard)
		r.Post("/motion", a.handleMotion)
		r.Post("/release", a.handleRelease)
		r.Post("/archive", a.handleArchive)
	})
	r.Route("/api/v1/drafts/{id}/refine", func(r chi.Router) {
		r.Post("/", a.handleRefineStart)
		r.Get("/", a.handleRefineGet)
		r.Post("/accept", a.handleRefineAccept)
		r.Post("/cancel", a.handleRefineCancel)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
