// Package mailapi exposes the assistant's stateless request/response
// endpoints: per-email summarization, reply drafting, and the usage
// snapshot.
package mailapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/assist"
	"github.com/linnemanlabs/sift/internal/llm"
	"github.com/linnemanlabs/sift/internal/usage"
)

// AssistService defines the completion operations mailapi needs.
type AssistService interface {
	Summarize(ctx context.Context, subject, body string) (*assist.Summary, error)
	DraftReply(ctx context.Context, threadSubject string, participants, messages []string) (*assist.Reply, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AssistService
	meter  *usage.Meter
}

// New creates a new API handler.
func New(logger log.Logger, svc AssistService, meter *usage.Meter) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("assist service is required"))
	}
	if meter == nil {
		panic(xerrors.New("usage meter is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		meter:  meter,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/summarize", a.handleSummarize)
		r.Post("/reply", a.handleReply)
		r.Get("/usage", a.handleUsage)
	})
}

func (a *API) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.meter.Snapshot())
}

// writeError maps provider-side failures onto the response contract: a
// missing credential is the caller's configuration problem (500, never
// retried upstream), anything the provider did wrong is a 502, and parse
// failures of model output are also the provider's fault.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		a.logger.Error(r.Context(), err, "provider credential not configured")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "provider credential not configured"})
	case errors.Is(err, llm.ErrProvider), errors.Is(err, assist.ErrParse):
		a.logger.Error(r.Context(), err, "provider request failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "provider request failed"})
	default:
		a.logger.Error(r.Context(), err, "request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
