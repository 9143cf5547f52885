package reviewapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/mail"
	"github.com/linnemanlabs/sift/internal/refine"
)

// refinements tracks the in-flight refinement per draft and drains each
// session's prefix stream into a polled buffer.
type refinements struct {
	mu sync.Mutex
	m  map[string]*refState
}

func newRefinements() *refinements {
	return &refinements{m: make(map[string]*refState)}
}

type refState struct {
	session *refine.Session

	mu   sync.Mutex
	text string
	done bool
}

func (r *refinements) put(draftID string, st *refState) {
	r.mu.Lock()
	r.m[draftID] = st
	r.mu.Unlock()
}

func (r *refinements) get(draftID string) (*refState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.m[draftID]
	return st, ok
}

func (r *refinements) drop(draftID string, st *refState) {
	r.mu.Lock()
	if r.m[draftID] == st {
		delete(r.m, draftID)
	}
	r.mu.Unlock()
}

// drain copies growing prefixes out of the stream so GET can poll them.
func (st *refState) drain() {
	for prefix := range st.session.Updates() {
		st.mu.Lock()
		st.text = prefix
		st.mu.Unlock()
	}
	st.mu.Lock()
	st.done = true
	st.mu.Unlock()
}

func (st *refState) snapshot() (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.text, st.done
}

type refineStartRequest struct {
	Instruction string `json:"instruction"`
}

type refineStatusResponse struct {
	Text  string `json:"text"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (a *API) handleRefineStart(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")

	var req refineStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Instruction == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "instruction is required"})
		return
	}

	s, err := a.refiner.Start(r.Context(), draftID, req.Instruction)
	if err != nil {
		if errors.Is(err, mail.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, errorBody{Error: "draft is not pending"})
			return
		}
		writeJSON(w, http.StatusNotFound, errorBody{Error: "draft not found"})
		return
	}

	st := &refState{session: s}
	a.refinements.put(draftID, st)
	go st.drain()

	writeJSON(w, http.StatusAccepted, refineStatusResponse{})
}

func (a *API) handleRefineGet(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")

	st, ok := a.refinements.get(draftID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no refinement session"})
		return
	}

	text, done := st.snapshot()
	resp := refineStatusResponse{Text: text, Done: done}
	if err := st.session.Err(); err != nil {
		resp.Error = "refinement failed"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRefineAccept(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")

	st, ok := a.refinements.get(draftID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no refinement session"})
		return
	}

	d, err := a.refiner.Accept(r.Context(), st.session)
	if err != nil {
		switch {
		case errors.Is(err, refine.ErrNotComplete):
			writeJSON(w, http.StatusConflict, errorBody{Error: "refinement not complete"})
		case errors.Is(err, refine.ErrCancelled):
			writeJSON(w, http.StatusConflict, errorBody{Error: "refinement was cancelled"})
		case errors.Is(err, mail.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, errorBody{Error: "refinement already accepted"})
		default:
			a.logger.Error(r.Context(), err, "refine accept failed", "draft_id", draftID)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
		return
	}

	a.refinements.drop(draftID, st)
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleRefineCancel(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "id")

	st, ok := a.refinements.get(draftID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no refinement session"})
		return
	}

	a.refiner.Discard(st.session)
	a.refinements.drop(draftID, st)
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}
