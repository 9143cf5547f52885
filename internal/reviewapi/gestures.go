package reviewapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linnemanlabs/sift/internal/review"
)

type cardRequest struct {
	ThreadID string  `json:"thread_id"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func (a *API) handleCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ThreadID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}

	a.session.SetCard(r.Context(), req.ThreadID)
	if req.Width > 0 && req.Height > 0 {
		a.session.Resize(review.Classifier{Width: req.Width, Height: req.Height})
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": req.ThreadID})
}

type motionRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type gestureResponse struct {
	Direction string  `json:"direction"`
	Progress  float64 `json:"progress"`
	Committed bool    `json:"committed,omitempty"`
}

func (a *API) handleMotion(w http.ResponseWriter, r *http.Request) {
	var req motionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}

	reading, err := a.session.Motion(req.DX, req.DY)
	if err != nil {
		a.writeGestureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gestureResponse{
		Direction: string(reading.Direction),
		Progress:  reading.Progress,
	})
}

func (a *API) handleRelease(w http.ResponseWriter, r *http.Request) {
	reading, committed, err := a.session.Release(r.Context())
	if err != nil {
		a.writeGestureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gestureResponse{
		Direction: string(reading.Direction),
		Progress:  reading.Progress,
		Committed: committed,
	})
}

type archiveRequest struct {
	ThreadID string `json:"thread_id"`
	FileToKB bool   `json:"file_to_kb"`
}

func (a *API) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = a.session.Card()
	}

	if err := a.dispatcher.ResolveArchive(r.Context(), threadID, req.FileToKB); err != nil {
		if errors.Is(err, review.ErrNoArchiveChoice) {
			writeJSON(w, http.StatusConflict, errorBody{Error: "no pending archive choice"})
			return
		}
		a.logger.Error(r.Context(), err, "resolve archive failed", "thread_id", threadID)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": threadID, "archived": true})
}

func (a *API) writeGestureError(w http.ResponseWriter, err error) {
	if errors.Is(err, review.ErrLocked) {
		writeJSON(w, http.StatusConflict, errorBody{Error: "card is locked by an in-flight commit"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}
