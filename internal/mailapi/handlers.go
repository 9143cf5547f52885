package mailapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

type summarizeRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type summarizeResponse struct {
	Summary string   `json:"summary"`
	Tasks   []string `json:"tasks"`
}

func (a *API) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "body is required"})
		return
	}

	s, err := a.svc.Summarize(r.Context(), req.Subject, req.Body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	tasks := s.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	writeJSON(w, http.StatusOK, summarizeResponse{Summary: s.Summary, Tasks: tasks})
}

type replyRequest struct {
	ThreadSubject string   `json:"threadSubject"`
	Participants  []string `json:"participants"`
	Messages      []string `json:"messages"`
}

type replyResponse struct {
	Reply string     `json:"reply"`
	Usage replyUsage `json:"usage"`
}

type replyUsage struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

func (a *API) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "messages are required"})
		return
	}

	reply, err := a.svc.DraftReply(r.Context(), req.ThreadSubject, req.Participants, req.Messages)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{
		Reply: reply.Text,
		Usage: replyUsage{Tokens: reply.Tokens, Cost: reply.Cost},
	})
}
