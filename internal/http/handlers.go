package http

import (
	"net/http"
	"strings"

	"chitieu/internal/analysis"
	"chitieu/internal/log"
)

type messageRequest struct {
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type profileRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type reportResponse struct {
	UserID string          `json:"user_id"`
	Period analysis.Period `json:"period"`
	Text   string          `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = sanitizeInput(req.UserID)
	req.ChatID = sanitizeInput(req.ChatID)
	req.Text = sanitizeInput(req.Text)
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}
	if req.ChatID == "" {
		req.ChatID = req.UserID
	}

	reply, err := s.assistant.HandleMessage(r.Context(), req.UserID, req.ChatID, req.Text)
	if err != nil {
		s.fail(w, r, "Message handling failed", err, req.UserID)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = sanitizeInput(req.UserID)
	req.Text = sanitizeInput(req.Text)
	if req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}
	if !strings.HasPrefix(strings.ToLower(req.Text), "/profile") {
		req.Text = "/profile " + req.Text
	}

	reply, err := s.assistant.UpdateProfile(r.Context(), req.UserID, req.Text)
	if err != nil {
		s.fail(w, r, "Profile update failed", err, req.UserID)
		return
	}
	status := http.StatusOK
	if reply.Profile == nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, reply)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.assistant.Extract(r.Context(), sanitizeInput(req.Text)))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	period, err := analysis.ParsePeriod(r.PathValue("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.assistant.Report(r.Context(), userID, period)
	if err != nil {
		s.fail(w, r, "Report failed", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{UserID: userID, Period: period, Text: text})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	review, err := s.assistant.LatestReview(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "Review failed", err, userID)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error, userID string) {
	status := statusFor(err)
	fields := log.NewFields().WithUser(userID)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err, r.Method+" "+r.URL.Path, fields)
	if status == http.StatusUnprocessableEntity {
		writeError(w, status, err.Error())
		return
	}
	writeError(w, status, http.StatusText(status))
}
