package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/msrishav-28/Living-Heirloom/internal/generation"
)

type createSessionRequest struct {
	Category string `json:"category"`
	VoiceID  string `json:"voice_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && err != errEmptyBody {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		req.Category = "general"
	}

	sess := s.interviews.Create(req.Category, req.VoiceID)
	first := s.generator.GenerateQuestion(r.Context(), generation.QuestionRequest{
		Category: sess.Category,
		Index:    sess.NextIndex(),
	})
	respondJSON(w, http.StatusCreated, map[string]any{
		"session":       sess,
		"next_question": first,
	})
}

type addResponseRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// handleAddResponse records an answer, refreshes the session's emotion
// from it, and returns the next question.
func (s *Server) handleAddResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addResponseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "answer is required")
		return
	}

	sess, err := s.interviews.AddResponse(id, generation.Response{
		Question: req.Question,
		Answer:   req.Answer,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	emotion := s.generator.ClassifyEmotion(r.Context(), req.Answer)
	if err := s.interviews.SetEmotion(id, emotion.Emotion); err == nil {
		sess.Emotion = emotion.Emotion
	}

	next := s.generator.GenerateQuestion(r.Context(), generation.QuestionRequest{
		Responses: sess.Responses,
		Emotion:   sess.Emotion,
		Category:  sess.Category,
		Index:     sess.NextIndex(),
	})
	respondJSON(w, http.StatusOK, map[string]any{
		"session":       sess,
		"emotion":       emotion,
		"next_question": next,
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.interviews.End(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}
