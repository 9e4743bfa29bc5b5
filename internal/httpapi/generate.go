package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/msrishav-28/Living-Heirloom/internal/generation"
	"github.com/msrishav-28/Living-Heirloom/internal/records"
	"github.com/msrishav-28/Living-Heirloom/internal/vault"
)

func (s *Server) handleGenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req generation.QuestionRequest
	if err := decodeJSON(r, &req); err != nil && err != errEmptyBody {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.generator.GenerateQuestion(r.Context(), req))
}

type generateContentRequest struct {
	SessionID string                `json:"session_id"`
	Responses []generation.Response `json:"responses"`
	Tone      string                `json:"tone"`
	Length    string                `json:"length"`
}

// handleGenerateContent produces the heirloom piece and persists it as
// a sealed record. Responses come inline or from a session.
func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req generateContentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.SessionID != "" && len(req.Responses) == 0 {
		sess, err := s.interviews.Get(req.SessionID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		req.Responses = sess.Responses
	}

	result, err := s.generator.GenerateContent(r.Context(), generation.ContentRequest{
		Responses: req.Responses,
		Tone:      req.Tone,
		Length:    req.Length,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	record := records.ContentRecord{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Title:     result.Title,
		Body:      result.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := record.Seal(s.vault); err != nil {
		respondError(w, http.StatusInternalServerError, "seal_failed", err.Error())
		return
	}
	if err := s.store.SaveContent(r.Context(), record); err != nil {
		log.Printf("httpapi: persist content record: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"record_id":  record.ID,
		"title":      result.Title,
		"body":       result.Body,
		"confidence": result.Confidence,
		"tier":       result.Tier.String(),
	})
}

func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListContent(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	summaries := make([]map[string]any, 0, len(list))
	for _, record := range list {
		summaries = append(summaries, map[string]any{
			"record_id":  record.ID,
			"session_id": record.SessionID,
			"title":      record.Title,
			"created_at": record.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": summaries})
}

// handleGetContent opens a sealed record. A failed decrypt still
// returns 200 with the sentinel text; the client decides what to offer.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	body := record.Open(s.vault)
	if body == vault.DecryptMalformedSentinel || body == vault.DecryptAuthSentinel {
		kind := "auth"
		if body == vault.DecryptMalformedSentinel {
			kind = "malformed"
		}
		log.Printf("httpapi: content record %s failed to decrypt (%s)", record.ID, kind)
		if s.metrics != nil {
			s.metrics.DecryptFailures.WithLabelValues(kind).Inc()
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"record_id":  record.ID,
		"session_id": record.SessionID,
		"title":      record.Title,
		"body":       body,
		"created_at": record.CreatedAt,
	})
}

type classifyEmotionRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleClassifyEmotion(w http.ResponseWriter, r *http.Request) {
	var req classifyEmotionRequest
	if err := decodeJSON(r, &req); err != nil && err != errEmptyBody {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.generator.ClassifyEmotion(r.Context(), req.Text))
}
