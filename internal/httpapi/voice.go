package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/msrishav-28/Living-Heirloom/internal/voiceclone"
)

// handleCloneVoice accepts a multipart form with a name field and one
// file part per sample.
func (s *Server) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.EnableVoice {
		respondError(w, http.StatusNotImplemented, "voice_disabled", "Voice features are disabled.")
		return
	}
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize + (1 << 20)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var samples []voiceclone.VoiceSample
	for _, header := range r.MultipartForm.File["samples"] {
		file, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxFileSize+1))
		file.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		samples = append(samples, voiceclone.VoiceSample{
			Data:     data,
			Filename: header.Filename,
		})
	}

	model, err := s.voices.CloneVoice(r.Context(), r.FormValue("name"), samples)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, model)
}

func (s *Server) handleListVoiceModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.voices.ListModels(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleActivateVoiceModel(w http.ResponseWriter, r *http.Request) {
	if err := s.voices.SetActive(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "active"})
}

func (s *Server) handleDeleteVoiceModel(w http.ResponseWriter, r *http.Request) {
	if err := s.voices.DeleteModel(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.EnableVoice {
		respondError(w, http.StatusNotImplemented, "voice_disabled", "Voice features are disabled.")
		return
	}
	var req synthesizeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	audio, err := s.voices.SynthesizeSpeech(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", sniffAudioContentType(audio))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func sniffAudioContentType(audio []byte) string {
	if len(audio) >= 4 && string(audio[:4]) == "RIFF" {
		return "audio/wav"
	}
	return "audio/mpeg"
}
