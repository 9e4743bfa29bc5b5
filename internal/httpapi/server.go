package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/msrishav-28/Living-Heirloom/internal/config"
	"github.com/msrishav-28/Living-Heirloom/internal/generation"
	"github.com/msrishav-28/Living-Heirloom/internal/interview"
	"github.com/msrishav-28/Living-Heirloom/internal/model"
	"github.com/msrishav-28/Living-Heirloom/internal/observability"
	"github.com/msrishav-28/Living-Heirloom/internal/records"
	"github.com/msrishav-28/Living-Heirloom/internal/vault"
	"github.com/msrishav-28/Living-Heirloom/internal/voiceclone"
)

type Server struct {
	cfg        config.Config
	models     *model.Manager
	generator  *generation.Service
	voices     *voiceclone.Orchestrator
	interviews *interview.Manager
	store      records.Store
	vault      *vault.Vault
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, models *model.Manager, generator *generation.Service,
	voices *voiceclone.Orchestrator, interviews *interview.Manager,
	store records.Store, v *vault.Vault, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		models:     models,
		generator:  generator,
		voices:     voices,
		interviews: interviews,
		store:      store,
		vault:      v,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may watch model progress unless
				// the deployment explicitly opts out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/model/initialize", s.handleModelInitialize)
	r.Get("/v1/model/status", s.handleModelStatus)
	r.Get("/v1/model/progress/ws", s.handleModelProgressWS)

	r.Post("/v1/interview/session", s.handleCreateSession)
	r.Post("/v1/interview/session/{id}/responses", s.handleAddResponse)
	r.Post("/v1/interview/session/{id}/end", s.handleEndSession)

	r.Post("/v1/generate/question", s.handleGenerateQuestion)
	r.Post("/v1/generate/content", s.handleGenerateContent)
	r.Post("/v1/generate/emotion", s.handleClassifyEmotion)

	r.Get("/v1/content", s.handleListContent)
	r.Get("/v1/content/{id}", s.handleGetContent)

	r.Post("/v1/voice/clone", s.handleCloneVoice)
	r.Get("/v1/voice/models", s.handleListVoiceModels)
	r.Post("/v1/voice/models/{id}/activate", s.handleActivateVoiceModel)
	r.Delete("/v1/voice/models/{id}", s.handleDeleteVoiceModel)
	r.Post("/v1/voice/synthesize", s.handleSynthesize)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"ai_enabled":    s.cfg.EnableAI,
		"voice_enabled": s.cfg.EnableVoice,
		"store_mode":    s.cfg.StoreMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.EnableAI && !s.models.IsReady() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":      "initializing",
			"model_state": string(s.models.State()),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"model_state": string(s.models.State()),
	})
}

func (s *Server) handleModelInitialize(w http.ResponseWriter, _ *http.Request) {
	if !s.cfg.EnableAI {
		respondError(w, http.StatusNotImplemented, "ai_disabled", "AI features are disabled.")
		return
	}
	go func() {
		if err := s.models.Initialize(context.Background()); err != nil {
			log.Printf("httpapi: model initialize: %v", err)
		}
	}()
	respondJSON(w, http.StatusAccepted, map[string]any{
		"state": string(s.models.State()),
	})
}

func (s *Server) handleModelStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"state": string(s.models.State()),
		"ready": s.models.IsReady(),
	})
}

// handleModelProgressWS streams progress events. The current state is
// sent on connect so late subscribers are never blank.
func (s *Server) handleModelProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := make(chan model.ProgressEvent, 64)
	unsubscribe := s.models.OnProgress(func(ev model.ProgressEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	state := s.models.State()
	first := model.ProgressEvent{Message: "current state: " + string(state), Stage: stageForState(state)}
	if state == model.StateReady {
		first.Fraction = 1
	}
	if err := writeEvent(conn, first); err != nil {
		return
	}

	// Reads only serve to detect the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev model.ProgressEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(ev)
}

func stageForState(state model.State) model.Stage {
	switch state {
	case model.StateDownloading:
		return model.StageDownloading
	case model.StateInitializing:
		return model.StageLoading
	case model.StateReady:
		return model.StageReady
	case model.StateError:
		return model.StageError
	default:
		return ""
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondServiceError maps domain errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generation.ErrValidation),
		errors.Is(err, voiceclone.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, interview.ErrNotFound),
		errors.Is(err, records.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, voiceclone.ErrUnsupportedOperation):
		respondError(w, http.StatusUnprocessableEntity, "unsupported_operation", err.Error())
	case errors.Is(err, voiceclone.ErrRemoteService):
		respondError(w, http.StatusBadGateway, "remote_service_error", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
