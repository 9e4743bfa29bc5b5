package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/msrishav-28/Living-Heirloom/internal/config"
	"github.com/msrishav-28/Living-Heirloom/internal/generation"
	"github.com/msrishav-28/Living-Heirloom/internal/httpapi"
	"github.com/msrishav-28/Living-Heirloom/internal/interview"
	"github.com/msrishav-28/Living-Heirloom/internal/model"
	"github.com/msrishav-28/Living-Heirloom/internal/observability"
	"github.com/msrishav-28/Living-Heirloom/internal/records"
	"github.com/msrishav-28/Living-Heirloom/internal/vault"
	"github.com/msrishav-28/Living-Heirloom/internal/voiceclone"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("record store init failed: %v", err)
	}
	defer store.Close()
	log.Printf("record store: %s", cfg.StoreMode)

	v, err := vault.NewVault(cfg.StoreDir, cfg.VaultPassphrase)
	if err != nil {
		log.Fatalf("vault init failed: %v", err)
	}

	runtime := newRuntime(ctx, cfg)
	models := model.NewManager(runtime, cfg.ModelID, cfg.ModelLoadTimeout, metrics)
	defer models.Unload()

	generator := generation.NewService(models, metrics)

	var cloneClient voiceclone.CloneService
	if cfg.EnableVoice && strings.TrimSpace(cfg.ElevenLabsAPIKey) != "" {
		cloneClient = voiceclone.NewElevenLabsClient(voiceclone.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			BaseURL:    cfg.ElevenLabsBaseURL,
			TTSModelID: cfg.ElevenLabsTTSModel,
		})
		log.Printf("voice provider: elevenlabs")
	} else if cfg.EnableVoice {
		log.Printf("voice provider: none (clones degrade to local records)")
	}
	voices := voiceclone.NewOrchestrator(cloneClient, store, v, voiceclone.Limits{
		RequiredSamples: cfg.RequiredSamples,
		MaxFileSize:     cfg.MaxFileSize,
		MaxTextLength:   cfg.MaxTextLength,
	}, metrics)

	interviews := interview.NewManager(cfg.SessionInactivityTimeout, metrics)
	interviews.SetExpireHook(func(s *interview.Session) {
		log.Printf("interview session %s expired after inactivity", s.ID)
	})

	api := httpapi.New(cfg, models, generator, voices, interviews, store, v, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	interviews.StartJanitor(runCtx, time.Minute)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case ev := <-models.Notifications():
				log.Printf("model progress: %.0f%% %s (%s)", ev.Fraction*100, ev.Message, ev.Stage)
			}
		}
	}()

	if cfg.EnableAI {
		go func() {
			if err := models.Initialize(runCtx); err != nil {
				log.Printf("model preload failed (retry via /v1/model/initialize): %v", err)
			}
		}()
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func newStore(ctx context.Context, cfg config.Config) (records.Store, error) {
	switch cfg.StoreMode {
	case "memory":
		return records.NewMemoryStore(), nil
	case "postgres":
		return records.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return records.NewDiskStore(cfg.StoreDir, cfg.StoreQuotaBytes)
	}
}

// newRuntime picks the inference backend. "auto" probes the local
// Ollama server and falls back to the mock runtime so the rest of the
// app keeps working without it.
func newRuntime(ctx context.Context, cfg config.Config) model.Runtime {
	switch strings.ToLower(strings.TrimSpace(cfg.ModelProvider)) {
	case "mock":
		log.Printf("model provider: mock")
		return model.NewMockRuntime()
	case "ollama":
		log.Printf("model provider: ollama at %s", cfg.OllamaURL)
		return model.NewOllamaRuntime(cfg.OllamaURL)
	default:
		probe := model.NewOllamaRuntime(cfg.OllamaURL)
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if probe.Healthy(probeCtx) {
			log.Printf("model provider: ollama at %s", cfg.OllamaURL)
			return probe
		}
		log.Printf("model provider: mock (ollama unreachable at %s)", cfg.OllamaURL)
		return model.NewMockRuntime()
	}
}
