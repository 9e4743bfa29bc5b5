package model

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/msrishav-28/Living-Heirloom/internal/observability"
	"github.com/msrishav-28/Living-Heirloom/internal/reliability"
)

var (
	// ErrModelNotReady is returned by Complete when no model is loaded.
	ErrModelNotReady = errors.New("model not ready")
	// ErrTimeout marks a model load that exceeded its deadline; retryable.
	ErrTimeout = errors.New("model load timed out")
	// ErrInsufficientResources marks a load failure caused by memory or
	// device constraints rather than a transient fault.
	ErrInsufficientResources = errors.New("insufficient resources for model load")
	// ErrLoadAbandoned is returned to Initialize callers whose in-flight
	// load was cut short by Unload.
	ErrLoadAbandoned = errors.New("model load abandoned by unload")
)

const (
	initializingThreshold = 0.95
	warmupTimeout         = 10 * time.Second
)

// Manager owns the inference runtime lifecycle: download, readiness,
// timeout, warm-up and unload. Construct one at bootstrap and share it
// by reference.
type Manager struct {
	runtime     Runtime
	modelID     string
	loadTimeout time.Duration
	metrics     *observability.Metrics

	mu       sync.Mutex
	state    State
	inFlight bool
	loadGen  int
	done     chan struct{}
	loadErr  error

	subs    map[int]func(ProgressEvent)
	nextSub int
	notify  chan ProgressEvent
}

func NewManager(runtime Runtime, modelID string, loadTimeout time.Duration, metrics *observability.Metrics) *Manager {
	if loadTimeout <= 0 {
		loadTimeout = 120 * time.Second
	}
	return &Manager{
		runtime:     runtime,
		modelID:     modelID,
		loadTimeout: loadTimeout,
		metrics:     metrics,
		state:       StateUnloaded,
		subs:        make(map[int]func(ProgressEvent)),
		notify:      make(chan ProgressEvent, 64),
	}
}

// Initialize loads the model if needed. It is idempotent: a ready model
// returns immediately, and concurrent callers attach to the in-flight
// load instead of starting a second download. The load itself runs
// against the configured timeout, not the caller's context, so one
// impatient caller cannot abort a shared download.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return nil
	}
	if m.inFlight {
		done := m.done
		m.mu.Unlock()
		select {
		case <-done:
			return m.loadError()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.inFlight = true
	m.loadGen++
	gen := m.loadGen
	m.done = make(chan struct{})
	done := m.done
	if m.state == StateError {
		// A failed load retries cleanly; error only exits through unloaded.
		m.setStateLocked(StateUnloaded)
	}
	m.setStateLocked(StateDownloading)
	m.mu.Unlock()

	go m.runLoad(gen)

	select {
	case <-done:
		return m.loadError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runLoad(gen int) {
	started := time.Now()
	loadCtx, cancel := context.WithTimeout(context.Background(), m.loadTimeout)
	defer cancel()

	err := m.runtime.Load(loadCtx, m.modelID, func(fraction float64, message string) {
		m.onRuntimeProgress(gen, fraction, message)
	})
	err = m.classifyLoadError(loadCtx, err)

	m.mu.Lock()
	if gen != m.loadGen {
		// Unload raced the load; the result belongs to a dead attempt.
		m.mu.Unlock()
		return
	}
	m.loadErr = err
	m.inFlight = false
	if err != nil {
		m.setStateLocked(StateError)
	} else {
		if m.state == StateDownloading {
			m.setStateLocked(StateInitializing)
		}
		m.setStateLocked(StateReady)
	}
	done := m.done
	m.mu.Unlock()

	if err != nil {
		m.broadcast(ProgressEvent{Fraction: 0, Message: err.Error(), Stage: StageError})
		if m.metrics != nil {
			m.metrics.ModelLoads.WithLabelValues("error").Inc()
		}
		close(done)
		return
	}

	m.broadcast(ProgressEvent{Fraction: 1, Message: "model ready", Stage: StageReady})
	if m.metrics != nil {
		m.metrics.ModelLoads.WithLabelValues("ready").Inc()
		m.metrics.ObserveModelLoadDuration(time.Since(started))
	}
	m.warmup()
	close(done)
}

func (m *Manager) classifyLoadError(loadCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(loadCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, m.loadTimeout)
	}
	if reliability.IsResourceExhaustion(err.Error()) {
		return fmt.Errorf("%w: %v", ErrInsufficientResources, err)
	}
	return fmt.Errorf("model load failed: %w", err)
}

// warmup issues one low-cost completion so latent runtime faults surface
// before the first user request. Failure is logged, never fatal.
func (m *Manager) warmup() {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()
	_, err := m.runtime.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: "user", Content: "Hello"}},
		Temperature: 0,
		MaxTokens:   4,
	})
	if err != nil {
		log.Printf("model warm-up failed (model stays ready): %v", err)
	}
}

func (m *Manager) onRuntimeProgress(gen int, fraction float64, message string) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	m.mu.Lock()
	if gen != m.loadGen || !m.inFlight {
		m.mu.Unlock()
		return
	}
	if fraction >= initializingThreshold && m.state == StateDownloading {
		m.setStateLocked(StateInitializing)
	}
	stage := StageDownloading
	if m.state == StateInitializing {
		stage = StageLoading
	}
	m.mu.Unlock()

	if message == "" {
		message = stageMessage(fraction)
	}
	m.broadcast(ProgressEvent{Fraction: fraction, Message: message, Stage: stage})
}

// stageMessage maps a load fraction to user-facing progress text.
func stageMessage(fraction float64) string {
	switch {
	case fraction < 0.2:
		return "downloading model"
	case fraction < 0.5:
		return "processing model files"
	case fraction < 0.8:
		return "preparing model"
	default:
		return "finalizing"
	}
}

// OnProgress registers a subscriber and returns its unsubscribe func.
// Broadcasts are synchronous to all subscribers current at emit time.
func (m *Manager) OnProgress(fn func(ProgressEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Notifications is a best-effort side channel for components that cannot
// hold a subscription. When the buffer is full the oldest event is
// dropped so broadcasting never blocks.
func (m *Manager) Notifications() <-chan ProgressEvent {
	return m.notify
}

func (m *Manager) broadcast(ev ProgressEvent) {
	m.mu.Lock()
	fns := make([]func(ProgressEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}

	select {
	case m.notify <- ev:
	default:
		select {
		case <-m.notify:
		default:
		}
		select {
		case m.notify <- ev:
		default:
		}
	}
}

// IsReady is a pure state read.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReady
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Complete issues one inference call against the ready model.
func (m *Manager) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !m.IsReady() {
		return "", ErrModelNotReady
	}
	return m.runtime.Complete(ctx, req)
}

// Unload resets the lifecycle to unloaded and abandons any in-flight
// load; a later Initialize starts a clean attempt.
func (m *Manager) Unload() {
	m.mu.Lock()
	wasInFlight := m.inFlight
	m.inFlight = false
	m.loadGen++
	if wasInFlight {
		m.loadErr = ErrLoadAbandoned
	} else {
		m.loadErr = nil
	}
	done := m.done
	m.done = nil
	m.setStateLocked(StateUnloaded)
	m.mu.Unlock()

	if wasInFlight && done != nil {
		// Release attached waiters; they observe the abandonment error.
		close(done)
	}
	if err := m.runtime.Close(); err != nil {
		log.Printf("model runtime close: %v", err)
	}
}

func (m *Manager) loadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}

func (m *Manager) setStateLocked(next State) {
	if m.state == next {
		return
	}
	if !isValidTransition(m.state, next) {
		log.Printf("model state transition rejected: %s -> %s", m.state, next)
		return
	}
	m.state = next
}
