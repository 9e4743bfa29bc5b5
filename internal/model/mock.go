package model

import (
	"context"
	"strings"
	"sync"
)

// MockRuntime is a scripted local runtime used when no inference server
// is configured, and by tests. Load emits the scripted progress
// fractions; Complete returns canned text or the injected failure.
type MockRuntime struct {
	mu sync.Mutex

	ProgressScript []float64
	LoadErr        error
	CompleteErr    error
	Reply          string

	loadCalls     int
	completeCalls int
	lastRequest   CompletionRequest
}

func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		ProgressScript: []float64{0.1, 0.35, 0.7, 0.96, 1},
		Reply:          "What memory from your childhood still makes you smile?",
	}
}

func (r *MockRuntime) Load(ctx context.Context, _ string, onProgress func(float64, string)) error {
	r.mu.Lock()
	r.loadCalls++
	script := append([]float64(nil), r.ProgressScript...)
	loadErr := r.LoadErr
	r.mu.Unlock()

	for _, fraction := range script {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onProgress != nil {
			onProgress(fraction, "")
		}
	}
	if loadErr != nil {
		return loadErr
	}
	return ctx.Err()
}

func (r *MockRuntime) Complete(_ context.Context, req CompletionRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCalls++
	r.lastRequest = req
	if r.CompleteErr != nil {
		return "", r.CompleteErr
	}
	if strings.TrimSpace(r.Reply) == "" {
		return "simulated reply", nil
	}
	return r.Reply, nil
}

func (r *MockRuntime) Close() error { return nil }

// LoadCalls reports how many loads were started; used to assert
// single-flight initialization.
func (r *MockRuntime) LoadCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadCalls
}

// CompleteCalls includes the manager's warm-up call.
func (r *MockRuntime) CompleteCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completeCalls
}

// LastRequest returns a copy of the most recent completion request.
func (r *MockRuntime) LastRequest() CompletionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRequest
}
