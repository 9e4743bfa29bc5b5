package model

import "context"

// State is the lifecycle state of the inference runtime.
type State string

const (
	StateUnloaded     State = "unloaded"
	StateDownloading  State = "downloading"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateError        State = "error"
)

// Stage classifies a progress event for subscribers.
type Stage string

const (
	StageDownloading Stage = "downloading"
	StageLoading     Stage = "loading"
	StageReady       Stage = "ready"
	StageError       Stage = "error"
)

// ProgressEvent is broadcast while the runtime loads. Ephemeral; never
// persisted.
type ProgressEvent struct {
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
	Stage    Stage   `json:"stage"`
}

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single inference call against a loaded model.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Runtime is the external inference runtime collaborator. Load reports
// fractional progress through onProgress; message may be empty, in which
// case the manager supplies a staged one.
type Runtime interface {
	Load(ctx context.Context, modelID string, onProgress func(fraction float64, message string)) error
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Close() error
}

// isValidTransition enforces the allowed lifecycle edges. Any state may
// fail into error; only an explicit unload leaves error.
func isValidTransition(from, to State) bool {
	if to == StateError || to == StateUnloaded {
		return true
	}
	switch from {
	case StateUnloaded:
		return to == StateDownloading
	case StateDownloading:
		return to == StateInitializing
	case StateInitializing:
		return to == StateReady
	default:
		return false
	}
}
