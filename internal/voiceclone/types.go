package voiceclone

import (
	"context"
	"errors"
)

var (
	ErrValidation           = errors.New("invalid input")
	ErrRemoteService        = errors.New("remote voice service failed")
	ErrUnsupportedOperation = errors.New("operation not supported for this voice model")
)

// VoiceSample is one recorded snippet offered for cloning. Duration is
// in seconds and may be zero when the caller could not measure it.
type VoiceSample struct {
	Data     []byte
	Filename string
	Duration float64
}

// CloneService is the remote provider surface the orchestrator needs.
type CloneService interface {
	Clone(ctx context.Context, name string, samples []VoiceSample) (voiceID string, err error)
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}
