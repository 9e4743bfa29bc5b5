package interview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msrishav-28/Living-Heirloom/internal/generation"
	"github.com/msrishav-28/Living-Heirloom/internal/observability"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("interview session not found")

// Session accumulates a storyteller's answers in asking order.
type Session struct {
	ID             string                `json:"session_id"`
	Category       string                `json:"category"`
	VoiceID        string                `json:"voice_id,omitempty"`
	Emotion        string                `json:"emotion,omitempty"`
	Status         Status                `json:"status"`
	Responses      []generation.Response `json:"responses"`
	StartedAt      time.Time             `json:"started_at"`
	LastActivityAt time.Time             `json:"last_activity_at"`
}

// NextIndex is the position of the next question to ask.
func (s *Session) NextIndex() int { return len(s.Responses) }

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	onExpire          func(*Session)
	metrics           *observability.Metrics
}

func NewManager(inactivityTimeout time.Duration, metrics *observability.Metrics) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
		metrics:           metrics,
	}
}

// SetExpireHook registers a callback for sessions ended by inactivity.
func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(category, voiceID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Category:       category,
		VoiceID:        voiceID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// AddResponse appends an answered question and returns the updated
// session. Order of arrival is the order preserved.
func (m *Manager) AddResponse(sessionID string, response generation.Response) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != StatusActive {
		return nil, ErrNotFound
	}
	s.Responses = append(s.Responses, response)
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

// SetEmotion records the storyteller's latest classified emotion.
func (m *Manager) SetEmotion(sessionID, emotion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.Emotion = emotion
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// SetVoice selects the cloned voice used when the session's content is
// read aloud.
func (m *Manager) SetVoice(sessionID, voiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.VoiceID = voiceID
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status == StatusActive && m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if m.metrics != nil {
			m.metrics.ActiveSessions.Dec()
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Responses = append([]generation.Response(nil), s.Responses...)
	return &c
}
