package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/msrishav-28/Living-Heirloom/internal/fallback"
	"github.com/msrishav-28/Living-Heirloom/internal/model"
	"github.com/msrishav-28/Living-Heirloom/internal/observability"
)

var ErrValidation = errors.New("invalid input")

const (
	questionTemperature = 0.8
	contentTemperature  = 0.7
	emotionTemperature  = 0.1

	questionMaxTokens = 60
	contentMaxTokens  = 600
	emotionMaxTokens  = 8

	minQuestionLen = 10
	maxQuestionLen = 300
	minContentLen  = 50

	confidencePrimary   = 0.8
	confidenceContent   = 0.85
	confidenceEmotion   = 0.9
	confidenceHeuristic = 0.5
	confidenceTemplate  = 0.3
)

// Response is one answered interview question, in asking order.
type Response struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type QuestionRequest struct {
	Responses []Response `json:"responses"`
	Emotion   string     `json:"emotion"`
	Category  string     `json:"category"`
	Index     int        `json:"index"`
}

type QuestionResult struct {
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Tier       fallback.Tier `json:"tier"`
}

type ContentRequest struct {
	Responses []Response `json:"responses"`
	Tone      string     `json:"tone"`
	Length    string     `json:"length"`
}

type ContentResult struct {
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	Confidence float64       `json:"confidence"`
	Tier       fallback.Tier `json:"tier"`
}

type EmotionResult struct {
	Emotion    string        `json:"emotion"`
	Confidence float64       `json:"confidence"`
	Tier       fallback.Tier `json:"tier"`
}

// Completer is the slice of the model manager generation needs.
type Completer interface {
	IsReady() bool
	Complete(ctx context.Context, req model.CompletionRequest) (string, error)
}

// Service produces interview questions, heirloom content, and emotion
// labels. Every operation degrades through offline tiers instead of
// surfacing model failures; only caller input errors are returned.
type Service struct {
	model   Completer
	metrics *observability.Metrics
}

func NewService(completer Completer, metrics *observability.Metrics) *Service {
	return &Service{model: completer, metrics: metrics}
}

func (s *Service) GenerateQuestion(ctx context.Context, req QuestionRequest) QuestionResult {
	result := fallback.Run(ctx,
		func(ctx context.Context) (string, error) {
			return s.modelQuestion(ctx, req)
		},
		nil,
		func() string {
			return templateQuestion(req.Category, req.Index)
		},
	)
	s.observe("question", result.Tier, result.FailedErr)

	confidence := confidencePrimary
	if result.Degraded() {
		confidence = confidenceTemplate
	}
	return QuestionResult{Text: result.Value, Confidence: confidence, Tier: result.Tier}
}

func (s *Service) modelQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	raw, err := s.complete(ctx, model.CompletionRequest{
		Messages: []model.Message{
			{Role: "system", Content: "You are a gentle interviewer helping someone preserve their life story for their family. Ask exactly one warm, open question. Reply with the question only."},
			{Role: "user", Content: questionContext(req)},
		},
		Temperature: questionTemperature,
		MaxTokens:   questionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return polishQuestion(raw)
}

func questionContext(req QuestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview category: %s.\n", orDefault(req.Category, "general"))
	if req.Emotion != "" {
		fmt.Fprintf(&b, "The storyteller's current emotion: %s.\n", req.Emotion)
	}
	fmt.Fprintf(&b, "Answers so far: %d.\n", len(req.Responses))
	start := len(req.Responses) - 2
	if start < 0 {
		start = 0
	}
	for _, r := range req.Responses[start:] {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", r.Question, r.Answer)
	}
	b.WriteString("Ask the next question.")
	return b.String()
}

// polishQuestion normalizes a model question and rejects ones too short
// to be usable.
func polishQuestion(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.Trim(text, "\"'")
	text = strings.TrimSpace(text)
	if len(text) < minQuestionLen {
		return "", fmt.Errorf("question too short: %q", text)
	}
	if !strings.HasSuffix(text, "?") {
		text += "?"
	}
	if len(text) > maxQuestionLen {
		text = truncateAtWord(text, maxQuestionLen) + "…"
	}
	return text, nil
}

func truncateAtWord(text string, limit int) string {
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:")
}

type titledContent struct {
	title string
	body  string
}

func (s *Service) GenerateContent(ctx context.Context, req ContentRequest) (ContentResult, error) {
	if !hasAnswer(req.Responses) {
		return ContentResult{}, fmt.Errorf("%w: at least one answered question is required", ErrValidation)
	}

	result := fallback.Run(ctx,
		func(ctx context.Context) (titledContent, error) {
			return s.modelContent(ctx, req)
		},
		nil,
		func() titledContent {
			title, body := templateContent(req.Responses, req.Tone)
			return titledContent{title: title, body: body}
		},
	)
	s.observe("content", result.Tier, result.FailedErr)

	confidence := confidenceContent
	if result.Degraded() {
		confidence = confidenceTemplate
	}
	return ContentResult{
		Title:      result.Value.title,
		Body:       result.Value.body,
		Confidence: confidence,
		Tier:       result.Tier,
	}, nil
}

func (s *Service) modelContent(ctx context.Context, req ContentRequest) (titledContent, error) {
	raw, err := s.complete(ctx, model.CompletionRequest{
		Messages: []model.Message{
			{Role: "system", Content: fmt.Sprintf(
				"You write keepsake letters from interview answers. Write in a %s tone, about %d words. Start with a line formatted exactly as 'Title: <title>' and then the letter body.",
				orDefault(req.Tone, "warm"), lengthWords(req.Length))},
			{Role: "user", Content: contentContext(req.Responses)},
		},
		Temperature: contentTemperature,
		MaxTokens:   contentMaxTokens,
	})
	if err != nil {
		return titledContent{}, err
	}
	return parseTitledContent(raw)
}

func contentContext(responses []Response) string {
	var b strings.Builder
	b.WriteString("Interview answers:\n")
	for _, r := range responses {
		if strings.TrimSpace(r.Answer) == "" {
			continue
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", r.Question, r.Answer)
	}
	return b.String()
}

func lengthWords(length string) int {
	switch strings.ToLower(strings.TrimSpace(length)) {
	case "short":
		return 150
	case "long":
		return 500
	default:
		return 300
	}
}

func parseTitledContent(raw string) (titledContent, error) {
	text := strings.TrimSpace(raw)
	if len(text) < minContentLen {
		return titledContent{}, fmt.Errorf("content too short: %d chars", len(text))
	}

	title := "A Message For My Family"
	if line, rest, found := strings.Cut(text, "\n"); found {
		if t, ok := strings.CutPrefix(strings.TrimSpace(line), "Title:"); ok {
			title = strings.Trim(strings.TrimSpace(t), "\"")
			text = strings.TrimSpace(rest)
		}
	}
	if len(text) < minContentLen {
		return titledContent{}, fmt.Errorf("content body too short: %d chars", len(text))
	}
	return titledContent{title: title, body: text}, nil
}

func (s *Service) ClassifyEmotion(ctx context.Context, text string) EmotionResult {
	result := fallback.Run(ctx,
		func(ctx context.Context) (string, error) {
			return s.modelEmotion(ctx, text)
		},
		func(context.Context) (string, error) {
			label, ok := scoreEmotion(text)
			if !ok {
				return "", errors.New("no emotion keyword matched")
			}
			return label, nil
		},
		func() string { return DefaultEmotion },
	)
	s.observe("emotion", result.Tier, result.FailedErr)

	var confidence float64
	switch result.Tier {
	case fallback.TierPrimary:
		confidence = confidenceEmotion
	case fallback.TierSecondary:
		confidence = confidenceHeuristic
	default:
		confidence = confidenceTemplate
	}
	return EmotionResult{Emotion: result.Value, Confidence: confidence, Tier: result.Tier}
}

func (s *Service) modelEmotion(ctx context.Context, text string) (string, error) {
	raw, err := s.complete(ctx, model.CompletionRequest{
		Messages: []model.Message{
			{Role: "system", Content: "Classify the dominant emotion of the text. Answer with exactly one word from: " + strings.Join(AllowedEmotions(), ", ") + "."},
			{Role: "user", Content: text},
		},
		Temperature: emotionTemperature,
		MaxTokens:   emotionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	label := normalizeEmotion(raw)
	if !allowedEmotions[label] {
		return "", fmt.Errorf("label %q outside allowed set", label)
	}
	return label, nil
}

func (s *Service) complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	if !s.model.IsReady() {
		return "", model.ErrModelNotReady
	}
	return s.model.Complete(ctx, req)
}

func (s *Service) observe(operation string, tier fallback.Tier, failed error) {
	if failed != nil {
		log.Printf("generation: %s degraded to %s tier: %v", operation, tier, failed)
	}
	if s.metrics != nil {
		s.metrics.Generations.WithLabelValues(operation, tier.String()).Inc()
	}
}

func hasAnswer(responses []Response) bool {
	for _, r := range responses {
		if strings.TrimSpace(r.Answer) != "" {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
