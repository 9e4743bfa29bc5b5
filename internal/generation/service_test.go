package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/msrishav-28/Living-Heirloom/internal/fallback"
	"github.com/msrishav-28/Living-Heirloom/internal/model"
)

type stubCompleter struct {
	ready bool
	reply string
	err   error
	calls int
	last  model.CompletionRequest
}

func (s *stubCompleter) IsReady() bool { return s.ready }

func (s *stubCompleter) Complete(_ context.Context, req model.CompletionRequest) (string, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestGenerateQuestionPrimary(t *testing.T) {
	stub := &stubCompleter{ready: true, reply: `"What made your childhood summers special"`}
	svc := NewService(stub, nil)

	got := svc.GenerateQuestion(context.Background(), QuestionRequest{Category: "memories"})
	if got.Tier != fallback.TierPrimary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if got.Text != "What made your childhood summers special?" {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Confidence != 0.8 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	if stub.last.Temperature != 0.8 || stub.last.MaxTokens != 60 {
		t.Fatalf("completion params = %+v", stub.last)
	}
}

func TestGenerateQuestionShortReplyFallsToTemplate(t *testing.T) {
	stub := &stubCompleter{ready: true, reply: "ok?"}
	svc := NewService(stub, nil)

	got := svc.GenerateQuestion(context.Background(), QuestionRequest{Category: "wisdom", Index: 1})
	if got.Tier != fallback.TierTertiary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if got.Text != questionPools["wisdom"][1] {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Confidence != 0.3 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestGenerateQuestionModelNotReady(t *testing.T) {
	stub := &stubCompleter{ready: false}
	svc := NewService(stub, nil)

	got := svc.GenerateQuestion(context.Background(), QuestionRequest{Category: "family", Index: 7})
	if got.Tier != fallback.TierTertiary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if stub.calls != 0 {
		t.Fatalf("model called %d times while unready", stub.calls)
	}
	// Index wraps around the pool.
	if got.Text != questionPools["family"][7%len(questionPools["family"])] {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestGenerateQuestionTemplateIsDeterministic(t *testing.T) {
	stub := &stubCompleter{ready: false}
	svc := NewService(stub, nil)

	req := QuestionRequest{Category: "values", Index: 2}
	first := svc.GenerateQuestion(context.Background(), req)
	second := svc.GenerateQuestion(context.Background(), req)
	if first.Text != second.Text {
		t.Fatalf("same index produced different questions: %q vs %q", first.Text, second.Text)
	}
}

func TestGenerateQuestionTruncatesLongReply(t *testing.T) {
	long := strings.Repeat("what about the days you spent ", 20)
	stub := &stubCompleter{ready: true, reply: long}
	svc := NewService(stub, nil)

	got := svc.GenerateQuestion(context.Background(), QuestionRequest{})
	if len(got.Text) > 310 {
		t.Fatalf("question not truncated: %d chars", len(got.Text))
	}
	if !strings.HasSuffix(got.Text, "…") {
		t.Fatalf("truncated question missing ellipsis: %q", got.Text)
	}
}

func TestGenerateQuestionTruncatesMultibyteOnRuneBoundary(t *testing.T) {
	long := "a" + strings.Repeat("記", 150)
	stub := &stubCompleter{ready: true, reply: long}
	svc := NewService(stub, nil)

	got := svc.GenerateQuestion(context.Background(), QuestionRequest{})
	if !utf8.ValidString(got.Text) {
		t.Fatalf("truncated question is not valid UTF-8: %q", got.Text)
	}
	if !strings.HasSuffix(got.Text, "…") {
		t.Fatalf("truncated question missing ellipsis: %q", got.Text)
	}
}

func TestGenerateContentRequiresAnswer(t *testing.T) {
	svc := NewService(&stubCompleter{ready: true}, nil)

	_, err := svc.GenerateContent(context.Background(), ContentRequest{
		Responses: []Response{{Question: "q", Answer: "   "}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGenerateContentParsesTitle(t *testing.T) {
	reply := "Title: The Lake House Years\n" + strings.Repeat("We spent every summer there. ", 5)
	stub := &stubCompleter{ready: true, reply: reply}
	svc := NewService(stub, nil)

	got, err := svc.GenerateContent(context.Background(), ContentRequest{
		Responses: []Response{{Question: "q", Answer: "the lake house"}},
		Tone:      "warm",
		Length:    "short",
	})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got.Tier != fallback.TierPrimary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if got.Title != "The Lake House Years" {
		t.Fatalf("title = %q", got.Title)
	}
	if strings.Contains(got.Body, "Title:") {
		t.Fatalf("title line left in body: %q", got.Body)
	}
	if got.Confidence != 0.85 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestGenerateContentForcedFailureUsesTemplate(t *testing.T) {
	stub := &stubCompleter{ready: true, err: errors.New("model crashed")}
	svc := NewService(stub, nil)

	got, err := svc.GenerateContent(context.Background(), ContentRequest{
		Responses: []Response{
			{Question: "q1", Answer: "I remember the old farmhouse"},
			{Question: "q2", Answer: "the lesson I learned was patience"},
		},
		Tone: "heartfelt",
	})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got.Tier != fallback.TierTertiary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if got.Title == "" || got.Body == "" {
		t.Fatalf("template produced empty output: %+v", got)
	}
	if !strings.Contains(got.Body, "farmhouse") {
		t.Fatalf("answer missing from template body: %q", got.Body)
	}
}

func TestClassifyEmotionPrimary(t *testing.T) {
	stub := &stubCompleter{ready: true, reply: " Joyful.\n"}
	svc := NewService(stub, nil)

	got := svc.ClassifyEmotion(context.Background(), "we laughed all night")
	if got.Emotion != "joyful" || got.Tier != fallback.TierPrimary || got.Confidence != 0.9 {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyEmotionHeuristicWhenModelOffLabel(t *testing.T) {
	stub := &stubCompleter{ready: true, reply: "cheerful"}
	svc := NewService(stub, nil)

	got := svc.ClassifyEmotion(context.Background(), "I remember my childhood, those days at the shore")
	if got.Tier != fallback.TierSecondary {
		t.Fatalf("tier = %s", got.Tier)
	}
	if got.Emotion != "nostalgic" {
		t.Fatalf("emotion = %q", got.Emotion)
	}
	if got.Confidence != 0.5 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
}

func TestClassifyEmotionDefaultsToReflective(t *testing.T) {
	stub := &stubCompleter{ready: false}
	svc := NewService(stub, nil)

	got := svc.ClassifyEmotion(context.Background(), "the quarterly report is attached")
	if got.Emotion != DefaultEmotion || got.Tier != fallback.TierTertiary || got.Confidence != 0.3 {
		t.Fatalf("got %+v", got)
	}
}

func TestClassifyEmotionAlwaysInAllowedSet(t *testing.T) {
	inputs := []string{
		"we laughed until sunrise",
		"I miss the way things used to be",
		"nothing in particular",
		"I am so proud of what we built",
		"",
	}
	for _, ready := range []bool{true, false} {
		stub := &stubCompleter{ready: ready, reply: "???"}
		svc := NewService(stub, nil)
		for _, text := range inputs {
			got := svc.ClassifyEmotion(context.Background(), text)
			if !IsAllowedEmotion(got.Emotion) {
				t.Fatalf("emotion %q outside allowed set (ready=%v, text=%q)", got.Emotion, ready, text)
			}
		}
	}
}
