package generation

import "strings"

// DefaultEmotion is used when nothing else can be inferred.
const DefaultEmotion = "reflective"

// allowedEmotions is the closed label set. Model output outside this
// set counts as a failed completion.
var allowedEmotions = map[string]bool{
	"joyful":        true,
	"nostalgic":     true,
	"melancholic":   true,
	"hopeful":       true,
	"grateful":      true,
	"reflective":    true,
	"loving":        true,
	"peaceful":      true,
	"excited":       true,
	"contemplative": true,
	"vulnerable":    true,
	"proud":         true,
	"wistful":       true,
	"serene":        true,
	"passionate":    true,
}

// AllowedEmotions returns the label set as a sorted-free slice for
// prompt construction.
func AllowedEmotions() []string {
	out := make([]string, 0, len(allowedEmotions))
	for label := range allowedEmotions {
		out = append(out, label)
	}
	return out
}

// IsAllowedEmotion reports whether label is in the closed set.
func IsAllowedEmotion(label string) bool {
	return allowedEmotions[normalizeEmotion(label)]
}

func normalizeEmotion(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.Trim(label, ".,!?\"' ")
}

var emotionKeywords = map[string][]string{
	"joyful":      {"happy", "laugh", "joy", "fun", "smile", "delight"},
	"nostalgic":   {"remember", "back then", "childhood", "used to", "those days", "miss"},
	"melancholic": {"sad", "loss", "lost", "grief", "lonely", "gone"},
	"hopeful":     {"hope", "future", "dream", "better", "someday", "wish"},
	"grateful":    {"thankful", "grateful", "blessed", "appreciate", "lucky"},
	"loving":      {"love", "dear", "cherish", "heart", "adore"},
	"peaceful":    {"calm", "quiet", "peace", "still", "gentle"},
	"excited":     {"excited", "thrill", "can't wait", "amazing", "incredible"},
	"proud":       {"proud", "accomplish", "achievement", "overcame", "earned"},
	"wistful":     {"wish I", "if only", "longing", "yearn"},
}

// scoreEmotion runs the keyword heuristic. ok is false when no keyword
// matched at all.
func scoreEmotion(text string) (string, bool) {
	lower := strings.ToLower(text)
	best, bestScore := "", 0
	for label, keywords := range emotionKeywords {
		score := 0
		for _, kw := range keywords {
			score += strings.Count(lower, kw)
		}
		if score > bestScore || (score == bestScore && score > 0 && label < best) {
			best, bestScore = label, score
		}
	}
	if bestScore == 0 {
		return "", false
	}
	return best, true
}
