package generation

import (
	"fmt"
	"strings"
)

// questionPools holds the offline question banks. The interview index
// picks deterministically so a restarted session sees the same order.
var questionPools = map[string][]string{
	"memories": {
		"What is a childhood memory that still makes you smile?",
		"Can you describe a moment when you felt truly proud of yourself?",
		"What family tradition do you treasure the most?",
		"Tell me about a place that holds special meaning for you?",
		"What is a small everyday moment you wish you could relive?",
	},
	"wisdom": {
		"What is the most important lesson life has taught you?",
		"What advice would you give to your younger self?",
		"What belief have you changed your mind about over the years?",
		"What do you know now that you wish you had known at twenty?",
	},
	"values": {
		"What principle have you tried never to compromise on?",
		"What does a good life mean to you?",
		"When have your values been tested the most?",
		"What quality do you admire most in other people?",
	},
	"family": {
		"What do you want your grandchildren to know about you?",
		"How did your parents shape the person you became?",
		"What family story deserves to be passed down?",
		"What do you hope your family remembers about your home?",
	},
	"future": {
		"What are your hopes for the generations that come after you?",
		"What change in the world would you most like to see?",
		"What dream do you still carry with you?",
		"What would you like your legacy to be?",
	},
	"general": {
		"What has brought you the most joy in life?",
		"Is there a story you have never told anyone?",
		"What are you most grateful for today?",
		"Who has influenced your life the most?",
	},
}

// templateQuestion returns the index-th question of the category pool,
// wrapping around. Unknown categories use the general pool.
func templateQuestion(category string, index int) string {
	pool, ok := questionPools[strings.ToLower(strings.TrimSpace(category))]
	if !ok || len(pool) == 0 {
		pool = questionPools["general"]
	}
	if index < 0 {
		index = 0
	}
	return pool[index%len(pool)]
}

type answerClass struct {
	keywords []string
	sentence string
}

// answerClasses map an answer to a templated sentence for the offline
// letter. First match wins; order is specific to generic.
var answerClasses = []answerClass{
	{
		keywords: []string{"remember", "memory", "childhood", "used to", "back then", "grew up"},
		sentence: "I carry this memory with me: %s",
	},
	{
		keywords: []string{"learn", "lesson", "advice", "wisdom", "taught", "realize"},
		sentence: "If I can pass on one piece of what I learned, it is this: %s",
	},
	{
		keywords: []string{"legacy", "remember me", "pass down", "generations", "after I", "leave behind"},
		sentence: "When you think of me, I hope you remember this: %s",
	},
	{
		keywords: []string{"hope", "future", "dream", "wish", "someday", "one day"},
		sentence: "My hope for you is simple: %s",
	},
}

var toneTitles = map[string]string{
	"warm":       "A Letter From the Heart",
	"heartfelt":  "Words I Want You to Keep",
	"reflective": "Looking Back, Looking Forward",
	"playful":    "A Few Things Worth Smiling About",
	"formal":     "For the Record, With Love",
}

// templateContent builds the offline letter: each answer classified by
// keyword into a sentence, joined under a tone-appropriate title.
func templateContent(responses []Response, tone string) (string, string) {
	title, ok := toneTitles[strings.ToLower(strings.TrimSpace(tone))]
	if !ok {
		title = "A Message For My Family"
	}

	var lines []string
	for _, r := range responses {
		answer := strings.TrimSpace(r.Answer)
		if answer == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf(classifyAnswer(answer), answer))
	}
	lines = append(lines, "These words were gathered with care, so that a part of me stays with you.")
	return title, strings.Join(lines, "\n\n")
}

func classifyAnswer(answer string) string {
	lower := strings.ToLower(answer)
	for _, class := range answerClasses {
		for _, kw := range class.keywords {
			if strings.Contains(lower, kw) {
				return class.sentence
			}
		}
	}
	return "I want you to know this about my life: %s"
}
