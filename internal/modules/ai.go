package modules

import (
	"context"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/nyx/internal/brain"
)

// Replies of the ai module.
const (
	GreetingReply = "Hello! How can I help you today?"
	ThanksReply   = "You're welcome!"
	HelpReply     = "I'm not sure how to help with that. Try asking me to open an app, set a timer, or create a note."
)

var (
	greetingWords = map[string]bool{"hello": true, "hi": true, "hey": true, "bonjour": true, "salut": true}
	thanksWords   = map[string]bool{"merci": true}
)

// AI is the conversational fallback module.
type AI struct{}

// NewAI creates the ai module.
func NewAI() *AI { return &AI{} }

// Name returns "ai".
func (*AI) Name() string { return "ai" }

// Execute answers greetings and thanks, and offers help otherwise.
// Keywords are matched as whole words, except "thank" which also matches
// "thanks" and "thankful".
func (*AI) Execute(_ context.Context, message string, _ brain.Decision) (Result, error) {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	for _, w := range words {
		if greetingWords[w] {
			return Info(GreetingReply), nil
		}
	}
	for _, w := range words {
		if thanksWords[w] || strings.HasPrefix(w, "thank") {
			return Info(ThanksReply), nil
		}
	}
	return Info(HelpReply), nil
}
