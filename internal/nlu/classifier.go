package nlu

import (
	"fmt"
	"regexp"
	"strings"
)

// IntentRule declares an intent and the patterns that evidence it.
// Patterns are matched against the lowercased input. A `\w` class matches
// any Unicode letter, digit or underscore so accented input classifies the
// same as ASCII.
type IntentRule struct {
	Intent   string
	Patterns []string
}

// compiledPattern keeps a substring matcher and an anchored whole-input
// matcher for the same source pattern.
type compiledPattern struct {
	source  string
	partial *regexp.Regexp
	full    *regexp.Regexp
}

type intentRule struct {
	intent   string
	patterns []compiledPattern
}

// DefaultRules returns the built-in intent table in evaluation order.
func DefaultRules() []IntentRule {
	return []IntentRule{
		{Intent: "system.open", Patterns: []string{`open\s+(\w+)`, `launch\s+(\w+)`, `start\s+(\w+)`, `ouvre\s+(\w+)`, `lance\s+(\w+)`}},
		{Intent: "system.close", Patterns: []string{`close\s+(\w+)`, `quit\s+(\w+)`, `ferme\s+(\w+)`}},
		{Intent: "system.volume", Patterns: []string{`volume\s+(\d+)`, `set volume to\s+(\d+)`, `volume à\s+(\d+)`}},
		{Intent: "time.timer", Patterns: []string{`timer\s+(\d+)`, `set timer for\s+(\d+)`, `minuteur\s+(\d+)`}},
		{Intent: "info.weather", Patterns: []string{`weather`, `météo`, `what.*weather`, `quel temps`}},
		{Intent: "info.time", Patterns: []string{`what time`, `quelle heure`, `current time`}},
		{Intent: "math.calculate", Patterns: []string{`\d+\s*[\+\-\*/]\s*\d+`, `calculate`, `calcul`, `combien fait`}},
		{Intent: "math.derivative", Patterns: []string{`dérivée`, `derivative`, `dérive\s+`}},
		{Intent: "notes.create", Patterns: []string{`create note`, `make note`, `note:`, `crée note`, `nouvelle note`}},
		{Intent: "notes.read", Patterns: []string{`read note`, `show note`, `list notes`, `lis note`, `montre note`}},
		{Intent: "music.play", Patterns: []string{`play music`, `play\s+(\w+)`, `lance musique`, `joue`}},
	}
}

// Classifier maps utterances to intents using an ordered rule table.
// Safe for concurrent use: rules are compiled at construction and immutable.
type Classifier struct {
	rules []intentRule
}

// NewClassifier creates a classifier with the built-in rules.
func NewClassifier() *Classifier {
	c, err := NewClassifierWithRules(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("nlu: built-in intent rules: %v", err))
	}
	return c
}

// NewClassifierWithRules compiles a custom rule table. Rule order is the
// tie-break order. An invalid pattern is reported as an error.
func NewClassifierWithRules(rules []IntentRule) (*Classifier, error) {
	compiled := make([]intentRule, 0, len(rules))
	for _, r := range rules {
		if r.Intent == "" {
			return nil, fmt.Errorf("intent rule with empty name")
		}
		ir := intentRule{intent: r.Intent}
		for _, p := range r.Patterns {
			expr := unicodeWord(p)
			partial, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q for %s: %w", p, r.Intent, err)
			}
			full, err := regexp.Compile(`^(?:` + expr + `)$`)
			if err != nil {
				return nil, fmt.Errorf("compiling anchored pattern %q for %s: %w", p, r.Intent, err)
			}
			ir.patterns = append(ir.patterns, compiledPattern{source: p, partial: partial, full: full})
		}
		compiled = append(compiled, ir)
	}
	return &Classifier{rules: compiled}, nil
}

// Classify returns the best intent for text, or Unknown() when no pattern
// matches. A candidate replaces the current best only when strictly greater.
func (c *Classifier) Classify(text string) Intent {
	lower := strings.ToLower(text)
	best := Unknown()

	for _, rule := range c.rules {
		for _, p := range rule.patterns {
			if !p.partial.MatchString(lower) {
				continue
			}
			confidence := PartialMatchConfidence
			if p.full.MatchString(lower) {
				confidence = FullMatchConfidence
			}
			if confidence > best.Confidence {
				best = Intent{Name: rule.intent, Confidence: confidence}
			}
		}
	}

	return best
}

// Intents lists the intent names known to the classifier, in rule order.
func (c *Classifier) Intents() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.intent)
	}
	return names
}

// unicodeWord rewrites the ASCII-only `\w` class into its Unicode form.
// Escaped backslashes are left alone.
func unicodeWord(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			if pattern[i+1] == 'w' {
				b.WriteString(`[\p{L}\p{N}_]`)
			} else {
				b.WriteByte(pattern[i])
				b.WriteByte(pattern[i+1])
			}
			i++
			continue
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}
