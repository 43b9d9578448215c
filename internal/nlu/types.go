package nlu

// UnknownIntent is the intent name returned when no rule matches.
const UnknownIntent = "unknown"

// Confidence levels produced by the classifier.
const (
	// DefaultConfidence is the confidence attached to UnknownIntent.
	DefaultConfidence = 0.3

	// PartialMatchConfidence is used when a pattern matches a substring.
	PartialMatchConfidence = 0.70

	// FullMatchConfidence is used when a pattern matches the whole input.
	FullMatchConfidence = 0.85
)

// Intent is a named user goal with a confidence score in [0,1].
type Intent struct {
	Name       string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Unknown returns the default intent.
func Unknown() Intent {
	return Intent{Name: UnknownIntent, Confidence: DefaultConfidence}
}

// IsUnknown reports whether the intent is the unknown fallback.
func (i Intent) IsUnknown() bool {
	return i.Name == UnknownIntent
}

// Duration is a time span mentioned in the utterance, e.g. "10 minutes".
type Duration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// EntitySet holds the structured values extracted from one utterance.
// Members are omitted when nothing of that kind was found.
type EntitySet struct {
	Numbers  []int     `json:"numbers,omitempty"`
	App      string    `json:"app,omitempty"`
	Duration *Duration `json:"duration,omitempty"`
}

// IsEmpty reports whether no entity was extracted.
func (e EntitySet) IsEmpty() bool {
	return len(e.Numbers) == 0 && e.App == "" && e.Duration == nil
}

// FirstNumber returns the leftmost number, if any.
func (e EntitySet) FirstNumber() (int, bool) {
	if len(e.Numbers) == 0 {
		return 0, false
	}
	return e.Numbers[0], true
}
