package brain

import (
	"time"

	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/nlu"
)

// Perception is the output of the perceive stage for one utterance.
type Perception struct {
	RawInput  string        `json:"raw_input"`
	Timestamp time.Time     `json:"timestamp"`
	Intent    nlu.Intent    `json:"intent"`
	Entities  nlu.EntitySet `json:"entities"`
}

// Decision is the routed result of reasoning over a Perception.
// Confidence equals Intent.Confidence after the reward boost.
type Decision struct {
	Module     string        `json:"module"`
	Intent     nlu.Intent    `json:"intent"`
	Entities   nlu.EntitySet `json:"entities"`
	Confidence float64       `json:"confidence"`
	Tier       learning.Tier `json:"tier"`
}

// Interaction is one entry of the conversation history.
type Interaction struct {
	Message   string     `json:"message"`
	Intent    nlu.Intent `json:"intent"`
	Module    string     `json:"module"`
	Timestamp time.Time  `json:"timestamp"`
}
