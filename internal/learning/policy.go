package learning

import "fmt"

// Default escalation thresholds.
const (
	DefaultAskThreshold    = 0.70
	DefaultNotifyThreshold = 0.80
)

// Tier is the action taken for a given confidence.
type Tier string

const (
	// TierExecute runs the decision without involving the user.
	TierExecute Tier = "execute"
	// TierNotify runs the decision, then asks for confirmation.
	TierNotify Tier = "notify"
	// TierAsk asks for confirmation before acting.
	TierAsk Tier = "ask"
)

// Thresholds are the tier boundaries: below Ask asks, below Notify notifies,
// anything else executes.
type Thresholds struct {
	Ask    float64 `json:"ask"`
	Notify float64 `json:"notify"`
}

// DefaultThresholds returns 0.70 / 0.80.
func DefaultThresholds() Thresholds {
	return Thresholds{Ask: DefaultAskThreshold, Notify: DefaultNotifyThreshold}
}

// Validate checks 0 <= Ask <= Notify <= 1.
func (t Thresholds) Validate() error {
	if t.Ask < 0 || t.Notify > 1 || t.Ask > t.Notify {
		return fmt.Errorf("thresholds must satisfy 0 <= ask (%v) <= notify (%v) <= 1", t.Ask, t.Notify)
	}
	return nil
}

// Escalation is the result of classifying a confidence. Exactly one of
// ShouldAsk, ShouldNotify and CanExecuteDirect is true.
type Escalation struct {
	ShouldAsk        bool    `json:"should_ask"`
	ShouldNotify     bool    `json:"should_notify"`
	CanExecuteDirect bool    `json:"can_execute_direct"`
	Confidence       float64 `json:"confidence"`
}

// Tier returns the tier named by the escalation flags.
func (e Escalation) Tier() Tier {
	switch {
	case e.ShouldAsk:
		return TierAsk
	case e.ShouldNotify:
		return TierNotify
	default:
		return TierExecute
	}
}

// Classify buckets confidence against the thresholds.
func (t Thresholds) Classify(confidence float64) Escalation {
	return Escalation{
		ShouldAsk:        confidence < t.Ask,
		ShouldNotify:     confidence >= t.Ask && confidence < t.Notify,
		CanExecuteDirect: confidence >= t.Notify,
		Confidence:       confidence,
	}
}
