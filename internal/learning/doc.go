// Package learning holds the state that lets the assistant improve from
// feedback: a persistent reward table and the feedback escalation policy.
//
// # Reward table
//
// RewardTable maps "<lowercased message>:<intent>" to a scalar estimate that
// drifts toward observed rewards by exponential smoothing:
//
//	new = old + alpha*(reward - old)    // alpha = 0.1, old defaults to 0
//
// Each (message, intent) pair is an independent estimate; there is no state
// transition or discounting. The estimate is turned into a confidence
// adjustment clamped to [-0.2, +0.2] by ConfidenceBoost.
//
// The whole table is rewritten synchronously to <data_dir>/q_learning.json
// after every update. There is no temp-file rename: a crash during the write
// can lose or corrupt the file, and a failed write leaves memory ahead of
// disk until the next successful save.
//
// # Feedback policy
//
// FeedbackPolicy buckets a confidence into one of three tiers:
//
//	confidence < 0.70          ask      (confirm before acting)
//	0.70 <= confidence < 0.80  notify   (act, then ask)
//	confidence >= 0.80         execute  (act)
//
// RequestFeedback stores a pending entry and emits an intent-confirmation
// event through a FeedbackEmitter. ResolveFeedback later turns the user's
// answer into a reward update:
//
//	confirm  +1.0 on the original intent
//	reject   -0.5 on the original intent
//	correct  +1.0 on the replacement intent
//
// Unknown, expired and already-resolved ids are ignored. Pending entries are
// bounded by a TTL and a capacity so unanswered requests cannot accumulate.
package learning
