// Package brain sequences one utterance through perception, reasoning and
// learning and returns a routed Decision.
//
//	perceive  classify + extract + reward boost (clamped to [0,1])
//	reason    route intent -> module, attach escalation tier
//	learn     append to the bounded conversation history
//
// The stages run strictly in order within a call. Learning never changes
// the returned Decision.
//
// A Brain initializes its reward source lazily on the first Process call.
// If initialization fails the error is returned and the next call retries.
package brain
