package learning

import "errors"

var (
	// ErrPersistFailed indicates the reward table could not be written.
	// The in-memory value still holds the new estimate.
	ErrPersistFailed = errors.New("failed to persist reward table")

	// ErrCorruptTable indicates the persisted table could not be decoded.
	ErrCorruptTable = errors.New("reward table file is corrupt")

	// ErrUnknownAction indicates a feedback response with an unsupported action.
	ErrUnknownAction = errors.New("unknown feedback action")

	// ErrMissingCorrectIntent indicates a correct action without a replacement intent.
	ErrMissingCorrectIntent = errors.New("correct action requires correct_intent")

	// ErrInvalidReward indicates a reward that is NaN or infinite, or an
	// update whose result would be.
	ErrInvalidReward = errors.New("reward must be a finite number")

	// ErrPartialDelivery indicates a feedback request reached some
	// recipients but not all of them.
	ErrPartialDelivery = errors.New("feedback request partially delivered")

	// ErrEmptyIntent indicates a feedback request for an empty intent name.
	ErrEmptyIntent = errors.New("intent name is required")
)
