package domain

import "fmt"

// CacheMissError is returned when a generation cache has no entry for a URL.
type CacheMissError struct {
	Version int
	URL     string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("cache miss in generation %d for %s", e.Version, e.URL)
}

// GenerationStateError is returned when a lifecycle operation is attempted
// from a state that does not allow it.
type GenerationStateError struct {
	State WorkerState
	Op    string
}

func (e *GenerationStateError) Error() string {
	return fmt.Sprintf("cannot %s from state %s", e.Op, e.State)
}

// PermissionDeniedError is returned when the notification surface refuses
// delivery. Dispatch treats it as a silent no-op.
type PermissionDeniedError struct {
	Surface string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("notification permission denied by %s surface", e.Surface)
}

// NoWaitingGenerationError is returned when activation is requested but no
// installed generation is waiting.
type NoWaitingGenerationError struct{}

func (e *NoWaitingGenerationError) Error() string {
	return "no waiting generation to activate"
}

// ItemNotFoundError is returned when an inventory item ID does not exist.
type ItemNotFoundError struct {
	ID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("inventory item not found: %s", e.ID)
}
