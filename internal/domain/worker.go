package domain

// WorkerState tracks one cache generation's position in the offline worker
// lifecycle.
type WorkerState string

const (
	StateInstalling WorkerState = "INSTALLING"
	StateInstalled  WorkerState = "INSTALLED"
	StateActivating WorkerState = "ACTIVATING"
	StateActive     WorkerState = "ACTIVE"
	StateRedundant  WorkerState = "REDUNDANT"
)

// Serving reports whether a generation in this state may answer fetches.
func (s WorkerState) Serving() bool { return s == StateActive }
