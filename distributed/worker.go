package distributed

import (
	"time"

	"github.com/google/uuid"
)

// WorkerStatus is the registry record for one remote worker.
type WorkerStatus struct {
	ID         string
	Hostname   string
	DeviceInfo string

	Connected bool
	Busy      bool

	UnitsCompleted uint64
	KeysPerSecond  uint64
	LastHeartbeat  time.Time
}

// TimedOut reports whether the worker has been silent longer than timeout.
func (w WorkerStatus) TimedOut(timeout time.Duration) bool {
	return time.Since(w.LastHeartbeat) > timeout
}

// NewWorkerID mints a stable identifier for a connecting worker that did
// not bring its own.
func NewWorkerID() string {
	return uuid.New().String()
}
