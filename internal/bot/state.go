package bot

import (
	"time"

	"github.com/google/uuid"
)

// RunState tracks one run's progress. It lives for a single run and is
// never persisted.
type RunState struct {
	RunID               string
	RepliesMade         int
	ConsecutiveFailures int
	LastSuccess         time.Time
}

// NewRunState creates a fresh state with a unique run id for log
// correlation.
func NewRunState() *RunState {
	return &RunState{RunID: uuid.New().String()}
}
