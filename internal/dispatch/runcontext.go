package dispatch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunContext carries the state shared by the builds of one run. A fresh
// value is created for every run; nothing survives between runs.
type RunContext struct {
	RunID     string
	Target    string
	StartedAt time.Time

	mu               sync.Mutex
	installCompleted bool
	discontinued     map[string]struct{}
}

// NewRunContext creates the context of a new run with a random run id.
// Lambda outputs on a runtime in discontinued fail their build.
func NewRunContext(target string, discontinued []string) *RunContext {
	rc := &RunContext{
		RunID:        uuid.NewString(),
		Target:       target,
		StartedAt:    time.Now(),
		discontinued: make(map[string]struct{}, len(discontinued)),
	}
	for _, r := range discontinued {
		rc.discontinued[r] = struct{}{}
	}
	return rc
}

// InstallCompleted reports whether a build of this run already installed
// dependencies, so later builders can skip their own install step.
func (rc *RunContext) InstallCompleted() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.installCompleted
}

// MarkInstallCompleted records a successful build.
func (rc *RunContext) MarkInstallCompleted() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.installCompleted = true
}

// IsDiscontinued reports whether runtime has been retired.
func (rc *RunContext) IsDiscontinued(runtime string) bool {
	_, ok := rc.discontinued[runtime]
	return ok
}
