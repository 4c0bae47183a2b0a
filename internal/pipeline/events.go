package pipeline

import (
	"time"

	"git.home.luguber.info/inful/assembler/internal/builder"
)

// Event is a run event published on the Bus.
type Event interface{ Name() string }

// Event names used in the pipeline.
const (
	EventRunStarted    = "RunStarted"
	EventBuildFinished = "BuildFinished"
	EventRunFinished   = "RunFinished"
)

// RunStarted is published once the workspace is prepared.
type RunStarted struct {
	RunID    string
	Target   string
	WorkPath string
	Builds   int
}

func (RunStarted) Name() string { return EventRunStarted }

// BuildFinished is published after every builder invocation, in list order.
type BuildFinished struct {
	RunID   string
	Build   *builder.Build
	Elapsed time.Duration
	Err     error
}

func (BuildFinished) Name() string { return EventBuildFinished }

// RunFinished carries the final report, after all manifests are written.
type RunFinished struct {
	Report *Report
}

func (RunFinished) Name() string { return EventRunFinished }
