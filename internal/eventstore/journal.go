package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Journal event types.
const (
	TypeRunStarted     = "run.started"
	TypeBuildSucceeded = "build.succeeded"
	TypeBuildFailed    = "build.failed"
	TypeRunFinished    = "run.finished"
)

// RunStarted is the payload of a run.started event.
type RunStarted struct {
	Target   string `json:"target,omitempty"`
	WorkPath string `json:"work_path"`
	Builds   int    `json:"builds"`
}

// BuildOutcome is the payload of build.succeeded and build.failed events.
type BuildOutcome struct {
	Src        string  `json:"src"`
	Use        string  `json:"use"`
	DurationMS float64 `json:"duration_ms"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// RunFinished is the payload of a run.finished event.
type RunFinished struct {
	Outcome      string  `json:"outcome"`
	Routes       int     `json:"routes"`
	DeploymentID string  `json:"deployment_id,omitempty"`
	DurationMS   float64 `json:"duration_ms"`
	Code         string  `json:"code,omitempty"`
}

// Journal appends typed run events to a Store.
type Journal struct {
	store Store
}

// NewJournal wraps store.
func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

func (j *Journal) append(ctx context.Context, runID, eventType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshalPayloadFailed, err)
	}
	_, err = j.store.Append(ctx, Entry{RunID: runID, Type: eventType, Payload: payload})
	return err
}

// RunStarted records the start of a run.
func (j *Journal) RunStarted(ctx context.Context, runID string, e RunStarted) error {
	return j.append(ctx, runID, TypeRunStarted, e)
}

// BuildFinished records one builder invocation, as build.failed when
// e.Code is set and build.succeeded otherwise.
func (j *Journal) BuildFinished(ctx context.Context, runID string, e BuildOutcome) error {
	t := TypeBuildSucceeded
	if e.Code != "" {
		t = TypeBuildFailed
	}
	return j.append(ctx, runID, t, e)
}

// RunFinished records the end of a run.
func (j *Journal) RunFinished(ctx context.Context, runID string, e RunFinished) error {
	return j.append(ctx, runID, TypeRunFinished, e)
}

// RunSummary is a read model of one journaled run.
type RunSummary struct {
	RunID       string
	Target      string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Outcome     string
	Succeeded   int
	Failed      []BuildOutcome
	Routes      int
	Deployment  string
	ErrorCode   string
	EventsCount int
}

// Summarize replays the events of runID into a RunSummary. It returns nil
// when the journal has no events for the run.
func Summarize(ctx context.Context, store Store, runID string) (*RunSummary, error) {
	events, err := store.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	s := &RunSummary{RunID: runID, EventsCount: len(events)}
	for _, e := range events {
		switch e.Type {
		case TypeRunStarted:
			var p RunStarted
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			s.Target = p.Target
			s.StartedAt = e.At
		case TypeBuildSucceeded:
			s.Succeeded++
		case TypeBuildFailed:
			var p BuildOutcome
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			s.Failed = append(s.Failed, p)
		case TypeRunFinished:
			var p RunFinished
			if err := e.Decode(&p); err != nil {
				return nil, err
			}
			at := e.At
			s.FinishedAt = &at
			s.Outcome = p.Outcome
			s.Routes = p.Routes
			s.Deployment = p.DeploymentID
			s.ErrorCode = p.Code
		}
	}
	return s, nil
}
