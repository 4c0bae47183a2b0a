package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assembler/internal/config"
	"git.home.luguber.info/inful/assembler/internal/eventstore"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/metrics"
	"git.home.luguber.info/inful/assembler/internal/notify"
	"git.home.luguber.info/inful/assembler/internal/observability"
)

// NewJournalHandler returns a handler that appends run events to j.
func NewJournalHandler(j *eventstore.Journal) Handler {
	return func(ctx context.Context, e Event) error {
		switch ev := e.(type) {
		case RunStarted:
			return j.RunStarted(ctx, ev.RunID, eventstore.RunStarted{
				Target:   ev.Target,
				WorkPath: ev.WorkPath,
				Builds:   ev.Builds,
			})
		case BuildFinished:
			outcome := eventstore.BuildOutcome{
				Src:        ev.Build.Src,
				Use:        ev.Build.Use,
				DurationMS: float64(ev.Elapsed.Microseconds()) / 1000,
			}
			if ev.Err != nil {
				outcome.Code = errorCode(ev.Err)
				outcome.Message = ev.Err.Error()
			}
			return j.BuildFinished(ctx, ev.RunID, outcome)
		case RunFinished:
			r := ev.Report
			fin := eventstore.RunFinished{
				Outcome:    string(metrics.OutcomeFor(r.Err)),
				Routes:     r.RouteCount(),
				DurationMS: float64(r.Duration.Microseconds()) / 1000,
			}
			if r.Config != nil {
				fin.DeploymentID = r.Config.DeploymentID
			}
			if r.Err != nil {
				fin.Code = errorCode(r.Err)
			}
			return j.RunFinished(ctx, r.RunID, fin)
		default:
			return fmt.Errorf("unexpected event %q", e.Name())
		}
	}
}

// NewMetricsHandler returns a RunFinished handler that records run level
// metrics and, when textfile is set, exports the registry of p to it.
func NewMetricsHandler(rec metrics.Recorder, p *metrics.PrometheusRecorder, textfile string) Handler {
	return func(_ context.Context, e Event) error {
		ev, ok := e.(RunFinished)
		if !ok {
			return fmt.Errorf("unexpected event %q", e.Name())
		}
		rec.IncRunOutcome(metrics.OutcomeFor(ev.Report.Err))
		rec.ObserveRunDuration(ev.Report.Duration)
		rec.SetRoutes(ev.Report.RouteCount())
		if textfile == "" || p == nil {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(textfile), 0o750); err != nil {
			return fmt.Errorf("ensure metrics dir: %w", err)
		}
		return p.WriteTextfile(textfile)
	}
}

// NewNotifyHandler returns a RunFinished handler publishing a summary.
func NewNotifyHandler(pub notify.Publisher) Handler {
	return func(ctx context.Context, e Event) error {
		ev, ok := e.(RunFinished)
		if !ok {
			return fmt.Errorf("unexpected event %q", e.Name())
		}
		return pub.Publish(ctx, summaryOf(ev.Report))
	}
}

func summaryOf(r *Report) notify.RunSummary {
	s := notify.RunSummary{
		RunID:        r.RunID,
		Target:       r.Target,
		Outcome:      string(metrics.OutcomeFor(r.Err)),
		Builds:       len(r.Builds.Builds),
		FailedBuilds: r.FailedBuilds(),
		Routes:       r.RouteCount(),
		DurationMS:   float64(r.Duration.Microseconds()) / 1000,
	}
	if r.Config != nil {
		s.DeploymentID = r.Config.DeploymentID
	}
	if r.Err != nil {
		s.ErrorCode = errorCode(r.Err)
	}
	return s
}

// errorCode is the code err serializes with in builds.json.
func errorCode(err error) string {
	if shape := manifest.FromError(err); shape != nil && shape.Code != "" {
		return shape.Code
	}
	return "UNKNOWN_ERROR"
}

// sinks holds the bus of a run and what must be released after it.
type sinks struct {
	bus     *Bus
	metrics metrics.Recorder
	closers []func() error
}

// openSinks subscribes the journal, metrics and notification handlers
// configured in cfg or injected through opts. A sink that cannot be opened
// is logged and skipped.
func openSinks(ctx context.Context, cfg *config.Config, workPath string, opts Options) *sinks {
	s := &sinks{bus: NewBus(), metrics: opts.Metrics}

	journal := opts.Journal
	if journal == nil && cfg.Journal.Path != "" {
		path := resolvePath(workPath, cfg.Journal.Path)
		store, err := openJournalStore(path)
		if err != nil {
			observability.WarnContext(ctx, "Run journal disabled", logfields.Path(path), logfields.Error(err))
		} else {
			journal = eventstore.NewJournal(store)
			s.closers = append(s.closers, store.Close)
		}
	}
	if journal != nil {
		h := NewJournalHandler(journal)
		s.bus.Subscribe(EventRunStarted, h)
		s.bus.Subscribe(EventBuildFinished, h)
		s.bus.Subscribe(EventRunFinished, h)
	}

	var promRec *metrics.PrometheusRecorder
	textfile := ""
	if cfg.Metrics.Textfile != "" {
		textfile = resolvePath(workPath, cfg.Metrics.Textfile)
	}
	if s.metrics == nil {
		if textfile != "" {
			promRec = metrics.NewPrometheusRecorder(prom.NewRegistry())
			s.metrics = promRec
		} else {
			s.metrics = metrics.NoopRecorder{}
		}
	} else if p, ok := s.metrics.(*metrics.PrometheusRecorder); ok {
		promRec = p
	}
	s.bus.Subscribe(EventRunFinished, NewMetricsHandler(s.metrics, promRec, textfile))

	pub := opts.Publisher
	if pub == nil && cfg.Notify.NATSURL != "" {
		p, err := notify.NewNATSPublisher(notify.Options{
			URL:       cfg.Notify.NATSURL,
			Subject:   cfg.Notify.Subject,
			JetStream: cfg.Notify.JetStream,
		})
		if err != nil {
			observability.WarnContext(ctx, "Run notifications disabled", logfields.Error(err))
		} else {
			pub = p
			s.closers = append(s.closers, p.Close)
		}
	}
	if pub != nil {
		s.bus.Subscribe(EventRunFinished, WithRetry(NewNotifyHandler(pub), DefaultRetryPolicy()))
	}
	return s
}

func openJournalStore(path string) (*eventstore.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	return eventstore.NewSQLiteStore(path)
}

func (s *sinks) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			observability.WarnContext(ctx, "Closing run sink failed", logfields.Error(err))
		}
	}
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, filepath.FromSlash(p))
}
