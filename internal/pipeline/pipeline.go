// Package pipeline runs one assembly: it dispatches the configured builds,
// merges their results and writes the manifests of the output directory.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/builders"
	"git.home.luguber.info/inful/assembler/internal/config"
	"git.home.luguber.info/inful/assembler/internal/deploymentid"
	"git.home.luguber.info/inful/assembler/internal/dispatch"
	"git.home.luguber.info/inful/assembler/internal/eventstore"
	"git.home.luguber.info/inful/assembler/internal/flags"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/merge"
	"git.home.luguber.info/inful/assembler/internal/metrics"
	"git.home.luguber.info/inful/assembler/internal/notify"
	"git.home.luguber.info/inful/assembler/internal/observability"
	"git.home.luguber.info/inful/assembler/internal/output"
	"git.home.luguber.info/inful/assembler/internal/workspace"
)

// Options tune a single Run. The zero value runs with the configured
// builders and sinks.
type Options struct {
	// Target overrides the configured target.
	Target string
	// Argv is recorded in builds.json.
	Argv []string
	// Registry replaces the registry built from the configured builders.
	Registry *builder.Registry
	// Metrics replaces the recorder implied by the metrics section.
	Metrics metrics.Recorder
	// Journal and Publisher replace the configured sinks.
	Journal   *eventstore.Journal
	Publisher notify.Publisher
}

// Report is the outcome of a run.
type Report struct {
	RunID     string
	Target    string
	Workspace *workspace.Workspace
	Builds    *manifest.BuildsManifest
	// Config is the descriptor written to config.json; nil when it was not
	// written.
	Config             *manifest.OutputConfig
	Flags              flags.Outcome
	DeploymentIDSource deploymentid.Source
	Err                error
	Duration           time.Duration
}

// ExitCode is 0 when the run recorded no error and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Err != nil {
		return 1
	}
	return 0
}

// FailedBuilds lists the sources of builds that recorded an error.
func (r *Report) FailedBuilds() []string {
	var failed []string
	for _, b := range r.Builds.Builds {
		if b.Error != nil {
			failed = append(failed, b.Src)
		}
	}
	return failed
}

// RouteCount is the number of routes written to config.json.
func (r *Report) RouteCount() int {
	if r.Config == nil {
		return 0
	}
	return len(r.Config.Routes)
}

// Run assembles the output directory for cfg. Every build is attempted even
// when earlier ones fail; the returned error is the one recorded in
// builds.json. A nil report means the output directory could not be
// prepared and nothing was written.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	if cfg == nil {
		return nil, foundationerrors.InternalError("pipeline: nil config").Build()
	}
	started := time.Now()

	target := opts.Target
	if target == "" {
		target = cfg.Target
	}
	if target == "" {
		target = config.DefaultTarget
	}
	rc := dispatch.NewRunContext(target, cfg.DiscontinuedRuntimes)
	ctx = observability.WithRunID(ctx, rc.RunID)
	ctx = observability.WithTarget(ctx, target)

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}
	ws, err := workspace.Resolve(workDir, cfg.Output.Directory)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot resolve workspace").
			Fatal().
			WithAction("Check work_dir and output.directory in the project file").
			Build()
	}
	if err := ws.PrepareOutput(cfg.Output.ShouldClean()); err != nil {
		return nil, foundationerrors.ManifestWrite(ws.OutputDir, err)
	}

	report := &Report{
		RunID:     rc.RunID,
		Target:    target,
		Workspace: ws,
		Builds:    manifest.NewBuildsManifest(target, opts.Argv),
	}

	s := openSinks(ctx, cfg, ws.WorkPath, opts)
	defer s.close(ctx)

	observability.InfoContext(ctx, "Assembly started",
		logfields.Path(ws.OutputDir), logfields.Routes(len(cfg.Routes)))
	s.bus.emit(ctx, RunStarted{RunID: rc.RunID, Target: target, WorkPath: ws.WorkPath, Builds: len(cfg.Builds)})

	a := &assembly{cfg: cfg, opts: opts, ws: ws, rc: rc, report: report, sinks: s}
	report.Err = a.run(ctx)
	report.Duration = time.Since(started)

	logDone(ctx, report)
	s.bus.emit(ctx, RunFinished{Report: report})
	return report, report.Err
}

func logDone(ctx context.Context, r *Report) {
	attrs := []slog.Attr{logfields.Routes(r.RouteCount()), logfields.DurationMS(float64(r.Duration.Milliseconds()))}
	if r.Config != nil && r.Config.DeploymentID != "" {
		attrs = append(attrs, logfields.DeploymentID(r.Config.DeploymentID))
	}
	if r.Err != nil {
		observability.ErrorContext(ctx, "Assembly failed", append(attrs, logfields.Error(r.Err))...)
		return
	}
	observability.InfoContext(ctx, "Assembly completed", attrs...)
}

// assembly is the state of one Run.
type assembly struct {
	cfg    *config.Config
	opts   Options
	ws     *workspace.Workspace
	rc     *dispatch.RunContext
	report *Report
	sinks  *sinks
}

func (a *assembly) run(ctx context.Context) error {
	builds := cloneBuilds(a.cfg.Builds)

	registry, err := a.setup()
	if err != nil {
		a.report.Builds.Builds = pendingRecords(builds)
		return a.finish(ctx, err)
	}

	env, err := config.BuilderEnv(a.ws.WorkPath, a.rc.Target)
	if err != nil {
		observability.WarnContext(ctx, "Ignoring unreadable target env file",
			logfields.Path(config.TargetEnvFile(a.ws.WorkPath, a.rc.Target)), logfields.Error(err))
		env = map[string]string{}
	}

	acc := merge.New(merge.UserConfig{
		Routes:   a.cfg.Routes,
		Images:   a.cfg.Images,
		Wildcard: a.cfg.Wildcard,
		Crons:    a.cfg.Crons,
	})
	d := &dispatch.Dispatcher{
		Registry: registry,
		Writer:   &output.Writer{Dir: a.ws.OutputDir, WorkPath: a.ws.WorkPath, CleanURLs: a.cfg.Output.CleanURLs},
		Merger:   acc,
		Metrics:  a.sinks.metrics,
		Observer: buildEvents{bus: a.sinks.bus, runID: a.rc.RunID},
		WorkPath: a.ws.WorkPath,
		RepoRoot: a.ws.RepoRoot,
		Env:      env,
	}
	out := d.Dispatch(observability.WithStage(ctx, "dispatch"), a.rc, builds)
	a.report.Builds.Builds = out.Records
	if features := output.DetectFeatures(a.ws.WorkPath); !features.Empty() {
		a.report.Builds.Features = features
	}

	terminal := out.Err()
	if err := a.writeDescriptor(observability.WithStage(ctx, "merge"), acc); terminal == nil {
		terminal = err
	}
	return a.finish(ctx, terminal)
}

// setup validates the configuration and resolves the builder registry.
func (a *assembly) setup() (*builder.Registry, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if a.opts.Registry != nil {
		return a.opts.Registry, nil
	}
	registry, err := builders.NewRegistry(a.cfg.Builders)
	if err != nil {
		if _, ok := foundationerrors.AsClassified(err); ok {
			return nil, err
		}
		return nil, foundationerrors.ConfigValidation("builders", err.Error())
	}
	return registry, nil
}

// writeDescriptor merges the results into config.json and flags.json. An
// existing config.json that cannot be parsed is left untouched, as is one
// whose resolved deployment identifier is invalid.
func (a *assembly) writeDescriptor(ctx context.Context, acc *merge.Accumulator) error {
	configPath := filepath.Join(a.ws.OutputDir, manifest.ConfigFile)
	existing, err := manifest.ReadOutputConfig(configPath)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "existing "+manifest.ConfigFile+" cannot be parsed").
			Fatal().
			WithCode(foundationerrors.CodeInvalidConfig).
			WithContext("path", configPath).
			Build()
	}

	desc := acc.Finalize(ctx, existing)
	existingID := ""
	if existing != nil {
		existingID = existing.DeploymentID
	}
	id, src := deploymentid.Resolve(ctx, existingID, acc.Results(), a.ws.WorkPath)
	if err := deploymentid.Validate(id); err != nil {
		return err
	}
	desc.DeploymentID = id
	a.report.DeploymentIDSource = src
	if id != "" {
		observability.DebugContext(ctx, "Resolved deployment identifier",
			logfields.DeploymentID(id), slog.String("source", string(src)))
	}

	var terminal error
	fo, err := flags.Merge(ctx, a.ws.OutputDir, acc.Results())
	a.report.Flags = fo
	if err != nil {
		terminal = foundationerrors.ManifestWrite(manifest.FlagsFile, err)
	}

	if err := manifest.WriteJSON(configPath, desc); err != nil {
		if terminal == nil {
			terminal = foundationerrors.ManifestWrite(manifest.ConfigFile, err)
		}
		return terminal
	}
	a.report.Config = desc
	return terminal
}

// finish writes builds.json with err as its top-level error. A failure to
// write it replaces a nil err.
func (a *assembly) finish(ctx context.Context, err error) error {
	a.report.Builds.Error = manifest.FromError(err)
	path := filepath.Join(a.ws.OutputDir, manifest.BuildsFile)
	if werr := manifest.WriteJSON(path, a.report.Builds); werr != nil {
		observability.ErrorContext(ctx, "Writing builds manifest failed", logfields.Path(path), logfields.Error(werr))
		if err == nil {
			return foundationerrors.ManifestWrite(manifest.BuildsFile, werr)
		}
	}
	return err
}

// cloneBuilds copies the configured builds so a run's error slots never
// leak into the next run of the same configuration.
func cloneBuilds(in []builder.Build) []*builder.Build {
	out := make([]*builder.Build, len(in))
	for i := range in {
		b := in[i]
		b.Err = nil
		out[i] = &b
	}
	return out
}

// pendingRecords describes builds that were never dispatched.
func pendingRecords(builds []*builder.Build) []manifest.BuildRecord {
	records := make([]manifest.BuildRecord, 0, len(builds))
	for _, b := range builds {
		records = append(records, manifest.BuildRecord{
			Require:    builder.Name(b.Use),
			APIVersion: builder.DefaultAPIVersion,
			Src:        b.Src,
			Use:        b.Use,
			Config:     b.Config,
		})
	}
	return records
}
