// Package dispatch invokes the builders of a run one after another, feeds
// successful results to the merger and defers artifact writes until the
// whole build list has been processed.
package dispatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/foundation"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/merge"
	"git.home.luguber.info/inful/assembler/internal/metrics"
	"git.home.luguber.info/inful/assembler/internal/observability"
	"git.home.luguber.info/inful/assembler/internal/output"
	"git.home.luguber.info/inful/assembler/internal/routes"
)

// indexFunction is the function a backend build serves unknown paths from.
const indexFunction = "index"

// BuildObserver is told about every finished builder invocation.
type BuildObserver interface {
	BuildFinished(ctx context.Context, b *builder.Build, elapsed time.Duration, err error)
}

// Dispatcher runs builds against a registry.
type Dispatcher struct {
	Registry *builder.Registry
	Writer   *output.Writer
	Merger   *merge.Accumulator
	Metrics  metrics.Recorder
	Observer BuildObserver

	WorkPath string
	RepoRoot string
	// Env is handed to every builder in addition to the process environment.
	Env map[string]string
}

// Outcome is what a dispatch pass produced.
type Outcome struct {
	// Records has one entry per build, in list order.
	Records []manifest.BuildRecord
	// BuildErr is the error of the first failed build in list order.
	BuildErr error
	// FlushErr is the first artifact write failure in build order.
	FlushErr error
	// Succeeded counts builds whose builder returned a usable result.
	Succeeded int
}

// Err returns the error that fails the run, if any.
func (o *Outcome) Err() error {
	if o.BuildErr != nil {
		return o.BuildErr
	}
	return o.FlushErr
}

type invocation = foundation.Result[*builder.Result, error]

// Dispatch invokes every build exactly once, in order. A failing build is
// recorded on its Build and in the outcome; it never stops the loop.
// Artifact writes run in the background and are joined before returning,
// as are diagnostics writes, whose failures are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *RunContext, builds []*builder.Build) *Outcome {
	rec := d.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	out := &Outcome{Records: make([]manifest.BuildRecord, 0, len(builds))}
	var flushes TaskGroup[map[string]builder.Override]
	var diagnostics TaskGroup[struct{}]

	for _, b := range builds {
		bctx := observability.WithBuild(ctx, b.Src, b.Use)
		impl, found := d.Registry.Lookup(b.Use)
		opts := d.options(rc, b)

		span := observability.StartSpan(bctx, "build", logfields.BuildClass(string(b.Class())))
		res := d.invoke(bctx, rc, b, impl, found, opts)
		_, invokeErr := res.ToTuple()
		elapsed := span.End(invokeErr)

		d.queueDiagnostics(bctx, &diagnostics, impl, opts)

		res.Match(func(r *builder.Result) {
			out.Succeeded++
			d.Merger.Add(bctx, b, r)
			rc.MarkInstallCompleted()
			flushes.Go(func() (map[string]builder.Override, error) {
				return d.Writer.WriteResult(bctx, b, r)
			})
		}, func(err error) {
			b.Err = err
			if out.BuildErr == nil {
				out.BuildErr = err
			}
			observability.ErrorContext(bctx, "Build failed", logfields.Error(err))
		})

		outcome := metrics.OutcomeFor(b.Err)
		rec.ObserveBuildDuration(b.Use, elapsed, outcome)
		rec.IncBuildOutcome(b.Use, outcome)
		if d.Observer != nil {
			d.Observer.BuildFinished(bctx, b, elapsed, b.Err)
		}

		apiVersion := builder.DefaultAPIVersion
		if found {
			apiVersion = builder.APIVersionOf(impl)
		}
		out.Records = append(out.Records, manifest.BuildRecord{
			Require:    builder.Name(b.Use),
			APIVersion: apiVersion,
			Src:        b.Src,
			Use:        b.Use,
			Config:     b.Config,
			Error:      manifest.FromError(b.Err),
		})
	}

	flushStart := time.Now()
	for _, fr := range flushes.Wait() {
		fr.Match(func(overrides map[string]builder.Override) {
			d.Merger.AddOverrides(overrides)
		}, func(err error) {
			if out.FlushErr == nil {
				out.FlushErr = err
			}
			observability.ErrorContext(ctx, "Writing build output failed", logfields.Error(err))
		})
	}
	rec.ObserveFlushDuration(time.Since(flushStart))

	for _, dr := range diagnostics.Wait() {
		if dr.IsErr() {
			observability.WarnContext(ctx, "Writing diagnostics failed", logfields.Error(dr.UnwrapErr()))
		}
	}
	return out
}

func (d *Dispatcher) options(rc *RunContext, b *builder.Build) builder.Options {
	return builder.Options{
		WorkPath:     d.WorkPath,
		RepoRootPath: d.RepoRoot,
		Entrypoint:   b.Src,
		Config:       b.Config,
		Meta: builder.Meta{
			Target:           rc.Target,
			InstallCompleted: rc.InstallCompleted(),
		},
		Env: d.Env,
	}
}

// invoke runs one builder and post-processes its result.
func (d *Dispatcher) invoke(ctx context.Context, rc *RunContext, b *builder.Build, impl builder.Builder, found bool, opts builder.Options) invocation {
	if !found {
		return foundation.Err[*builder.Result, error](foundationerrors.UnknownBuilder(b.Use))
	}

	observability.InfoContext(ctx, "Running builder")
	r, err := safeBuild(ctx, impl, opts)
	if err != nil {
		return foundation.Err[*builder.Result, error](foundationerrors.BuilderExecution(b.Use, err))
	}
	if r == nil {
		r = &builder.Result{}
	}

	if runtime, ok := d.discontinuedRuntime(rc, r); ok {
		return foundation.Err[*builder.Result, error](foundationerrors.DiscontinuedRuntime(b.Use, runtime))
	}

	if r.Output != nil && b.ConvertsRoutes() {
		d.convertRoutes(ctx, r)
	}
	return foundation.Ok[*builder.Result, error](r)
}

// safeBuild turns a builder panic into an ordinary error so the remaining
// builds still run.
func safeBuild(ctx context.Context, impl builder.Builder, opts builder.Options) (r *builder.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("builder panicked: %v", p)
		}
	}()
	return impl.Build(ctx, opts)
}

func safeDiagnostics(ctx context.Context, diag builder.Diagnoser, opts builder.Options) (files map[string][]byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			files, err = nil, fmt.Errorf("diagnostics panicked: %v", p)
		}
	}()
	return diag.Diagnostics(ctx, opts)
}

func (d *Dispatcher) discontinuedRuntime(rc *RunContext, r *builder.Result) (string, bool) {
	fo, ok := r.Output.(*builder.FunctionOutput)
	if !ok {
		return "", false
	}
	lambdas := fo.Lambdas()
	paths := make([]string, 0, len(lambdas))
	for p := range lambdas {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if rt := lambdas[p].Runtime; rt != "" && rc.IsDiscontinued(rt) {
			return rt, true
		}
	}
	return "", false
}

// convertRoutes replaces the routes of a backend result with those described
// by routes.json. When the output has an index function, every converted
// source is served by it and the output is reduced to those entries.
func (d *Dispatcher) convertRoutes(ctx context.Context, r *builder.Result) {
	path := filepath.Join(d.WorkPath, filepath.FromSlash(routes.IntrospectionFileName))
	file, found, err := routes.ReadIntrospection(path)
	if err != nil {
		observability.WarnContext(ctx, "Failed to read routes.json", logfields.Path(path), logfields.Error(err))
		return
	}
	if !found {
		return
	}

	fo, _ := r.Output.(*builder.FunctionOutput)
	var index *builder.Function
	if fo != nil {
		index = fo.Functions[indexFunction]
	}

	conv, err := routes.ConvertIntrospection(file.Routes, index != nil)
	if err != nil {
		observability.WarnContext(ctx, "Keeping builder routes, routes.json cannot be converted", logfields.Path(path), logfields.Error(err))
		return
	}
	r.Routes = conv.Routes
	observability.DebugContext(ctx, "Converted introspected routes", logfields.Routes(len(conv.Routes)))

	if index == nil {
		return
	}
	functions := map[string]*builder.Function{indexFunction: index}
	for _, alias := range conv.IndexAliases {
		if key := strings.TrimPrefix(alias, "/"); key != "" {
			functions[key] = index
		}
	}
	fo.Functions = functions
}

// queueDiagnostics collects diagnostics right away and defers writing them.
// Builders without diagnostics still queue an empty write.
func (d *Dispatcher) queueDiagnostics(ctx context.Context, g *TaskGroup[struct{}], impl builder.Builder, opts builder.Options) {
	var files map[string][]byte
	if diag, ok := impl.(builder.Diagnoser); ok {
		collected, err := safeDiagnostics(ctx, diag, opts)
		if err != nil {
			observability.WarnContext(ctx, "Collecting diagnostics failed", logfields.Error(err))
		} else {
			files = collected
		}
	}
	g.Go(func() (struct{}, error) {
		return struct{}{}, d.Writer.WriteDiagnostics(files)
	})
}
