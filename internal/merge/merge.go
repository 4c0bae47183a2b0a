// Package merge accumulates successful build results into the output
// descriptor written to config.json.
package merge

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/framework"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/observability"
	"git.home.luguber.info/inful/assembler/internal/routes"
)

// UserConfig holds descriptor sections declared by the project itself.
// They precede anything a builder contributes.
type UserConfig struct {
	Routes   []routes.Route
	Images   builder.Images
	Wildcard []builder.Wildcard
	Crons    []builder.Cron
}

// Accumulator collects results in invocation order. It is owned by the
// dispatch loop and is not safe for concurrent use.
type Accumulator struct {
	user        UserConfig
	buildRoutes [][]routes.Route
	images      builder.Images
	wildcard    []builder.Wildcard
	overrides   map[string]builder.Override
	crons       []builder.Cron
	framework   *builder.FrameworkVersion
	results     []*builder.Result
	// prebuilt is the buildRoutes slot of the first framework output build,
	// or -1. Routes of an existing config.json stand in for that slot.
	prebuilt int
}

// New returns an accumulator seeded with the project's own sections.
func New(user UserConfig) *Accumulator {
	a := &Accumulator{
		user:      user,
		overrides: make(map[string]builder.Override),
		prebuilt:  -1,
	}
	if len(user.Images) > 0 {
		a.images = user.Images
	}
	if len(user.Wildcard) > 0 {
		a.wildcard = user.Wildcard
	}
	a.crons = append(a.crons, user.Crons...)
	return a
}

// Add merges one successful result.
func (a *Accumulator) Add(ctx context.Context, b *builder.Build, r *builder.Result) {
	if r == nil {
		return
	}
	a.results = append(a.results, r)

	buildRoutes := r.Routes
	if len(buildRoutes) == 0 && b.Config.ZeroConfig && b.Class() == builder.ClassFrontend {
		if defaults := framework.DefaultRoutes(b.Config.Framework); defaults != nil {
			observability.DebugContext(ctx, "Using framework default routes", logfields.Routes(len(defaults)))
			buildRoutes = defaults
		}
	}
	if mw, ok := MiddlewareRoute(ctx, b); ok {
		a.buildRoutes = append(a.buildRoutes, []routes.Route{mw})
	}
	if _, ok := r.Output.(*builder.FrameworkOutput); ok && a.prebuilt < 0 {
		a.prebuilt = len(a.buildRoutes)
		a.buildRoutes = append(a.buildRoutes, buildRoutes)
	} else if len(buildRoutes) > 0 {
		a.buildRoutes = append(a.buildRoutes, buildRoutes)
	}

	if len(a.images) == 0 && len(r.Images) > 0 {
		a.images = r.Images
	}
	if len(a.wildcard) == 0 && len(r.Wildcard) > 0 {
		a.wildcard = r.Wildcard
	}
	a.crons = append(a.crons, r.Crons...)
	a.AddOverrides(r.Overrides)

	if a.framework == nil {
		switch {
		case r.Framework != nil && r.Framework.Version != "":
			a.framework = &builder.FrameworkVersion{Version: r.Framework.Version}
		default:
			if fo, ok := r.Output.(*builder.FrameworkOutput); ok && fo.Version != "" {
				a.framework = &builder.FrameworkVersion{Version: fo.Version}
			}
		}
	}
}

// AddOverrides unions path overrides; a later entry for the same path
// replaces the earlier one.
func (a *Accumulator) AddOverrides(overrides map[string]builder.Override) {
	for k, v := range overrides {
		a.overrides[k] = v
	}
}

// Results returns the merged results in invocation order.
func (a *Accumulator) Results() []*builder.Result {
	return a.results
}

// Finalize builds the descriptor. When existing is non-nil its sections
// take precedence: its routes take the place of the framework output
// build's routes (or lead the build routes when no build produced framework
// output), its images, wildcard and framework win, its crons come first and
// its overrides win on collision. Unknown keys and the deployment
// identifier of existing are carried over unchanged.
func (a *Accumulator) Finalize(ctx context.Context, existing *manifest.OutputConfig) *manifest.OutputConfig {
	buildRoutes := a.buildRoutes
	if existing != nil && len(existing.Routes) > 0 {
		buildRoutes = a.withExistingRoutes(ctx, existing.Routes)
	}
	out := &manifest.OutputConfig{
		Version:   manifest.OutputVersion,
		Routes:    routes.Merge(a.user.Routes, buildRoutes...),
		Images:    a.images,
		Wildcard:  a.wildcard,
		Framework: a.framework,
		Crons:     a.crons,
	}
	if len(a.overrides) > 0 {
		out.Overrides = copyOverrides(a.overrides)
	}
	for _, c := range out.Crons {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			observability.WarnContext(ctx, fmt.Sprintf("Cron schedule %q for %s is not a valid cron expression", c.Schedule, c.Path), logfields.Path(c.Path), logfields.Error(err))
		}
	}
	if existing == nil {
		return out
	}

	out.Extra = existing.Extra
	out.DeploymentID = existing.DeploymentID
	if len(existing.Images) > 0 {
		out.Images = existing.Images
	}
	if len(existing.Wildcard) > 0 {
		out.Wildcard = existing.Wildcard
	}
	if existing.Framework != nil {
		out.Framework = existing.Framework
	}
	if len(existing.Crons) > 0 {
		out.Crons = append(append([]builder.Cron(nil), existing.Crons...), a.crons...)
	}
	if len(existing.Overrides) > 0 {
		merged := copyOverrides(a.overrides)
		for k, v := range existing.Overrides {
			merged[k] = v
		}
		out.Overrides = merged
	}
	return out
}

// withExistingRoutes returns the per-build route lists with the routes of an
// existing config.json in the framework output slot. Without such a build
// they lead the list, minus the rules this run computed again, so a kept
// config.json from an earlier run does not repeat them.
func (a *Accumulator) withExistingRoutes(ctx context.Context, existing []routes.Route) [][]routes.Route {
	lists := append([][]routes.Route(nil), a.buildRoutes...)
	if a.prebuilt >= 0 {
		observability.DebugContext(ctx, "Using config.json routes for framework output", logfields.Routes(len(existing)))
		lists[a.prebuilt] = existing
		return lists
	}

	computed := append([]routes.Route(nil), a.user.Routes...)
	for _, l := range a.buildRoutes {
		computed = append(computed, l...)
	}
	kept := make([]routes.Route, 0, len(existing))
	for _, r := range existing {
		if r.IsHandle() || !slices.ContainsFunc(computed, func(c routes.Route) bool { return reflect.DeepEqual(c, r) }) {
			kept = append(kept, r)
		}
	}
	return append([][]routes.Route{kept}, lists...)
}

func copyOverrides(in map[string]builder.Override) map[string]builder.Override {
	out := make(map[string]builder.Override, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MiddlewareRoute returns the route that runs a middleware build ahead of
// all other routing. Only builds whose source is a root-level middleware
// file ("middleware.js", "src/middleware.ts", ...) qualify. Without a
// matcher the route matches every path.
func MiddlewareRoute(ctx context.Context, b *builder.Build) (routes.Route, bool) {
	if b.Class() != builder.ClassMiddleware {
		return routes.Route{}, false
	}
	entry := strings.TrimPrefix(path.Clean("/"+b.Src), "/")
	name := strings.TrimSuffix(entry, path.Ext(entry))
	if name != "middleware" && name != "src/middleware" {
		return routes.Route{}, false
	}

	src := "^/.*$"
	if len(b.Config.Matcher) > 0 {
		compiled, err := routes.MatcherToRegex(b.Config.Matcher)
		if err != nil {
			observability.WarnContext(ctx, "Ignoring invalid middleware matcher", logfields.Error(err))
		} else {
			src = compiled
		}
	}
	return routes.Route{
		Src:              src,
		MiddlewarePath:   name,
		MiddlewareRawSrc: routes.RawSources(b.Config.Matcher),
		Override:         true,
		Continue:         true,
	}, true
}
