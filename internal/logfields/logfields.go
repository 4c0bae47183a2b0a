package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID        = "run_id"
	KeyTarget       = "target"
	KeyBuildSrc     = "build_src"
	KeyBuilder      = "builder"
	KeyBuildClass   = "build_class"
	KeyDeploymentID = "deployment_id"
	KeyFlag         = "flag"
	KeyPath         = "path"
	KeyRoutes       = "routes"
	KeyDurationMS   = "duration_ms"
	KeyError        = "error"
)

func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Target(t string) slog.Attr         { return slog.String(KeyTarget, t) }
func BuildSrc(src string) slog.Attr     { return slog.String(KeyBuildSrc, src) }
func Builder(use string) slog.Attr      { return slog.String(KeyBuilder, use) }
func BuildClass(c string) slog.Attr     { return slog.String(KeyBuildClass, c) }
func DeploymentID(id string) slog.Attr  { return slog.String(KeyDeploymentID, id) }
func Flag(key string) slog.Attr         { return slog.String(KeyFlag, key) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Routes(n int) slog.Attr            { return slog.Int(KeyRoutes, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
