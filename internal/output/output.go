// Package output flushes build artifacts into the build output directory.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/assembler/internal/builder"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/observability"
)

// Directory names inside the output directory.
const (
	StaticDir      = "static"
	FunctionsDir   = "functions"
	DiagnosticsDir = "diagnostics"
	funcSuffix     = ".func"
	vcConfigFile   = ".vc-config.json"
)

// Writer writes artifacts below Dir.
type Writer struct {
	Dir       string
	WorkPath  string
	CleanURLs bool
}

// WriteResult flushes the artifacts of one successful build and returns the
// path overrides implied by them. Failures are ManifestWrite errors.
func (w *Writer) WriteResult(ctx context.Context, b *builder.Build, r *builder.Result) (map[string]builder.Override, error) {
	overrides := make(map[string]builder.Override)
	switch out := r.Output.(type) {
	case nil:
	case *builder.StaticOutput:
		if err := w.writeStatic(out.Files, overrides); err != nil {
			return nil, err
		}
	case *builder.FunctionOutput:
		if err := w.writeStatic(out.Files, overrides); err != nil {
			return nil, err
		}
		if err := w.writeFunctions(out.Functions); err != nil {
			return nil, err
		}
	case *builder.FrameworkOutput:
		if err := w.copyFrameworkOutput(ctx, out); err != nil {
			return nil, err
		}
	default:
		return nil, foundationerrors.InternalError(fmt.Sprintf("unsupported output %T for %s", out, b.Src)).Build()
	}
	if len(overrides) == 0 {
		return nil, nil
	}
	return overrides, nil
}

func (w *Writer) writeStatic(files map[string]builder.File, overrides map[string]builder.Override) error {
	for _, p := range sortedKeys(files) {
		f := files[p]
		dest, err := w.target(StaticDir, p)
		if err != nil {
			return err
		}
		if err := w.writeFile(dest, f); err != nil {
			return err
		}
		var o builder.Override
		if w.CleanURLs && strings.HasSuffix(p, ".html") {
			o.Path = strings.TrimSuffix(p, ".html")
		}
		if f.ContentType != "" {
			o.ContentType = f.ContentType
		}
		if o != (builder.Override{}) {
			overrides[p] = o
		}
	}
	return nil
}

func (w *Writer) writeFunctions(fns map[string]*builder.Function) error {
	for _, p := range sortedKeys(fns) {
		fn := fns[p]
		if fn == nil {
			continue
		}
		dir, err := w.target(FunctionsDir, p+funcSuffix)
		if err != nil {
			return err
		}
		for _, name := range sortedKeys(fn.Files) {
			dest, err := safeJoin(dir, name)
			if err != nil {
				return foundationerrors.ManifestWrite(name, err)
			}
			if err := w.writeFile(dest, fn.Files[name]); err != nil {
				return err
			}
		}
		cfgPath := filepath.Join(dir, vcConfigFile)
		if err := manifest.WriteJSON(cfgPath, vcConfig(fn)); err != nil {
			return foundationerrors.ManifestWrite(cfgPath, err)
		}
	}
	return nil
}

// functionConfig is the .vc-config.json document of a function.
type functionConfig struct {
	Runtime     string            `json:"runtime"`
	Handler     string            `json:"handler,omitempty"`
	Entrypoint  string            `json:"entrypoint,omitempty"`
	Memory      int               `json:"memory,omitempty"`
	MaxDuration int               `json:"maxDuration,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

func vcConfig(fn *builder.Function) functionConfig {
	if fn.Type == builder.EdgeFunction {
		return functionConfig{Runtime: "edge", Entrypoint: fn.Entrypoint, Environment: fn.Environment}
	}
	return functionConfig{
		Runtime:     fn.Runtime,
		Handler:     fn.Handler,
		Memory:      fn.Memory,
		MaxDuration: fn.MaxDuration,
		Environment: fn.Environment,
	}
}

// copyFrameworkOutput copies a prebuilt output directory. A config.json in
// it becomes the pre-existing descriptor for this run; builds.json is
// skipped since this run writes its own.
func (w *Writer) copyFrameworkOutput(ctx context.Context, out *builder.FrameworkOutput) error {
	src := out.Dir
	if !filepath.IsAbs(src) {
		src = filepath.Join(w.WorkPath, src)
	}
	observability.DebugContext(ctx, "Copying framework output", logfields.Path(src))
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return foundationerrors.ManifestWrite(p, err)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return foundationerrors.ManifestWrite(p, err)
		}
		if d.IsDir() || rel == manifest.BuildsFile {
			return nil
		}
		return w.writeFile(filepath.Join(w.Dir, rel), builder.File{FsPath: p})
	})
}

func (w *Writer) target(sub, rel string) (string, error) {
	p, err := safeJoin(filepath.Join(w.Dir, sub), rel)
	if err != nil {
		return "", foundationerrors.ManifestWrite(rel, err)
	}
	return p, nil
}

func (w *Writer) writeFile(dest string, f builder.File) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return foundationerrors.ManifestWrite(dest, err)
	}
	mode := fs.FileMode(0o644)
	if f.Mode != 0 {
		mode = fs.FileMode(f.Mode) & fs.ModePerm
	}
	if f.Data != nil || f.FsPath == "" {
		if err := os.WriteFile(dest, f.Data, mode); err != nil {
			return foundationerrors.ManifestWrite(dest, err)
		}
		return nil
	}
	if err := copyFile(f.FsPath, dest, mode); err != nil {
		return foundationerrors.ManifestWrite(dest, err)
	}
	return nil
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// safeJoin joins a slash-separated relative path to base, refusing paths
// that leave base.
func safeJoin(base, rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("empty artifact path %q", rel)
	}
	joined := filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if !strings.HasPrefix(joined, filepath.Clean(base)+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path %q escapes %s", rel, base)
	}
	return joined, nil
}

// WriteDiagnostics writes diagnostics files under the diagnostics directory.
func (w *Writer) WriteDiagnostics(files map[string][]byte) error {
	for _, name := range sortedKeys(files) {
		dest, err := w.target(DiagnosticsDir, name)
		if err != nil {
			return err
		}
		if err := w.writeFile(dest, builder.File{Data: files[name]}); err != nil {
			return err
		}
	}
	return nil
}

// DetectFeatures reports the versions of instrumentation packages installed
// under workPath/node_modules.
func DetectFeatures(workPath string) *manifest.Features {
	f := &manifest.Features{
		SpeedInsightsVersion: installedVersion(workPath, "@vercel/speed-insights"),
		WebAnalyticsVersion:  installedVersion(workPath, "@vercel/analytics"),
	}
	if f.Empty() {
		return nil
	}
	return f
}

func installedVersion(workPath, pkg string) string {
	data, err := os.ReadFile(filepath.Join(workPath, "node_modules", filepath.FromSlash(pkg), "package.json"))
	if err != nil {
		return ""
	}
	var meta struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(data, &meta) != nil {
		return ""
	}
	return meta.Version
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
