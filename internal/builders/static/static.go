// Package static is the built-in builder that publishes files as they are.
package static

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"git.home.luguber.info/inful/assembler/internal/builder"
)

// ID is the identifier the builder is registered under.
const ID = "@vercel/static"

// skipped directories are never published.
var skipped = map[string]bool{".git": true, ".vercel": true, "node_modules": true}

// Builder collects every file under the work path matching the build's
// source pattern. "**" matches any number of directories, and a pattern
// naming a directory matches everything below it. With an output directory
// configured, files are served relative to it.
type Builder struct{}

// Build implements builder.Builder.
func (Builder) Build(ctx context.Context, opts builder.Options) (*builder.Result, error) {
	pm, err := patternmatcher.New([]string{filepath.FromSlash(opts.Entrypoint)})
	if err != nil {
		return nil, fmt.Errorf("invalid source pattern %q: %w", opts.Entrypoint, err)
	}
	prefix := strings.Trim(path.Clean("/"+opts.Config.OutputDirectory), "/")

	files := make(map[string]builder.File)
	err = filepath.WalkDir(opts.WorkPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(opts.WorkPath, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipped[d.Name()] && rel != "." {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		ok, err := pm.MatchesOrParentMatches(rel)
		if err != nil || !ok {
			return err
		}
		served := filepath.ToSlash(rel)
		if prefix != "" {
			trimmed, found := strings.CutPrefix(served, prefix+"/")
			if !found {
				return nil
			}
			served = trimmed
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files[served] = builder.File{FsPath: p, Mode: uint32(info.Mode().Perm())}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &builder.Result{Output: &builder.StaticOutput{Files: files}}, nil
}
