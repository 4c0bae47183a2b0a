package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/assembler/internal/logfields"
)

// DefaultOutputDir is the output location relative to the work path.
const DefaultOutputDir = ".vercel/output"

// Workspace holds the absolute paths of one run.
type Workspace struct {
	WorkPath  string
	RepoRoot  string
	OutputDir string
	// Commit is the HEAD commit of the enclosing repository, empty outside git.
	Commit string
}

// Resolve makes workPath absolute and locates the repository root and the
// output directory. A relative outputDir is taken relative to workPath.
func Resolve(workPath, outputDir string) (*Workspace, error) {
	abs, err := filepath.Abs(workPath)
	if err != nil {
		return nil, fmt.Errorf("resolve work path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("work path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("work path %s is not a directory", abs)
	}

	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(abs, filepath.FromSlash(outputDir))
	}

	root, commit := repoRoot(abs)
	return &Workspace{WorkPath: abs, RepoRoot: root, OutputDir: filepath.Clean(outputDir), Commit: commit}, nil
}

// RepoRoot returns the top-level worktree directory of the git repository
// containing workPath, or workPath itself when it is not inside one.
func RepoRoot(workPath string) string {
	root, _ := repoRoot(workPath)
	return root
}

func repoRoot(workPath string) (string, string) {
	repo, err := git.PlainOpenWithOptions(workPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			slog.Debug("Could not open repository", logfields.Path(workPath), logfields.Error(err))
		}
		return workPath, ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return workPath, ""
	}
	commit := ""
	if head, err := repo.Head(); err == nil {
		commit = head.Hash().String()
	}
	return wt.Filesystem.Root(), commit
}

// PrepareOutput creates the output directory. With clean set, any previous
// contents are removed first.
func (w *Workspace) PrepareOutput(clean bool) error {
	if clean {
		if err := os.RemoveAll(w.OutputDir); err != nil {
			return fmt.Errorf("failed to clean output directory: %w", err)
		}
		slog.Debug("Cleaned output directory", logfields.Path(w.OutputDir))
	}
	if err := os.MkdirAll(w.OutputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// Rel returns path relative to the work path using forward slashes.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.WorkPath, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
