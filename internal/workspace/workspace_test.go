package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalDir(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return resolved
}

func TestResolveOutsideRepository(t *testing.T) {
	dir := evalDir(t, t.TempDir())

	ws, err := Resolve(dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, ws.WorkPath)
	assert.Equal(t, dir, ws.RepoRoot)
	assert.Equal(t, filepath.Join(dir, ".vercel", "output"), ws.OutputDir)
	assert.Empty(t, ws.Commit)
}

func TestResolveInsideRepository(t *testing.T) {
	root := evalDir(t, t.TempDir())
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("hi"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "t", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	app := filepath.Join(root, "apps", "web")
	require.NoError(t, os.MkdirAll(app, 0o750))

	ws, err := Resolve(app, "/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, app, ws.WorkPath)
	assert.Equal(t, root, ws.RepoRoot)
	assert.Equal(t, "/tmp/out", ws.OutputDir)
	assert.Equal(t, hash.String(), ws.Commit)
	assert.Equal(t, root, RepoRoot(app))
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(filepath.Join(dir, "missing"), "")
	assert.Error(t, err)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = Resolve(file, "")
	assert.Error(t, err)
}

func TestPrepareOutput(t *testing.T) {
	dir := t.TempDir()
	ws, err := Resolve(dir, "out")
	require.NoError(t, err)

	require.NoError(t, ws.PrepareOutput(false))
	stale := filepath.Join(ws.OutputDir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, nil, 0o600))

	require.NoError(t, ws.PrepareOutput(false))
	assert.FileExists(t, stale)

	require.NoError(t, ws.PrepareOutput(true))
	assert.NoFileExists(t, stale)
	assert.DirExists(t, ws.OutputDir)

	assert.Equal(t, "out/x.json", ws.Rel(filepath.Join(ws.OutputDir, "x.json")))
}
