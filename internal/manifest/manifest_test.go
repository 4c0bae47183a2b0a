package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assembler/internal/builder"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
	"git.home.luguber.info/inful/assembler/internal/routes"
)

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", BuildsFile)

	require.NoError(t, WriteJSON(path, map[string]int{"b": 2, "a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", string(data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadJSONMissing(t *testing.T) {
	var v map[string]any
	found, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"), &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBuildsManifestJSON(t *testing.T) {
	m := NewBuildsManifest("production", nil)
	m.Builds = []BuildRecord{
		{Require: "@vercel/static", APIVersion: 2, Src: "public/**", Use: "@vercel/static", Config: builder.Config{ZeroConfig: true}},
	}
	data, err := ToJSON(m)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, BuildsComment, generic["//"])
	assert.Equal(t, "production", generic["target"])
	assert.Equal(t, []any{}, generic["argv"])
	assert.NotContains(t, generic, "error")
	assert.NotContains(t, generic, "features")

	back, err := ParseBuildsManifest(data)
	require.NoError(t, err)
	require.Len(t, back.Builds, 1)
	assert.True(t, back.Builds[0].Config.ZeroConfig)
	assert.Nil(t, back.Builds[0].Error)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, &ErrorShape{Name: "Error", Message: "boom", Stack: "Error: boom"}, plain)

	classified := FromError(foundationerrors.DiscontinuedRuntime("@vercel/php", "nodejs14.x"))
	assert.Equal(t, foundationerrors.CodeDiscontinuedRuntime, classified.Code)
	assert.Equal(t, "https://vercel.link/function-runtimes", classified.Link)
	assert.True(t, classified.HideStackTrace)
	assert.Equal(t, "Error", classified.Name)

	data, err := json.Marshal(plain)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Error","message":"boom","stack":"Error: boom","hideStackTrace":false,"code":""}`, string(data))
}

func TestOutputConfigPreservesUnknownKeys(t *testing.T) {
	in := `{"version":3,"routes":[{"handle":"filesystem"}],"cache":["a"],"deploymentId":"keep-me","zeta":{"x":1}}`
	var c OutputConfig
	require.NoError(t, json.Unmarshal([]byte(in), &c))

	assert.Equal(t, 3, c.Version)
	assert.Equal(t, "keep-me", c.DeploymentID)
	require.Len(t, c.Routes, 1)
	assert.Equal(t, routes.HandleFilesystem, c.Routes[0].Handle)
	assert.Len(t, c.Extra, 2)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Equal(t, `{"version":3,"routes":[{"handle":"filesystem"}],"deploymentId":"keep-me","cache":["a"],"zeta":{"x":1}}`, string(out))
}

func TestReadOutputConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)

	c, err := ReadOutputConfig(path)
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, WriteJSON(path, &OutputConfig{Version: OutputVersion, Crons: []builder.Cron{{Path: "/api/cron", Schedule: "0 * * * *"}}}))
	c, err = ReadOutputConfig(path)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/api/cron", c.Crons[0].Path)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = ReadOutputConfig(path)
	assert.Error(t, err)
}
