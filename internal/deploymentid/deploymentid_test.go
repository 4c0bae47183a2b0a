package deploymentid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assembler/internal/builder"
	foundationerrors "git.home.luguber.info/inful/assembler/internal/foundation/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		rule Rule
	}{
		{"empty", "", ""},
		{"simple", "abc-123", ""},
		{"exactly 32", strings.Repeat("a", 30) + "-_", ""},
		{"reserved prefix", "dpl_anything", RulePrefix},
		{"too long", strings.Repeat("a", 33), RuleLength},
		{"space", "abc def", RuleCharset},
		{"question mark", "abc?def", RuleCharset},
		{"non ascii", "abcé", RuleCharset},
		{"prefix checked before length", "dpl_" + strings.Repeat("a", 40), RulePrefix},
		{"length checked before charset", strings.Repeat("?", 33), RuleLength},
		{"length counts characters", strings.Repeat("é", 20), RuleCharset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.rule, invalid.Rule)
			assert.Equal(t, tt.id, invalid.Value)
		})
	}
}

func TestInvalidErrorClassified(t *testing.T) {
	err := Validate("dpl_x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot start with the "dpl_" prefix`)

	classified, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CodeInvalidDeploymentID, classified.Code())
	assert.Equal(t, DocsLink, classified.Link())
	assert.Equal(t, err.Error(), classified.Message())
	assert.True(t, classified.IsFatal())
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	work := t.TempDir()
	results := []*builder.Result{
		nil,
		{},
		{DeploymentID: "from-build"},
		{DeploymentID: "second"},
	}

	id, src := Resolve(ctx, "from-config", results, work)
	assert.Equal(t, "from-config", id)
	assert.Equal(t, SourceExisting, src)

	id, src = Resolve(ctx, "", results, work)
	assert.Equal(t, "from-build", id)
	assert.Equal(t, SourceBuild, src)

	id, src = Resolve(ctx, "", nil, work)
	assert.Equal(t, "", id)
	assert.Equal(t, SourceNone, src)

	require.NoError(t, os.MkdirAll(filepath.Join(work, ".next"), 0o750))
	manifest := filepath.Join(work, ".next", "routes-manifest.json")

	require.NoError(t, os.WriteFile(manifest, []byte(`{not json`), 0o600))
	id, _ = Resolve(ctx, "", nil, work)
	assert.Equal(t, "", id, "unreadable manifest counts as not found")

	require.NoError(t, os.WriteFile(manifest, []byte(`{"version":3,"deploymentId":"from-next"}`), 0o600))
	id, src = Resolve(ctx, "", []*builder.Result{{}}, work)
	assert.Equal(t, "from-next", id)
	assert.Equal(t, SourceFramework, src)

	id, _ = Resolve(ctx, "", results, work)
	assert.Equal(t, "from-build", id)
}

func TestInvalidErrorIsNotOtherError(t *testing.T) {
	var invalid *InvalidError
	assert.False(t, errors.As(errors.New("x"), &invalid))
}
