package builder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClass(t *testing.T) {
	tests := []struct {
		name  string
		build Build
		want  Class
	}{
		{"middleware", Build{Use: "@vercel/next", Config: Config{Middleware: true}}, ClassMiddleware},
		{"backend", Build{Use: "@vercel/express"}, ClassBackend},
		{"versioned backend", Build{Use: "@vercel/hono@1.2.3"}, ClassBackend},
		{"backend framework", Build{Use: "@vercel/node", Config: Config{Framework: "express"}}, ClassBackend},
		{"frontend", Build{Use: "@vercel/static-build", Config: Config{Framework: "vite"}}, ClassFrontend},
		{"function", Build{Use: "@vercel/node"}, ClassFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build.Class())
		})
	}
}

func TestConvertsRoutes(t *testing.T) {
	assert.True(t, (&Build{Use: "@vercel/express"}).ConvertsRoutes())
	assert.True(t, (&Build{Use: "@vercel/python"}).ConvertsRoutes())
	assert.True(t, (&Build{Use: "@vercel/python@4.0.0"}).ConvertsRoutes())
	assert.False(t, (&Build{Use: "@vercel/node"}).ConvertsRoutes())
}

func TestConfigJSON(t *testing.T) {
	cfg := Config{
		ZeroConfig: true,
		Framework:  "vite",
		Extra:      map[string]any{"installCommand": "pnpm i"},
	}
	b, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, `{"framework":"vite","installCommand":"pnpm i","zeroConfig":true}`, string(b))

	var back Config
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, cfg, back)

	b, err = json.Marshal(Config{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestResultUnmarshal(t *testing.T) {
	t.Run("functions", func(t *testing.T) {
		var r Result
		err := json.Unmarshal([]byte(`{
			"output": {"type": "functions", "functions": {"api/hello": {"type": "Lambda", "runtime": "nodejs20.x", "handler": "index.js"}}},
			"routes": [{"src": "^/api/hello$", "dest": "/api/hello"}],
			"deploymentId": "abc-123",
			"flags": {"definitions": {"beta": {"options": [true, false]}}}
		}`), &r)
		require.NoError(t, err)

		out, ok := r.Output.(*FunctionOutput)
		require.True(t, ok)
		require.Contains(t, out.Functions, "api/hello")
		assert.Equal(t, "nodejs20.x", out.Functions["api/hello"].Runtime)
		assert.Len(t, out.Lambdas(), 1)
		assert.Equal(t, "abc-123", r.DeploymentID)
		require.Len(t, r.Routes, 1)
		assert.Contains(t, r.Flags.Definitions, "beta")
	})

	t.Run("static", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"output":{"type":"static","files":{"index.html":{"fsPath":"/tmp/index.html"}}}}`), &r))
		assert.Equal(t, "static", Kind(r.Output))
	})

	t.Run("framework", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"output":{"type":"framework","dir":".next/output","version":"14.2.0"}}`), &r))
		out, ok := r.Output.(*FrameworkOutput)
		require.True(t, ok)
		assert.Equal(t, ".next/output", out.Dir)
	})

	t.Run("no output", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"deploymentId":"x"}`), &r))
		assert.Nil(t, r.Output)
		assert.Equal(t, "", Kind(r.Output))
	})

	t.Run("unknown type", func(t *testing.T) {
		var r Result
		assert.Error(t, json.Unmarshal([]byte(`{"output":{"type":"weird"}}`), &r))
	})
}

type versioned struct{ Func }

func (versioned) APIVersion() int { return 2 }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := Func(func(context.Context, Options) (*Result, error) { return &Result{}, nil })

	require.NoError(t, r.Register("@vercel/static", noop))
	require.NoError(t, r.Register("@vercel/node", versioned{noop}))
	assert.Error(t, r.Register("@vercel/static", noop))
	assert.Error(t, r.Register("", noop))
	assert.Error(t, r.Register("x", nil))

	b, ok := r.Lookup("@vercel/node@3.1.0")
	require.True(t, ok)
	assert.Equal(t, 2, APIVersionOf(b))

	b, ok = r.Lookup("@vercel/static")
	require.True(t, ok)
	assert.Equal(t, DefaultAPIVersion, APIVersionOf(b))

	_, ok = r.Lookup("@vercel/go")
	assert.False(t, ok)

	assert.Equal(t, []string{"@vercel/node", "@vercel/static"}, r.IDs())
}

func TestName(t *testing.T) {
	assert.Equal(t, "@vercel/node", Name("@vercel/node@3.0.0"))
	assert.Equal(t, "@vercel/node", Name("@vercel/node"))
	assert.Equal(t, "static", Name("static"))
}
