// Package builder defines the contract between the assembler and pluggable
// builders: the Build unit of work, the options a builder receives, and the
// Result it returns.
package builder

import (
	"encoding/json"
	"strings"

	"git.home.luguber.info/inful/assembler/internal/framework"
)

// Class is the role a build plays in the merged output.
type Class string

const (
	ClassMiddleware Class = "middleware"
	ClassBackend    Class = "backend"
	ClassFrontend   Class = "frontend"
	ClassFunction   Class = "function"
)

// backendBuilders are builder identifiers whose output is a server
// application that may describe its own routes in routes.json.
var backendBuilders = map[string]bool{
	"@vercel/backends": true,
	"@vercel/express":  true,
	"@vercel/hono":     true,
	"@vercel/fastify":  true,
	"@vercel/h3":       true,
	"@vercel/nestjs":   true,
	"@vercel/koa":      true,
}

// PythonBuilder also emits routes.json.
const PythonBuilder = "@vercel/python"

// Build is one scheduled builder invocation. Err is nil until the build fails.
type Build struct {
	Src    string `json:"src" yaml:"src"`
	Use    string `json:"use" yaml:"use"`
	Config Config `json:"config" yaml:"config"`
	Err    error  `json:"-" yaml:"-"`
}

// Class classifies the build from its config and builder identifier.
func (b *Build) Class() Class {
	switch {
	case b.Config.Middleware:
		return ClassMiddleware
	case backendBuilders[Name(b.Use)]:
		return ClassBackend
	case b.Config.Framework != "" && isBackendFramework(b.Config.Framework):
		return ClassBackend
	case b.Config.Framework != "":
		return ClassFrontend
	default:
		return ClassFunction
	}
}

// ConvertsRoutes reports whether the build's routes.json should replace its
// routes.
func (b *Build) ConvertsRoutes() bool {
	return b.Class() == ClassBackend || Name(b.Use) == PythonBuilder
}

func isBackendFramework(slug string) bool {
	f, ok := framework.Find(slug)
	return ok && f.Backend
}

// Name strips a version suffix: "@vercel/node@3.0.0" -> "@vercel/node".
func Name(use string) string {
	if i := strings.LastIndex(use, "@"); i > 0 {
		return use[:i]
	}
	return use
}

// Config is the per-build configuration. Unknown keys are kept in Extra and
// passed to the builder untouched.
type Config struct {
	ZeroConfig      bool           `yaml:"zero_config"`
	Middleware      bool           `yaml:"middleware"`
	Framework       string         `yaml:"framework"`
	OutputDirectory string         `yaml:"output_directory"`
	Matcher         []string       `yaml:"matcher"`
	Extra           map[string]any `yaml:",inline"`
}

// MarshalJSON flattens Extra and the known keys into one object with sorted
// keys.
func (c Config) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+5)
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.ZeroConfig {
		m["zeroConfig"] = true
	}
	if c.Middleware {
		m["middleware"] = true
	}
	if c.Framework != "" {
		m["framework"] = c.Framework
	}
	if c.OutputDirectory != "" {
		m["outputDirectory"] = c.OutputDirectory
	}
	if len(c.Matcher) > 0 {
		m["matcher"] = c.Matcher
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Config{}
	known := map[string]any{
		"zeroConfig":      &c.ZeroConfig,
		"middleware":      &c.Middleware,
		"framework":       &c.Framework,
		"outputDirectory": &c.OutputDirectory,
		"matcher":         &c.Matcher,
	}
	for k, v := range raw {
		if dst, ok := known[k]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return err
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = val
	}
	return nil
}
