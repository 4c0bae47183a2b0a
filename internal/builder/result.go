package builder

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/assembler/internal/routes"
)

// Result is what a successful builder invocation returns. It is not
// modified after the dispatcher hands it to the merger.
type Result struct {
	Output       Output              `json:"-"`
	Routes       []routes.Route      `json:"routes,omitempty"`
	Images       Images              `json:"images,omitempty"`
	Wildcard     []Wildcard          `json:"wildcard,omitempty"`
	Flags        *Flags              `json:"flags,omitempty"`
	DeploymentID string              `json:"deploymentId,omitempty"`
	Framework    *FrameworkVersion   `json:"framework,omitempty"`
	Crons        []Cron              `json:"crons,omitempty"`
	Overrides    map[string]Override `json:"overrides,omitempty"`
}

// Images is the image optimization config. It is taken as a whole from the
// first build that declares one.
type Images map[string]any

// Wildcard maps a domain to a path prefix.
type Wildcard struct {
	Domain string `json:"domain" yaml:"domain"`
	Value  string `json:"value" yaml:"value"`
}

// Cron schedules a path on a cron expression.
type Cron struct {
	Path     string `json:"path" yaml:"path"`
	Schedule string `json:"schedule" yaml:"schedule"`
}

// FrameworkVersion records the framework version reported by a builder.
type FrameworkVersion struct {
	Version string `json:"version"`
}

// Override remaps a served path and optionally its content type.
type Override struct {
	Path        string `json:"path,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Flags carries feature flag definitions keyed by flag name. Definitions are
// opaque to the assembler.
type Flags struct {
	Definitions map[string]json.RawMessage `json:"definitions"`
}

// Output is the artifact set of a Result: *StaticOutput, *FunctionOutput or
// *FrameworkOutput.
type Output interface {
	outputKind() string
}

// File is one artifact on disk or in memory. Data wins over FsPath.
type File struct {
	FsPath      string `json:"fsPath,omitempty"`
	Data        []byte `json:"data,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Mode        uint32 `json:"mode,omitempty"`
}

// StaticOutput is a set of files keyed by their served path.
type StaticOutput struct {
	Files map[string]File `json:"files"`
}

func (*StaticOutput) outputKind() string { return "static" }

// FunctionType discriminates serverless and edge functions.
type FunctionType string

const (
	Lambda       FunctionType = "Lambda"
	EdgeFunction FunctionType = "EdgeFunction"
)

// Function is a deployable function artifact.
type Function struct {
	Type        FunctionType      `json:"type"`
	Runtime     string            `json:"runtime,omitempty"`
	Handler     string            `json:"handler,omitempty"`
	Entrypoint  string            `json:"entrypoint,omitempty"`
	Memory      int               `json:"memory,omitempty"`
	MaxDuration int               `json:"maxDuration,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Files       map[string]File   `json:"files,omitempty"`
}

// FunctionOutput is a set of functions keyed by their served path. Static
// files emitted alongside the functions go to Files.
type FunctionOutput struct {
	Functions map[string]*Function `json:"functions"`
	Files     map[string]File      `json:"files,omitempty"`
}

func (*FunctionOutput) outputKind() string { return "functions" }

// Lambdas returns the functions of type Lambda.
func (o *FunctionOutput) Lambdas() map[string]*Function {
	out := make(map[string]*Function)
	for p, fn := range o.Functions {
		if fn != nil && fn.Type == Lambda {
			out[p] = fn
		}
	}
	return out
}

// FrameworkOutput is a prebuilt output directory produced by a framework
// build, copied verbatim into the output directory.
type FrameworkOutput struct {
	Dir     string `json:"dir"`
	Version string `json:"version,omitempty"`
}

func (*FrameworkOutput) outputKind() string { return "framework" }

// Kind returns the output discriminator, or "" for nil.
func Kind(o Output) string {
	if o == nil {
		return ""
	}
	return o.outputKind()
}

// UnmarshalJSON decodes a result whose output carries a "type" tag of
// static, functions or framework.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var aux struct {
		plain
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	if len(aux.Output) == 0 || string(aux.Output) == "null" {
		return nil
	}
	out, err := DecodeOutput(aux.Output)
	if err != nil {
		return err
	}
	r.Output = out
	return nil
}

// DecodeOutput decodes a tagged output object.
func DecodeOutput(data []byte) (Output, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	var out Output
	switch tag.Type {
	case "static":
		out = &StaticOutput{}
	case "functions":
		out = &FunctionOutput{}
	case "framework":
		out = &FrameworkOutput{}
	default:
		return nil, fmt.Errorf("unknown output type %q", tag.Type)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", tag.Type, err)
	}
	return out, nil
}
