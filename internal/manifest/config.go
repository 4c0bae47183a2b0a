package manifest

import (
	"bytes"
	"encoding/json"
	"sort"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/routes"
)

// OutputVersion is the only supported output descriptor version.
const OutputVersion = 3

// OutputConfig is the merged output descriptor written to config.json.
// Keys this package does not model are kept in Extra and written back.
type OutputConfig struct {
	Version      int                         `json:"version"`
	Routes       []routes.Route              `json:"routes,omitempty"`
	Images       builder.Images              `json:"images,omitempty"`
	Wildcard     []builder.Wildcard          `json:"wildcard,omitempty"`
	Overrides    map[string]builder.Override `json:"overrides,omitempty"`
	Framework    *builder.FrameworkVersion   `json:"framework,omitempty"`
	Crons        []builder.Cron              `json:"crons,omitempty"`
	DeploymentID string                      `json:"deploymentId,omitempty"`
	Extra        map[string]json.RawMessage  `json:"-"`
}

var knownConfigKeys = map[string]bool{
	"version":      true,
	"routes":       true,
	"images":       true,
	"wildcard":     true,
	"overrides":    true,
	"framework":    true,
	"crons":        true,
	"deploymentId": true,
}

type outputConfigFields OutputConfig

// MarshalJSON writes the modeled keys in declaration order followed by the
// preserved keys in sorted order.
func (c OutputConfig) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(outputConfigFields(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		if !knownConfigKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(c.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the modeled keys and keeps the rest in Extra.
func (c *OutputConfig) UnmarshalJSON(data []byte) error {
	var fields outputConfigFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = OutputConfig(fields)
	for k, v := range raw {
		if knownConfigKeys[k] {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = v
	}
	return nil
}

// ReadOutputConfig loads an existing config.json. A missing file returns
// nil and no error.
func ReadOutputConfig(path string) (*OutputConfig, error) {
	var c OutputConfig
	found, err := ReadJSON(path, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}
