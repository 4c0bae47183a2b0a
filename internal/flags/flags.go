// Package flags merges feature flag definitions reported by builders into
// the output directory's flags.json.
package flags

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/assembler/internal/builder"
	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/manifest"
	"git.home.luguber.info/inful/assembler/internal/observability"
)

// File is the flags.json document. Keys other than "definitions" are kept.
type File struct {
	Definitions map[string]json.RawMessage
	Extra       map[string]json.RawMessage
}

// MarshalJSON writes definitions alongside the preserved keys.
func (f File) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+1)
	for k, v := range f.Extra {
		out[k] = v
	}
	defs := f.Definitions
	if defs == nil {
		defs = map[string]json.RawMessage{}
	}
	out["definitions"] = defs
	return json.Marshal(out)
}

// UnmarshalJSON splits definitions from the other keys.
func (f *File) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = File{Definitions: map[string]json.RawMessage{}}
	for k, v := range raw {
		if k == "definitions" {
			if err := json.Unmarshal(v, &f.Definitions); err != nil {
				return fmt.Errorf("decode definitions: %w", err)
			}
			if f.Definitions == nil {
				f.Definitions = map[string]json.RawMessage{}
			}
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]json.RawMessage)
		}
		f.Extra[k] = v
	}
	return nil
}

// Outcome summarizes a merge.
type Outcome struct {
	Written    bool
	Added      []string
	Duplicates []string
}

// Merge adds every flag definition from results to outputDir/flags.json.
// The first definition of a key wins, whether it came from the existing
// file or an earlier result; later ones are logged and dropped. The file is
// written only when it already existed or at least one flag was added.
func Merge(ctx context.Context, outputDir string, results []*builder.Result) (Outcome, error) {
	path := filepath.Join(outputDir, manifest.FlagsFile)
	file := File{Definitions: map[string]json.RawMessage{}}
	existed, err := manifest.ReadJSON(path, &file)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	for _, r := range results {
		if r == nil || r.Flags == nil {
			continue
		}
		keys := make([]string, 0, len(r.Flags.Definitions))
		for k := range r.Flags.Definitions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, dup := file.Definitions[k]; dup {
				observability.WarnContext(ctx, fmt.Sprintf("The flag %q was found multiple times. Only its first occurrence will be considered.", k), logfields.Flag(k))
				out.Duplicates = append(out.Duplicates, k)
				continue
			}
			file.Definitions[k] = r.Flags.Definitions[k]
			out.Added = append(out.Added, k)
		}
	}

	if !existed && len(out.Added) == 0 {
		return out, nil
	}
	if err := manifest.WriteJSON(path, file); err != nil {
		return out, err
	}
	out.Written = true
	return out, nil
}
