package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// IntrospectionFileName is the file a backend framework build leaves in the
// work path to describe its routes.
const IntrospectionFileName = ".vercel/routes.json"

// IntrospectionRoute is one entry of a routes.json file. Source is kept raw
// so non-string values can be detected and skipped.
type IntrospectionRoute struct {
	Source  json.RawMessage `json:"source"`
	Methods []string        `json:"methods,omitempty"`
}

// IntrospectionFile is the decoded routes.json document.
type IntrospectionFile struct {
	Routes []IntrospectionRoute `json:"routes"`
}

// ReadIntrospection loads routes.json. A missing file is not an error; the
// second return value reports whether the file existed.
func ReadIntrospection(path string) (*IntrospectionFile, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	var f IntrospectionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", path, err)
	}
	return &f, true, nil
}

// Conversion is the result of converting introspected routes.
type Conversion struct {
	// Routes is the filesystem marker, one route per converted entry and a
	// trailing catch-all to "/".
	Routes []Route
	// IndexAliases lists sources that should also be served by the index
	// function, populated only when the build produced one.
	IndexAliases []string
}

// ConvertIntrospection turns introspected entries into routes. Entries with
// a non-string source or the root source "/" are skipped. A source that does
// not compile fails the whole conversion.
func ConvertIntrospection(entries []IntrospectionRoute, hasIndex bool) (Conversion, error) {
	out := Conversion{
		Routes: make([]Route, 0, len(entries)+2),
	}
	out.Routes = append(out.Routes, HandleRoute(HandleFilesystem))

	for _, entry := range entries {
		source, ok := stringSource(entry.Source)
		if !ok || source == "/" {
			continue
		}
		src, _, err := SourceToRegex(source)
		if err != nil {
			return Conversion{}, fmt.Errorf("route source %q: %w", source, err)
		}
		r := Route{Src: src, Dest: source}
		if len(entry.Methods) > 0 {
			r.Methods = append([]string(nil), entry.Methods...)
		}
		out.Routes = append(out.Routes, r)
		if hasIndex {
			out.IndexAliases = append(out.IndexAliases, source)
		}
	}

	out.Routes = append(out.Routes, Route{Src: "/(.*)", Dest: "/"})
	return out, nil
}

func stringSource(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
