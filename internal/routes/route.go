// Package routes models routing rules of the build output descriptor and the
// conversions that produce them.
package routes

// Handle names a routing phase marker such as {"handle": "filesystem"}.
type Handle string

const (
	HandleFilesystem Handle = "filesystem"
	HandleResource   Handle = "resource"
	HandleMiss       Handle = "miss"
	HandleRewrite    Handle = "rewrite"
	HandleHit        Handle = "hit"
	HandleError      Handle = "error"
)

// phaseOrder is the order handle phases are emitted in a merged route list.
var phaseOrder = []Handle{
	HandleFilesystem,
	HandleResource,
	HandleMiss,
	HandleRewrite,
	HandleHit,
	HandleError,
}

// Route is one ordered routing rule. Field order is the serialized key order.
type Route struct {
	Handle           Handle            `json:"handle,omitempty" yaml:"handle,omitempty"`
	Src              string            `json:"src,omitempty" yaml:"src,omitempty"`
	Dest             string            `json:"dest,omitempty" yaml:"dest,omitempty"`
	Headers          map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Methods          []string          `json:"methods,omitempty" yaml:"methods,omitempty"`
	Status           int               `json:"status,omitempty" yaml:"status,omitempty"`
	Check            bool              `json:"check,omitempty" yaml:"check,omitempty"`
	MiddlewarePath   string            `json:"middlewarePath,omitempty" yaml:"middleware_path,omitempty"`
	MiddlewareRawSrc *[]string         `json:"middlewareRawSrc,omitempty" yaml:"middleware_raw_src,omitempty"`
	Override         bool              `json:"override,omitempty" yaml:"override,omitempty"`
	Continue         bool              `json:"continue,omitempty" yaml:"continue,omitempty"`
}

// HandleRoute returns a phase marker route.
func HandleRoute(h Handle) Route {
	return Route{Handle: h}
}

// IsHandle reports whether r is a phase marker.
func (r Route) IsHandle() bool {
	return r.Handle != ""
}

var catchAllSources = map[string]struct{}{
	"/(.*)":        {},
	"^/(.*)$":      {},
	"/.*":          {},
	"^/.*$":        {},
	".*":           {},
	"^.*$":         {},
	"(.*)":         {},
	`^(?:\/(.*))$`: {},
}

// IsCatchAll reports whether r is a terminal rule matching every path.
func (r Route) IsCatchAll() bool {
	if r.IsHandle() || r.Continue || r.Override || r.MiddlewarePath != "" {
		return false
	}
	_, ok := catchAllSources[r.Src]
	return ok
}

// RawSources returns a pointer suitable for Route.MiddlewareRawSrc; an empty
// input still serializes as [].
func RawSources(src []string) *[]string {
	out := make([]string, len(src))
	copy(out, src)
	return &out
}
