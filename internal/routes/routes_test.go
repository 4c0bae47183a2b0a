package routes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceToRegex(t *testing.T) {
	tests := []struct {
		source   string
		want     string
		segments []string
	}{
		{"/", `^\/$`, nil},
		{"/about", `^\/about$`, nil},
		{"/api/users/:id", `^\/api\/users(?:\/([^\/#\?]+?))$`, []string{"id"}},
		{"/(.*)", `^(?:\/(.*))$`, []string{"0"}},
		{"/blog/:slug?", `^\/blog(?:\/([^\/#\?]+?))?$`, []string{"slug"}},
		{"/files/:path*", `^\/files(?:\/((?:[^\/#\?]+?)(?:\/(?:[^\/#\?]+?))*))?$`, []string{"path"}},
		{"/post/:id(\\d+)", `^\/post(?:\/(\d+))$`, []string{"id"}},
		{"/file.json", `^\/file\.json$`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, segments, err := SourceToRegex(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.segments, segments)
			_, err = regexp.Compile(got)
			assert.NoError(t, err)
		})
	}
}

func TestSourceToRegexMatches(t *testing.T) {
	src, _, err := SourceToRegex("/api/users/:id")
	require.NoError(t, err)
	re := regexp.MustCompile(src)
	assert.True(t, re.MatchString("/api/users/42"))
	assert.False(t, re.MatchString("/api/users"))
	assert.False(t, re.MatchString("/api/users/42/posts"))
}

func TestSourceToRegexErrors(t *testing.T) {
	for _, source := range []string{"/:", "/(foo", "/(?x)", "/((a))", "/{abc"} {
		t.Run(source, func(t *testing.T) {
			_, _, err := SourceToRegex(source)
			assert.Error(t, err)
		})
	}
}

func rawSource(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestConvertIntrospection(t *testing.T) {
	entries := []IntrospectionRoute{
		{Source: rawSource(t, "/api/users")},
		{Source: rawSource(t, "/api/users/:id"), Methods: []string{"GET", "PUT"}},
		{Source: rawSource(t, 42)},
		{Source: rawSource(t, "/health")},
	}

	got, err := ConvertIntrospection(entries, false)
	require.NoError(t, err)

	want := []Route{
		{Handle: HandleFilesystem},
		{Src: `^\/api\/users$`, Dest: "/api/users"},
		{Src: `^\/api\/users(?:\/([^\/#\?]+?))$`, Dest: "/api/users/:id", Methods: []string{"GET", "PUT"}},
		{Src: `^\/health$`, Dest: "/health"},
		{Src: "/(.*)", Dest: "/"},
	}
	if diff := cmp.Diff(want, got.Routes); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.IndexAliases)
}

func TestConvertIntrospectionCount(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		entries := make([]IntrospectionRoute, 0, n)
		for i := 0; i < n; i++ {
			entries = append(entries, IntrospectionRoute{Source: rawSource(t, "/r/"+string(rune('a'+i)))})
		}
		got, err := ConvertIntrospection(entries, false)
		require.NoError(t, err)
		assert.Len(t, got.Routes, n+2)
	}
}

func TestConvertIntrospectionRootAndIndex(t *testing.T) {
	entries := []IntrospectionRoute{
		{Source: rawSource(t, "/")},
		{Source: rawSource(t, "/a")},
		{Source: rawSource(t, nil)},
		{},
	}
	got, err := ConvertIntrospection(entries, true)
	require.NoError(t, err)
	assert.Len(t, got.Routes, 3)
	assert.Equal(t, []string{"/a"}, got.IndexAliases)
}

func TestConvertIntrospectionFailsOnUncompilableSource(t *testing.T) {
	entries := []IntrospectionRoute{
		{Source: rawSource(t, "/ok")},
		{Source: rawSource(t, "/(bad")},
		{Source: rawSource(t, "/later")},
	}
	got, err := ConvertIntrospection(entries, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/(bad")
	assert.Empty(t, got.Routes)
	assert.Empty(t, got.IndexAliases)
}

func TestReadIntrospection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")

	f, found, err := ReadIntrospection(path)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, f)

	require.NoError(t, os.WriteFile(path, []byte(`{"routes":[{"source":"/x","methods":["POST"]}]}`), 0o600))
	f, found, err = ReadIntrospection(path)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, f.Routes, 1)
	assert.Equal(t, []string{"POST"}, f.Routes[0].Methods)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, found, err = ReadIntrospection(path)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestIsCatchAll(t *testing.T) {
	assert.True(t, Route{Src: "/(.*)", Dest: "/"}.IsCatchAll())
	assert.True(t, Route{Src: "^/.*$", Dest: "/index.html"}.IsCatchAll())
	assert.False(t, Route{Src: "^/.*$", Continue: true}.IsCatchAll())
	assert.False(t, Route{Src: "^/.*$", MiddlewarePath: "middleware"}.IsCatchAll())
	assert.False(t, Route{Handle: HandleFilesystem}.IsCatchAll())
	assert.False(t, Route{Src: "/api/(.*)"}.IsCatchAll())
}

func TestRouteJSON(t *testing.T) {
	r := Route{Src: "^/.*$", MiddlewarePath: "middleware", MiddlewareRawSrc: RawSources(nil), Override: true, Continue: true}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"src":"^/.*$","middlewarePath":"middleware","middlewareRawSrc":[],"override":true,"continue":true}`, string(b))

	b, err = json.Marshal(HandleRoute(HandleError))
	require.NoError(t, err)
	assert.Equal(t, `{"handle":"error"}`, string(b))
}

func TestMerge(t *testing.T) {
	user := []Route{
		{Src: "/old", Dest: "/new", Status: 308},
	}
	backend := []Route{
		{Handle: HandleFilesystem},
		{Src: "^/api$", Dest: "/api"},
		{Src: "/(.*)", Dest: "/"},
	}
	frontend := []Route{
		{Handle: HandleError},
		{Src: "/(.*)", Dest: "/404", Status: 404},
		{Handle: HandleFilesystem},
		{Src: "^/assets/(.*)$", Dest: "/assets/$1"},
	}
	middleware := []Route{
		{Src: "^/.*$", MiddlewarePath: "middleware", MiddlewareRawSrc: RawSources(nil), Override: true, Continue: true},
	}

	got := Merge(user, backend, frontend, middleware)

	want := []Route{
		{Src: "^/.*$", MiddlewarePath: "middleware", MiddlewareRawSrc: RawSources(nil), Override: true, Continue: true},
		{Src: "/old", Dest: "/new", Status: 308},
		{Handle: HandleFilesystem},
		{Src: "^/api$", Dest: "/api"},
		{Src: "^/assets/(.*)$", Dest: "/assets/$1"},
		{Handle: HandleError},
		{Src: "/(.*)", Dest: "/404", Status: 404},
		{Src: "/(.*)", Dest: "/"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged routes mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCatchAllLastAndDeduplicated(t *testing.T) {
	a := []Route{{Handle: HandleFilesystem}, {Src: "^/a$", Dest: "/a"}, {Src: "/(.*)", Dest: "/"}}
	b := []Route{{Handle: HandleFilesystem}, {Src: "^/b$", Dest: "/b"}, {Src: "/(.*)", Dest: "/"}}

	got := Merge(nil, a, b)

	require.Len(t, got, 4)
	assert.Equal(t, Route{Src: "/(.*)", Dest: "/"}, got[len(got)-1])
	assert.Equal(t, HandleFilesystem, got[0].Handle)
}

func TestMergeKeepsCatchAllsThatDifferBeyondSrcAndDest(t *testing.T) {
	a := []Route{{Src: "/(.*)", Dest: "/", Status: 200}}
	b := []Route{
		{Src: "/(.*)", Dest: "/", Status: 404},
		{Src: "/(.*)", Dest: "/", Status: 404, Headers: map[string]string{"x-a": "1"}},
		{Src: "/(.*)", Dest: "/", Status: 404, Headers: map[string]string{"x-a": "1"}},
	}

	got := Merge(nil, a, b)

	want := []Route{
		{Src: "/(.*)", Dest: "/", Status: 200},
		{Src: "/(.*)", Dest: "/", Status: 404},
		{Src: "/(.*)", Dest: "/", Status: 404, Headers: map[string]string{"x-a": "1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("catch-alls mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeEmpty(t *testing.T) {
	assert.Nil(t, Merge(nil))
	assert.Nil(t, Merge(nil, nil, []Route{}))
}

func TestMergeUnknownPhase(t *testing.T) {
	got := Merge(nil, []Route{{Handle: "cache"}, {Src: "^/c$"}}, []Route{{Handle: HandleMiss}, {Src: "^/m$"}})
	want := []Route{
		{Handle: HandleMiss},
		{Src: "^/m$"},
		{Handle: "cache"},
		{Src: "^/c$"},
	}
	assert.Equal(t, want, got)
}

func TestMatcherToRegex(t *testing.T) {
	got, err := MatcherToRegex([]string{"/about/:path*", "/dashboard/:path*"})
	require.NoError(t, err)
	want := `^\/about(?:\/((?:[^\/#\?]+?)(?:\/(?:[^\/#\?]+?))*))?[\/#\?]?$` +
		`|` +
		`^\/dashboard(?:\/((?:[^\/#\?]+?)(?:\/(?:[^\/#\?]+?))*))?[\/#\?]?$`
	assert.Equal(t, want, got)

	re := regexp.MustCompile(got)
	assert.True(t, re.MatchString("/about/"))
	assert.True(t, re.MatchString("/dashboard/a/b"))
	assert.False(t, re.MatchString("/blog"))

	_, err = MatcherToRegex([]string{"/ok", "/(bad"})
	assert.Error(t, err)
}
