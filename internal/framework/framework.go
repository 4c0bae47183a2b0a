// Package framework lists the frontend and backend frameworks the assembler
// knows default routing for.
package framework

import (
	"git.home.luguber.info/inful/assembler/internal/routes"
)

// Framework describes one framework.
type Framework struct {
	Slug string
	Name string
	// Backend frameworks run as a server function and describe their routes
	// in routes.json.
	Backend bool
	// DefaultRoutes are used for zero-config frontend builds that return no
	// routes.
	DefaultRoutes []routes.Route
	// DeploymentIDManifest is a JSON file, relative to the work path, that
	// may carry a top-level "deploymentId" written by the framework build.
	DeploymentIDManifest string
}

var spaFallback = []routes.Route{
	{Handle: routes.HandleFilesystem},
	{Src: "/(.*)", Dest: "/index.html"},
}

var notFoundPage = []routes.Route{
	{Handle: routes.HandleFilesystem},
	{Src: "/(.*)", Status: 404, Dest: "/404.html"},
}

var list = []Framework{
	{Slug: "nextjs", Name: "Next.js", DeploymentIDManifest: ".next/routes-manifest.json"},
	{Slug: "vite", Name: "Vite", DefaultRoutes: spaFallback},
	{
		Slug: "create-react-app",
		Name: "Create React App",
		DefaultRoutes: []routes.Route{
			{Src: "^/static/(.*)", Headers: map[string]string{"cache-control": "s-maxage=31536000, immutable"}, Continue: true},
			{Src: `^/service-worker\.js$`, Headers: map[string]string{"cache-control": "s-maxage=0"}, Continue: true},
			{Handle: routes.HandleFilesystem},
			{Src: "^/.*", Dest: "/index.html"},
		},
	},
	{Slug: "vue", Name: "Vue.js", DefaultRoutes: spaFallback},
	{Slug: "angular", Name: "Angular", DefaultRoutes: spaFallback},
	{Slug: "hugo", Name: "Hugo", DefaultRoutes: notFoundPage},
	{Slug: "docusaurus-2", Name: "Docusaurus 2", DefaultRoutes: notFoundPage},
	{Slug: "astro", Name: "Astro"},
	{Slug: "express", Name: "Express", Backend: true},
	{Slug: "hono", Name: "Hono", Backend: true},
	{Slug: "fastify", Name: "Fastify", Backend: true},
	{Slug: "nestjs", Name: "NestJS", Backend: true},
}

// Find returns the framework with the given slug.
func Find(slug string) (Framework, bool) {
	for _, f := range list {
		if f.Slug == slug {
			return f, true
		}
	}
	return Framework{}, false
}

// DefaultRoutes returns a copy of the default routes for slug, or nil.
func DefaultRoutes(slug string) []routes.Route {
	f, ok := Find(slug)
	if !ok || len(f.DefaultRoutes) == 0 {
		return nil
	}
	out := make([]routes.Route, len(f.DefaultRoutes))
	copy(out, f.DefaultRoutes)
	return out
}

// DeploymentIDManifests returns the manifest paths that may carry a
// framework-written deployment identifier, in lookup order.
func DeploymentIDManifests() []string {
	var out []string
	for _, f := range list {
		if f.DeploymentIDManifest != "" {
			out = append(out, f.DeploymentIDManifest)
		}
	}
	return out
}
