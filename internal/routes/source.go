package routes

import (
	"fmt"
	"strings"

	pathtoregexp "github.com/soongo/path-to-regexp"
)

// SourceToRegex compiles a path pattern such as "/api/users/:id" into an
// anchored regular expression source, using strict, case-sensitive matching
// with "/" as the segment delimiter. It also returns the parameter names in
// the order they appear; unnamed groups are numbered from 0.
//
//	/api/users/:id  ->  ^\/api\/users(?:\/([^\/#\?]+?))$
func SourceToRegex(source string) (string, []string, error) {
	return compile(source, true)
}

// MatcherToRegex compiles middleware matchers the way SourceToRegex does,
// but each pattern also accepts one trailing delimiter. Several matchers are
// joined into one alternation.
//
//	/about/:path*  ->  ^\/about(?:\/((?:[^\/#\?]+?)(?:\/(?:[^\/#\?]+?))*))?[\/#\?]?$
func MatcherToRegex(matchers []string) (string, error) {
	parts := make([]string, 0, len(matchers))
	for _, m := range matchers {
		src, _, err := compile(m, false)
		if err != nil {
			return "", fmt.Errorf("matcher %q: %w", m, err)
		}
		parts = append(parts, src)
	}
	return strings.Join(parts, "|"), nil
}

func compile(source string, strict bool) (string, []string, error) {
	var tokens []pathtoregexp.Token
	re, err := pathtoregexp.PathToRegexp(source, &tokens, &pathtoregexp.Options{
		Sensitive: true,
		Strict:    strict,
	})
	if err != nil {
		return "", nil, err
	}

	var segments []string
	for _, t := range tokens {
		segments = append(segments, fmt.Sprint(t.Name))
	}
	return re.String(), segments, nil
}
