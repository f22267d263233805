// SPDX-License-Identifier: MPL-2.0

package modsource

import (
	"path"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// globMatcher matches file names against shell-style patterns. Compiled
// patterns are kept in an LRU owned by a single source.
type globMatcher struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

func newGlobMatcher(size int) *globMatcher {
	if size <= 0 {
		size = DefaultGlobCacheSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, *regexp.Regexp](size)
	return &globMatcher{cache: cache}
}

// compile returns the anchored regexp for pattern, caching it.
func (g *globMatcher) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := g.cache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(globToRegexp(pattern))
	if err != nil {
		return nil, err
	}
	g.cache.Add(pattern, re)
	return re, nil
}

// filter returns the paths whose base name matches pattern, sorted.
// Non-recursive filtering drops any path below the root.
func (g *globMatcher) filter(paths []string, pattern string, recursive bool) ([]string, error) {
	re, err := g.compile(pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !recursive && strings.Contains(p, "/") {
			continue
		}
		if re.MatchString(path.Base(p)) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// globToRegexp translates '*' and '?' wildcards; everything else is literal.
func globToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}
