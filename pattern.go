package filesession

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// pathPatterns matches file paths that must use fallback locking even when
// native locking is available, e.g. network mounts where flock is unreliable.
type pathPatterns []glob.Glob

func compilePatterns(patterns []string) (pathPatterns, error) {
	compiled := make(pathPatterns, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid fallback pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func (p pathPatterns) match(path string) bool {
	if len(p) == 0 {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	for _, g := range p {
		if g.Match(path) {
			return true
		}
	}
	return false
}
