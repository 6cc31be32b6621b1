// Package ignore provides ordered glob-based path exclusion with gitignore
// semantics: negation (!), directory-only patterns (trailing /), ** globs,
// and last-match-wins evaluation. Rules are applied to slash-separated paths
// relative to the watched root.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is a single compiled ignore pattern.
type Rule struct {
	pattern  string // cleaned pattern, no negation/dir markers
	raw      string // original pattern text
	negation bool   // starts with !
	dirOnly  bool   // ends with /
	anchored bool   // contains / (matches from base, not any depth)
	base     string // base directory for nested ignore files, "" = root
}

// Matcher evaluates an ordered rule list against relative paths.
type Matcher struct {
	mu    sync.RWMutex
	rules []Rule
}

// New creates a Matcher preloaded with the given patterns.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.Add(p)
	}
	return m
}

// Add appends a pattern to the rule list.
func (m *Matcher) Add(pattern string) {
	m.AddWithBase(pattern, "")
}

// AddWithBase appends a pattern that only applies under the given base
// directory (slash-separated, relative to the root).
func (m *Matcher) AddWithBase(pattern, base string) {
	r, ok := parsePattern(pattern, base)
	if !ok {
		return
	}

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// LoadFile reads patterns from a gitignore-style file. base scopes the
// patterns to the file's directory, following nested .gitignore behavior.
func (m *Matcher) LoadFile(filePath, base string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddWithBase(scanner.Text(), base)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ignore file: %w", err)
	}
	return nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether relPath should be ignored. relPath is
// slash-separated and relative to the root; isDir says whether it names a
// directory. Rules are applied in order, last match wins.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = strings.Trim(path.Clean(relPath), "/")
	if relPath == "." || relPath == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.match(relPath, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

// parsePattern compiles one pattern line. Returns ok=false for blank lines
// and comments.
func parsePattern(pattern, base string) (Rule, bool) {
	raw := pattern
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return Rule{}, false
	}

	r := Rule{raw: raw, base: strings.Trim(base, "/")}

	if strings.HasPrefix(pattern, `\#`) || strings.HasPrefix(pattern, `\!`) {
		pattern = pattern[1:]
	} else if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") {
		// "doc/frotz" means "/doc/frotz", not "**/doc/frotz"
		r.anchored = true
	}

	if pattern == "" {
		return Rule{}, false
	}

	r.pattern = pattern
	return r, true
}

// match checks a single rule against a relative path.
func (r Rule) match(relPath string, isDir bool) bool {
	if r.base != "" {
		if relPath == r.base {
			return false
		}
		if !strings.HasPrefix(relPath, r.base+"/") {
			return false
		}
		relPath = strings.TrimPrefix(relPath, r.base+"/")
	}

	pat := r.pattern
	if !r.anchored {
		// Unanchored patterns match at any depth
		pat = "**/" + pat
	}

	// Exact match of the path itself
	if ok, err := doublestar.Match(pat, relPath); err == nil && ok {
		if r.dirOnly && !isDir {
			return false
		}
		return true
	}

	// A pattern naming a directory also covers everything inside it
	if ok, err := doublestar.Match(pat+"/**", relPath); err == nil && ok {
		return true
	}

	return false
}
