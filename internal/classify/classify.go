// Package classify maps filesystem paths to semantic file types and
// include/exclude verdicts. Classification is pure name/extension
// heuristics: paths need not exist, so deletion events classify the same
// way as creations.
package classify

import (
	"log/slog"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vigil-dev/vigil/internal/ignore"
)

// FileType is the semantic tag assigned to a path.
type FileType string

const (
	// TypeSource is a source code file.
	TypeSource FileType = "source"
	// TypeTest is a test file.
	TypeTest FileType = "test"
	// TypeDoc is a documentation file.
	TypeDoc FileType = "doc"
	// TypeConfig is a configuration file.
	TypeConfig FileType = "config"
	// TypeUnknown is anything not recognized by the heuristics.
	TypeUnknown FileType = "unknown"
)

// sourceExts maps file extensions to source languages.
var sourceExts = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".zsh":   "shell",
	".sql":   "sql",
	".ex":    "elixir",
	".exs":   "elixir",
	".lua":   "lua",
	".zig":   "zig",
}

var docExts = map[string]bool{
	".md":   true,
	".rst":  true,
	".adoc": true,
	".txt":  true,
}

var configExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".toml": true,
	".json": true,
	".ini":  true,
	".env":  true,
}

// configNames are extensionless files treated as configuration.
var configNames = map[string]bool{
	"dockerfile": true,
	"makefile":   true,
	"justfile":   true,
	".gitignore": true,
}

const defaultCacheSize = 4096

// Classifier assigns file types and include verdicts for paths under a
// watched root. It is safe for concurrent use; results are memoized in an
// LRU cache keyed by relative path.
type Classifier struct {
	root   string
	rules  *ignore.Matcher
	cache  *lru.Cache[string, verdict]
	logger *slog.Logger
}

type verdict struct {
	fileType FileType
	included bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCacheSize overrides the memoization cache size.
func WithCacheSize(n int) Option {
	return func(c *Classifier) {
		cache, _ := lru.New[string, verdict](n)
		c.cache = cache
	}
}

// WithLogger sets the logger used for classification warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a Classifier rooted at root, consulting rules for exclusion.
// root must be absolute; rules may be empty but not nil.
func New(root string, rules *ignore.Matcher, opts ...Option) *Classifier {
	cache, _ := lru.New[string, verdict](defaultCacheSize)
	c := &Classifier{
		root:   filepath.Clean(root),
		rules:  rules,
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps a path to its file type and include verdict. The path may
// be absolute or relative to the root; it need not exist. Paths outside the
// root or matching an ignore rule are excluded. Unrecognizable paths are
// logged as warnings and treated as unknown but included.
func (c *Classifier) Classify(path string) (FileType, bool) {
	rel, ok := c.relative(path)
	if !ok {
		return TypeUnknown, false
	}

	if v, hit := c.cache.Get(rel); hit {
		return v.fileType, v.included
	}

	v := verdict{
		fileType: typeOf(rel),
		included: !c.rules.Match(rel, false),
	}
	c.cache.Add(rel, v)
	return v.fileType, v.included
}

// ExcludedDir reports whether a directory should be pruned from watching.
func (c *Classifier) ExcludedDir(path string) bool {
	rel, ok := c.relative(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	return c.rules.Match(rel, true)
}

// Root returns the classifier's root directory.
func (c *Classifier) Root() string {
	return c.root
}

// relative resolves a path against the root. ok is false for paths that
// escape the root.
func (c *Classifier) relative(path string) (string, bool) {
	if path == "" {
		c.logger.Warn("classification warning: empty path")
		return "", false
	}
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), true
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		c.logger.Warn("classification warning: unresolvable path",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// typeOf determines the semantic type from the file name alone.
// Test detection runs before the extension maps so test_foo.py is a test,
// not generic python source.
func typeOf(rel string) FileType {
	name := strings.ToLower(filepath.Base(filepath.FromSlash(rel)))
	ext := filepath.Ext(name)

	if isTestName(name, ext) {
		return TypeTest
	}
	if _, ok := sourceExts[ext]; ok {
		return TypeSource
	}
	if docExts[ext] {
		return TypeDoc
	}
	if configExts[ext] || configNames[name] {
		return TypeConfig
	}
	return TypeUnknown
}

// isTestName applies per-ecosystem test naming conventions.
func isTestName(name, ext string) bool {
	stem := strings.TrimSuffix(name, ext)
	switch {
	case strings.HasSuffix(stem, "_test") && ext == ".go":
		return true
	case strings.HasPrefix(name, "test_") && ext == ".py":
		return true
	case strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec"):
		// foo.test.ts / foo.spec.js style
		return ext == ".js" || ext == ".jsx" || ext == ".ts" || ext == ".tsx"
	}
	return false
}

// Language returns the source language for a path, or empty if none.
func Language(path string) string {
	return sourceExts[strings.ToLower(filepath.Ext(path))]
}
