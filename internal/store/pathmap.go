package store

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxDepth is the default number of shard directory levels.
	DefaultMaxDepth = 20

	// Placeholder replaces every key character outside [0-9A-Za-z].
	Placeholder = '_'

	dataExt = ".dat"
)

// Sanitize maps key onto the filesystem-safe alphabet, one output byte per
// character. Each invalid UTF-8 byte counts as one character. The result is
// ASCII with as many bytes as key has characters; the mapping is not
// injective.
func Sanitize(key string) string {
	b := make([]byte, 0, len(key))
	for _, r := range key {
		if isSafe(r) {
			b = append(b, byte(r))
		} else {
			b = append(b, Placeholder)
		}
	}
	return string(b)
}

func isSafe(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// PathMapper resolves keys to file paths below a root directory.
type PathMapper struct {
	root     string
	maxDepth int
	suffix   string
}

// NewPathMapper returns a mapper for root. A maxDepth of 0 selects DefaultMaxDepth.
func NewPathMapper(root string, maxDepth int, c Compression) *PathMapper {
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	return &PathMapper{
		root:     root,
		maxDepth: maxDepth,
		suffix:   dataExt + c.Ext(),
	}
}

// Resolve returns the file path for key: one single-character directory per
// leading sanitized character, up to maxDepth levels and never including the
// last character, then <sanitized>.dat[.ext].
func (m *PathMapper) Resolve(key string) string {
	s := Sanitize(key)
	depth := min(m.maxDepth, len(s)-1)

	parts := make([]string, 0, depth+2)
	parts = append(parts, m.root)
	for i := 0; i < depth; i++ {
		parts = append(parts, s[i:i+1])
	}
	parts = append(parts, s+m.suffix)
	return filepath.Join(parts...)
}

// Root returns the directory the mapper resolves below.
func (m *PathMapper) Root() string {
	return m.root
}

// keyFromName recovers the sanitized key from an entry file name by
// stripping the compression extension and then .dat, each only if present.
func keyFromName(name, compExt string) string {
	if compExt != "" {
		name = strings.TrimSuffix(name, compExt)
	}
	return strings.TrimSuffix(name, dataExt)
}
