package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidExtension is returned for a malformed skip-list entry.
var ErrInvalidExtension = errors.New("invalid skip extension")

// SkipSet is an immutable, case-insensitive set of file extensions that are
// never passed to the compressor.
type SkipSet struct {
	exts map[string]struct{}
}

// NewSkipSet normalizes extensions to lower case with a leading dot.
// Empty entries and entries containing a path separator are rejected.
func NewSkipSet(extensions []string) (*SkipSet, error) {
	set := &SkipSet{exts: make(map[string]struct{}, len(extensions))}

	for _, raw := range extensions {
		ext := strings.ToLower(strings.TrimSpace(raw))
		ext = strings.TrimPrefix(ext, "*")

		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		if ext == "" || ext == "." || strings.ContainsAny(ext, `/\`) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidExtension, raw)
		}

		set.exts[ext] = struct{}{}
	}

	return set, nil
}

// Contains reports whether path's extension is in the set.
func (s *SkipSet) Contains(path string) bool {
	if s == nil || len(s.exts) == 0 {
		return false
	}

	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}

	_, ok := s.exts[strings.ToLower(ext)]

	return ok
}

// Len returns the number of extensions.
func (s *SkipSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.exts)
}

// Extensions returns the normalized extensions in sorted order.
func (s *SkipSet) Extensions() []string {
	if s == nil {
		return nil
	}

	out := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		out = append(out, ext)
	}

	sort.Strings(out)

	return out
}
