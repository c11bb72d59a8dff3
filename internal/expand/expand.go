// Package expand turns command-line patterns into file paths.
package expand

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	logging "gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("expand")

// DependencyDir is the path segment skipped when IgnoreNodeModules is set.
const DependencyDir = "node_modules"

// Options controls expansion.
type Options struct {
	// IgnoreNodeModules drops every path with a node_modules segment.
	IgnoreNodeModules bool
}

// Error reports a pattern that could not be expanded.
type Error struct {
	Pattern string
	Err     error
}

func (e *Error) Error() string { return e.Pattern + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Match is the result of expanding one pattern. Exactly one of Paths and Err
// is meaningful; a glob that matches nothing has neither.
type Match struct {
	Pattern string
	Paths   []string
	Err     *Error
}

// IsGlob reports whether p contains glob metacharacters.
func IsGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// InDependencyDir reports whether any segment of p's absolute form is
// node_modules.
func InDependencyDir(p string) bool {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == DependencyDir {
			return true
		}
	}
	return false
}

type pending struct {
	match Match
	done  chan struct{}
}

// Expand resolves patterns and calls visit once per pattern that produced
// paths or an error, in the order the patterns were given. Literal patterns
// are passed through without touching the filesystem; glob patterns are
// expanded concurrently. Dot-files are included and only regular files
// match. Expand stops early and returns the error if visit fails or ctx is
// cancelled.
func Expand(ctx context.Context, patterns []string, opts Options, visit func(Match) error) error {
	slots := make([]*pending, len(patterns))
	var g errgroup.Group
	for i, pat := range patterns {
		pat := pat
		s := &pending{match: Match{Pattern: pat}, done: make(chan struct{})}
		slots[i] = s
		if !IsGlob(pat) {
			if !opts.IgnoreNodeModules || !InDependencyDir(pat) {
				s.match.Paths = []string{pat}
			}
			close(s.done)
			continue
		}
		g.Go(func() error {
			defer close(s.done)
			paths, err := glob(pat, opts)
			if err != nil {
				s.match.Err = &Error{Pattern: pat, Err: err}
				return nil
			}
			log.Debug("pattern %q matched %d files", pat, len(paths))
			s.match.Paths = paths
			return nil
		})
	}
	defer g.Wait()

	for _, s := range slots {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if len(s.match.Paths) == 0 && s.match.Err == nil {
			continue
		}
		if err := visit(s.match); err != nil {
			return err
		}
	}
	return nil
}

func glob(pattern string, opts Options) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern,
		doublestar.WithFilesOnly(),
		doublestar.WithFailOnIOErrors(),
	)
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if opts.IgnoreNodeModules && InDependencyDir(m) {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// BaseDirs returns the directories that must be watched to observe every
// file the patterns can match.
func BaseDirs(patterns []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, pat := range patterns {
		dir := filepath.Dir(pat)
		if IsGlob(pat) {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(pat))
			dir = filepath.FromSlash(base)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Matches reports whether path is one of the files pattern names.
func Matches(pattern, path string, opts Options) bool {
	if opts.IgnoreNodeModules && InDependencyDir(path) {
		return false
	}
	if !IsGlob(pattern) {
		return sameFile(pattern, path)
	}
	ap, err := filepath.Abs(pattern)
	if err != nil {
		return false
	}
	aq, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	ok, err := doublestar.PathMatch(ap, aq)
	return err == nil && ok
}

func sameFile(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
