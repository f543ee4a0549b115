// Package resolve finds the files an assembly pulls in through INCLUDE and
// INCBIN.
//
// A request is resolved against an ordered list of search roots:
//
//  1. the working root of the invocation,
//  2. the directory of the unit that issued the request,
//  3. the directory of the entry source file,
//  4. every include directory, in command-line order.
//
// All candidate paths are computed up front and the cache is consulted for
// any of them before the filesystem is touched, so a path that was already
// found from one root short-circuits every later request for it.
package resolve

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"

	"hgb/internal/diag"
	"hgb/internal/report"
	"hgb/internal/source"
)

// Request is one lookup issued by the assembler engine.
type Request struct {
	Path   string
	Sender *source.Unit // unit containing the directive; nil for the entry file
	Binary bool
}

// Options configure a Resolver for one invocation.
type Options struct {
	// Root is the working root; relative roots below are taken relative to it.
	Root string
	// EntryDir is the directory containing the top-level source file.
	EntryDir string
	// IncludeDirs are searched last, in order.
	IncludeDirs []string
	// Cache may be shared between resolvers of the same invocation; nil creates one.
	Cache *Cache
	// Reporter receives trace-level resolution logs; may be nil.
	Reporter *report.Reporter
}

// Stats counts resolver activity.
type Stats struct {
	Requests int64
	Hits     int64
	Misses   int64
	Reads    int64
}

// candidateGen yields the search root for a request, or "" when it has none.
type candidateGen func(req Request) string

// Resolver implements the search protocol over an afero filesystem.
type Resolver struct {
	fs         afero.Fs
	root       string
	cache      *Cache
	generators []candidateGen
	reporter   *report.Reporter

	requests atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	reads    atomic.Int64
}

// New creates a resolver. Root must be absolute.
func New(fs afero.Fs, opts Options) (*Resolver, error) {
	if !filepath.IsAbs(opts.Root) {
		return nil, fmt.Errorf("resolver root %q is not absolute", opts.Root)
	}
	root := filepath.Clean(opts.Root)
	cache := opts.Cache
	if cache == nil {
		cache = NewCache(32)
	}

	entryDir := absUnder(root, opts.EntryDir)
	includes := make([]string, 0, len(opts.IncludeDirs))
	for _, dir := range opts.IncludeDirs {
		includes = append(includes, absUnder(root, dir))
	}

	r := &Resolver{
		fs:       fs,
		root:     root,
		cache:    cache,
		reporter: opts.Reporter,
	}
	r.generators = []candidateGen{
		func(Request) string { return root },
		func(req Request) string {
			if req.Sender == nil {
				return ""
			}
			return absUnder(root, req.Sender.Dir())
		},
		func(Request) string { return entryDir },
	}
	for _, dir := range includes {
		r.generators = append(r.generators, func(Request) string { return dir })
	}
	return r, nil
}

// Cache exposes the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Candidates returns the absolute paths tried for req, in precedence order,
// without duplicates.
func (r *Resolver) Candidates(req Request) []string {
	out := make([]string, 0, len(r.generators))
	seen := make(map[string]struct{}, len(r.generators))
	for _, gen := range r.generators {
		base := gen(req)
		if base == "" {
			continue
		}
		var p string
		if filepath.IsAbs(req.Path) {
			p = filepath.Clean(req.Path)
		} else {
			p = filepath.Join(base, filepath.FromSlash(req.Path))
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Resolve returns the unit for req, or false when no candidate can be read.
// A miss is not an error; the engine decides whether it is fatal.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*source.Unit, bool) {
	r.requests.Add(1)
	if ctx.Err() != nil {
		r.misses.Add(1)
		return nil, false
	}

	candidates := r.Candidates(req)
	if u, ok := r.cache.lookupAny(candidates, req.Binary); ok {
		r.hits.Add(1)
		r.reporter.Logf(diag.SevTrace, "resolve %q: cached %s", req.Path, u.Path)
		return u, true
	}

	for _, abs := range candidates {
		u, ok := r.read(abs, req.Binary)
		if !ok {
			continue
		}
		r.cache.Put(u)
		r.reporter.Logf(diag.SevTrace, "resolve %q: found %s", req.Path, u.Path)
		return u, true
	}

	r.misses.Add(1)
	r.reporter.Logf(diag.SevTrace, "resolve %q: not found (%d candidates)", req.Path, len(candidates))
	return nil, false
}

// Load reads the entry source, relative to the working root, in text mode
// and caches it. Unlike Resolve, failure is reported as an error.
func (r *Resolver) Load(path string) (*source.Unit, error) {
	abs := absUnder(r.root, path)
	if u, ok := r.cache.Get(abs, false); ok {
		return u, nil
	}
	raw, err := r.readFile(abs)
	if err != nil {
		return nil, err
	}
	u, err := r.wrap(abs, raw, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.cache.Put(u)
	return u, nil
}

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Requests: r.requests.Load(),
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Reads:    r.reads.Load(),
	}
}

func (r *Resolver) read(abs string, binary bool) (*source.Unit, bool) {
	raw, err := r.readFile(abs)
	if err != nil {
		return nil, false
	}
	u, err := r.wrap(abs, raw, binary)
	if err != nil {
		return nil, false
	}
	return u, true
}

// readFile opens abs once; directories do not count as a match.
func (r *Resolver) readFile(abs string) ([]byte, error) {
	r.reads.Add(1)
	f, err := r.fs.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", abs)
	}
	return io.ReadAll(f)
}

func (r *Resolver) wrap(abs string, raw []byte, binary bool) (*source.Unit, error) {
	rel, err := source.RelativePath(abs, r.root)
	if err != nil {
		rel = abs
	}
	if binary {
		return source.NewUnit(rel, abs, raw, source.UnitBinary), nil
	}
	text, flags, err := source.DecodeText(raw)
	if err != nil {
		return nil, err
	}
	return source.NewUnit(rel, abs, text, flags), nil
}

func absUnder(root, p string) string {
	if p == "" {
		return root
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
