// Package asm is the reference assembler engine behind hgbasm.
//
// It understands a deliberately small directive set (sections, labels,
// constants, data, INCLUDE/INCBIN) and a handful of instructions, which is
// enough to drive the resolver, the dependency file and the object format
// end to end.
package asm

import (
	"context"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"hgb/internal/depfile"
	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/engine/object"
	"hgb/internal/resolve"
	"hgb/internal/source"
)

const (
	// DefaultMaxDepth bounds INCLUDE nesting.
	DefaultMaxDepth = 64
	// DefaultPrefetch bounds concurrent lookups issued per file.
	DefaultPrefetch = 8
)

// Engine implements engine.Assembler.
type Engine struct {
	MaxDepth int
	Prefetch int
}

// New returns an engine with default limits.
func New() *Engine {
	return &Engine{MaxDepth: DefaultMaxDepth, Prefetch: DefaultPrefetch}
}

var _ engine.Assembler = (*Engine)(nil)

// Assemble processes root and everything it includes. Problems in the
// source become diagnostics; only cancellation is returned as an error.
func (e *Engine) Assemble(ctx context.Context, opts engine.AsmOptions, root *source.Unit, files engine.FileProvider) (*engine.AsmResult, error) {
	bag := diag.NewBag(0)
	a := &assembly{
		ctx:      ctx,
		opts:     opts,
		files:    files,
		bag:      bag,
		rep:      diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		obj:      &object.File{},
		cur:      -1,
		sections: make(map[string]int),
		symbols:  make(map[string]int),
		equs:     make(map[string]string),
		depSeen:  make(map[string]struct{}),
		maxDepth: e.MaxDepth,
		prefetch: e.Prefetch,
	}
	if a.maxDepth <= 0 {
		a.maxDepth = DefaultMaxDepth
	}
	if a.prefetch <= 0 {
		a.prefetch = DefaultPrefetch
	}
	if opts.DebugDefine.Name != "" {
		a.equs[opts.DebugDefine.Name] = opts.DebugDefine.Value
	}

	a.processUnit(root, 0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.finish(root)

	return &engine.AsmResult{
		Object:       a.obj,
		Dependencies: a.deps,
		Diagnostics:  bag.Items(),
	}, nil
}

type pendingExport struct {
	name string
	pos  source.Pos
}

// assembly is the state of one Assemble call.
type assembly struct {
	ctx   context.Context
	opts  engine.AsmOptions
	files engine.FileProvider
	bag   *diag.Bag
	rep   diag.Reporter

	obj      *object.File
	cur      int
	sections map[string]int
	symbols  map[string]int
	equs     map[string]string
	scope    string
	exports  []pendingExport

	deps    []depfile.Entry
	depSeen map[string]struct{}

	maxDepth int
	prefetch int
}

func (a *assembly) processUnit(u *source.Unit, depth int) {
	a.prefetchUnit(u)
	n, err := safecast.Conv[uint32](u.LineCount())
	if err != nil {
		panic(fmt.Errorf("line count overflow: %w", err))
	}
	for i := uint32(1); i <= n; i++ {
		if a.ctx.Err() != nil {
			return
		}
		raw := u.GetLine(i)
		// Diagnostics point at the first token of the line.
		a.line(u, u.PosAt(u.LineOffset(i)+indentWidth(raw)), raw, depth)
	}
}

func indentWidth(line string) uint32 {
	var n uint32
	for n < uint32(len(line)) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

// prefetchUnit resolves every literal INCLUDE/INCBIN target of u
// concurrently so the sequential pass finds them in the resolver cache.
func (a *assembly) prefetchUnit(u *source.Unit) {
	reqs := scanFileRequests(u)
	if len(reqs) < 2 {
		return
	}
	g, gctx := errgroup.WithContext(a.ctx)
	g.SetLimit(a.prefetch)
	for _, req := range reqs {
		g.Go(func() error {
			a.files.Resolve(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
}

func scanFileRequests(u *source.Unit) []resolve.Request {
	var reqs []resolve.Request
	for _, line := range strings.Split(u.Text(), "\n") {
		text := strings.TrimSpace(stripComment(line))
		word, rest := splitWord(text)
		if strings.HasSuffix(word, ":") {
			word, rest = splitWord(rest)
		}
		binary := false
		switch strings.ToUpper(word) {
		case "INCLUDE":
		case "INCBIN":
			binary = true
		default:
			continue
		}
		ops := splitOperands(rest)
		if len(ops) == 0 {
			continue
		}
		path, err := parseString(ops[0])
		if err != nil {
			continue
		}
		reqs = append(reqs, resolve.Request{Path: path, Sender: u, Binary: binary})
	}
	return reqs
}

// addDependency records a resolved file once, in discovery order.
func (a *assembly) addDependency(u *source.Unit, kind depfile.Kind) {
	if _, ok := a.depSeen[u.Path]; ok {
		return
	}
	a.depSeen[u.Path] = struct{}{}
	a.deps = append(a.deps, depfile.Entry{Path: u.Path, Kind: kind})
}

func (a *assembly) line(u *source.Unit, pos source.Pos, raw string, depth int) {
	text := strings.TrimRight(stripComment(raw), " \t")
	if strings.TrimSpace(text) == "" {
		return
	}

	atColumnZero := text[0] != ' ' && text[0] != '\t'
	word, rest := splitWord(text)

	switch {
	case strings.HasSuffix(word, "::"):
		a.defineLabel(pos, strings.TrimSuffix(word, "::"), true)
		word, rest = splitWord(rest)
	case strings.HasSuffix(word, ":"):
		a.defineLabel(pos, strings.TrimSuffix(word, ":"), false)
		word, rest = splitWord(rest)
	case atColumnZero && strings.HasPrefix(word, "."):
		a.defineLabel(pos, word, false)
		word, rest = splitWord(rest)
	}
	if word == "" {
		return
	}

	// NAME EQU value / NAME EQUS "text"
	if next, tail := splitWord(rest); next != "" {
		switch strings.ToUpper(next) {
		case "EQU":
			a.defineConstant(pos, word, expandEqus(tail, a.equs))
			return
		case "EQUS":
			a.defineString(pos, word, tail)
			return
		}
	}

	a.statement(u, pos, strings.ToUpper(word), expandEqus(rest, a.equs), depth)
}

func (a *assembly) statement(u *source.Unit, pos source.Pos, keyword, rest string, depth int) {
	ops := splitOperands(rest)
	switch keyword {
	case "SECTION":
		a.section(pos, ops)
	case "INCLUDE":
		a.include(u, pos, ops, depth)
	case "INCBIN":
		a.incbin(u, pos, ops)
	case "DB":
		a.db(pos, ops)
	case "DW":
		a.dw(pos, ops)
	case "DS":
		a.ds(pos, ops)
	case "EXPORT":
		a.export(pos, ops)
	default:
		a.instruction(pos, strings.ToLower(keyword), ops)
	}
}

// finish applies exports and the export-all option.
func (a *assembly) finish(root *source.Unit) {
	for _, ex := range a.exports {
		idx, ok := a.symbols[ex.name]
		if !ok {
			diag.Errorf(a.rep, diag.AsmUnknownExport, ex.pos, "cannot export undefined symbol %q", ex.name)
			continue
		}
		a.obj.Symbols[idx].Exported = true
	}
	if a.opts.ExportAllLabels {
		for i := range a.obj.Symbols {
			if a.obj.Symbols[i].IsLabel() {
				a.obj.Symbols[i].Exported = true
			}
		}
	}
	a.obj.Path = root.Path
}
