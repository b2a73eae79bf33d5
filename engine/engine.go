// Package engine bundles the process-wide singletons spec.md's
// components otherwise each take as independent parameters — the
// allocator, the PRNG, the SipHash seed, the shared-object registry,
// and the "resize allowed" flag a persistence fork needs to suppress
// (spec.md §4.6.1, §5) — into one construction point, the way mebo's
// top-level package (mebo.go) wraps blob's lower-level encoder/decoder
// constructors behind a handful of opinionated defaults.
package engine

import (
	"math/rand/v2"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/hashtable"
	"github.com/corekv/corekv/korand"
	"github.com/corekv/corekv/object"
	"github.com/corekv/corekv/shared"
	"github.com/corekv/corekv/siphash"
)

// Context is the engine-wide façade: one allocator, one PRNG, one
// SipHash seed, one shared-object registry, and the resize-enabled
// flag new hash tables are constructed with, per spec.md §5's "the
// allocator counter is the only process-wide mutable state" model
// (the PRNG and SipHash seed are the other two pieces of process-wide
// state spec.md §4.12 calls for).
type Context struct {
	Alloc      *alloc.Allocator
	Rand       *korand.Rand
	Shared     *shared.Registry
	Thresholds object.Thresholds

	resizeEnabled bool
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithThresholds overrides the default encoding-transition thresholds
// (spec.md §4.11.3).
func WithThresholds(t object.Thresholds) Option {
	return func(c *Context) { c.Thresholds = t }
}

// WithAllocLimit installs a byte ceiling on the engine's allocator,
// spec.md §4.1's "maxmemory"-style cap.
func WithAllocLimit(limit int64) Option {
	return func(c *Context) { c.Alloc.SetLimit(limit) }
}

// WithResizeDisabled starts the engine with hash table resizing
// disabled, for a process that forks for persistence immediately on
// startup.
func WithResizeDisabled() Option {
	return func(c *Context) { c.resizeEnabled = false }
}

// New builds an engine context: a fresh allocator, a PRNG seeded from
// a process-level entropy source, a SipHash seed installed
// process-wide, and an empty shared-object registry built against the
// resolved thresholds.
func New(opts ...Option) *Context {
	c := &Context{
		Alloc:         alloc.New(),
		Rand:          korand.New(),
		Thresholds:    object.DefaultThresholds(),
		resizeEnabled: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Rand.Seed(rand.Uint64())
	siphash.SetProcessSeed(siphash.Seed{K0: rand.Uint64(), K1: rand.Uint64()})

	c.Shared = shared.New(c.Alloc, c.Thresholds)

	return c
}

// ResizeEnabled reports whether newly constructed hash tables should
// allow resizing, per the process-wide flag spec.md §4.6.1 describes.
func (c *Context) ResizeEnabled() bool { return c.resizeEnabled }

// SetResizeEnabled toggles the flag, e.g. around a persistence fork.
func (c *Context) SetResizeEnabled(enabled bool) { c.resizeEnabled = enabled }

// NewHashtable constructs a hash table honoring the context's current
// resize policy.
func (c *Context) NewHashtable(opts ...hashtable.Option) *hashtable.Table {
	if !c.resizeEnabled {
		opts = append(opts, hashtable.WithResizeDisabled())
	}

	return hashtable.New(opts...)
}
