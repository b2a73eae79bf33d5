// Package alloc wraps heap allocation with the used-bytes accounting
// and OOM policy spec.md §4.1 describes: every allocation the engine
// makes for a packed encoding, dynamic string, or container node goes
// through an *Allocator so the info-memory command handler (spec.md §6)
// has an accurate, process-wide live-byte counter.
//
// Go's runtime does not expose a real "usable size" query or a way to
// fail an allocation on demand, so this package simulates both: sizes
// are rounded up to a word boundary the way most malloc implementations
// round small requests, and an optional byte limit lets a caller model
// an OOM condition for testing the try-variants and the OOM handler
// without actually exhausting process memory.
package alloc

import (
	"sync/atomic"
)

const wordSize = 8

// roundUp rounds n up to the next multiple of wordSize, standing in for
// an allocator's internal size-class rounding.
func roundUp(n int) int {
	if n <= 0 {
		return 0
	}

	return (n + wordSize - 1) &^ (wordSize - 1)
}

// Allocator tracks live allocation bytes for one engine context
// (spec.md §9's "engine context" singleton). The zero value is usable
// with no limit and a panicking default OOM handler.
type Allocator struct {
	used    atomic.Int64
	peak    atomic.Int64
	limit   atomic.Int64 // 0 means unlimited
	oom     atomic.Pointer[func(requested int)]
	allocFn func(int) []byte
}

// New returns an Allocator with no configured limit.
func New() *Allocator {
	a := &Allocator{}
	a.allocFn = func(n int) []byte { return make([]byte, n) }

	return a
}

// SetLimit caps total live bytes the allocator will hand out before
// treating further non-try requests as OOM. A limit of 0 disables the cap.
func (a *Allocator) SetLimit(n int64) {
	a.limit.Store(n)
}

// SetOOMHandler installs the callback invoked by non-try allocation
// calls when the configured limit is exceeded. The default handler
// panics, matching spec.md §7's "surfaces to the installed OOM handler
// and terminates" for non-try calls.
func (a *Allocator) SetOOMHandler(fn func(requested int)) {
	a.oom.Store(&fn)
}

func (a *Allocator) callOOM(requested int) {
	if h := a.oom.Load(); h != nil {
		(*h)(requested)
		return
	}

	panic("alloc: out of memory")
}

func (a *Allocator) wouldExceedLimit(extra int64) bool {
	limit := a.limit.Load()
	if limit <= 0 {
		return false
	}

	return a.used.Load()+extra > limit
}

func (a *Allocator) account(delta int64) {
	used := a.used.Add(delta)
	for {
		peak := a.peak.Load()
		if used <= peak || a.peak.CompareAndSwap(peak, used) {
			return
		}
	}
}

// Alloc allocates n bytes, invoking the OOM handler (and, by default,
// panicking) if the configured limit would be exceeded.
func (a *Allocator) Alloc(n int) []byte {
	b, ok := a.tryAlloc(n)
	if !ok {
		a.callOOM(n)
		return nil
	}

	return b
}

// TryAlloc allocates n bytes, returning nil instead of invoking the OOM
// handler when the configured limit would be exceeded.
func (a *Allocator) TryAlloc(n int) []byte {
	b, _ := a.tryAlloc(n)
	return b
}

func (a *Allocator) tryAlloc(n int) ([]byte, bool) {
	rounded := roundUp(n)
	if a.wouldExceedLimit(int64(rounded)) {
		return nil, false
	}

	a.account(int64(rounded))

	return a.allocFn(n), true
}

// Realloc resizes old to n bytes, preserving its contents up to
// min(len(old), n), and adjusts the used-bytes counter by the delta
// between the old and new rounded sizes.
func (a *Allocator) Realloc(old []byte, n int) []byte {
	b, ok := a.tryRealloc(old, n)
	if !ok {
		a.callOOM(n)
		return nil
	}

	return b
}

// TryRealloc is the non-panicking form of Realloc.
func (a *Allocator) TryRealloc(old []byte, n int) []byte {
	b, _ := a.tryRealloc(old, n)
	return b
}

func (a *Allocator) tryRealloc(old []byte, n int) ([]byte, bool) {
	oldRounded := int64(roundUp(cap(old)))
	newRounded := int64(roundUp(n))
	delta := newRounded - oldRounded

	if delta > 0 && a.wouldExceedLimit(delta) {
		return nil, false
	}

	a.account(delta)

	b := make([]byte, n)
	copy(b, old)

	return b, true
}

// Free releases b, decrementing the used-bytes counter by its rounded
// capacity. Go's GC reclaims the memory; Free's only job is accounting.
func (a *Allocator) Free(b []byte) {
	if b == nil {
		return
	}

	a.account(-int64(roundUp(cap(b))))
}

// UsableSize reports the allocator's rounded-up size for a buffer of
// cap(b) bytes — the slack a caller can exploit without re-asking,
// per spec.md §4.1's `*_usable` variants.
func (a *Allocator) UsableSize(b []byte) int {
	return roundUp(cap(b))
}

// UsedBytes returns the current live-byte count.
func (a *Allocator) UsedBytes() int64 {
	return a.used.Load()
}

// PeakBytes returns the highest live-byte count observed.
func (a *Allocator) PeakBytes() int64 {
	return a.peak.Load()
}
