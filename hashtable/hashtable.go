// Package hashtable implements the incrementally rehashed dictionary
// described in spec.md §3.7/§4.6: two power-of-two sub-tables, a
// rehash cursor that migrates one bucket per mutation, a pause counter
// for safe iteration, and a cursor-based scan that tolerates resizes
// mid-traversal.
//
// The vtable spec.md §3.7 describes (hash function, key/value
// duplicators and destructors, an expand-allowed predicate) is
// expressed the Go way: a functional-options-configured struct
// (package internal/options, as mebo configures its encoders) rather
// than a table of function pointers.
package hashtable

import (
	"math/bits"

	"github.com/corekv/corekv/internal/hash"
	"github.com/corekv/corekv/internal/options"
	"github.com/corekv/corekv/korand"
)

const initialSize = 4

// entry is one key/value chain link. Value is an any to stand in for
// spec.md's pointer/int64/uint64/double union — Go has no native union
// type, and boxing through an interface is the idiomatic substitute
// mebo itself uses for its heterogeneous tag values.
type entry struct {
	key   string
	value any
	next  *entry
}

type subtable struct {
	buckets []*entry
	mask    uint64
	used    int
}

func newSubtable(size uint64) *subtable {
	return &subtable{buckets: make([]*entry, size), mask: size - 1}
}

// Table is the incrementally rehashed dictionary. Its zero value is
// not usable; construct with New.
type Table struct {
	t             [2]*subtable
	rehashIndex   int64 // -1 when not rehashing
	pauseRehash   int
	resizeEnabled bool
	hashFunc      func(string) uint64
	rng           *korand.Rand
}

// Opts configures a Table via functional options, matching the
// internal/options pattern used by quicklist.Opts.
type Opts struct {
	HashFunc      func(string) uint64
	ResizeEnabled bool
}

func defaultOpts() Opts {
	return Opts{HashFunc: hash.ID, ResizeEnabled: true}
}

// Option configures a Table at construction time.
type Option = options.Option[*Opts]

// WithHashFunc overrides the default xxhash-based hash function.
func WithHashFunc(fn func(string) uint64) Option {
	return options.New(func(o *Opts) error { o.HashFunc = fn; return nil })
}

// WithResizeDisabled models spec.md §4.6.1's "process-wide flag can
// disable resizing while a persistence fork is in progress".
func WithResizeDisabled() Option {
	return options.New(func(o *Opts) error { o.ResizeEnabled = false; return nil })
}

// New constructs an empty Table.
func New(opts ...Option) *Table {
	o := defaultOpts()
	_ = options.Apply(&o, opts...) // WithHashFunc/WithResizeDisabled never fail

	return &Table{
		t:             [2]*subtable{newSubtable(initialSize), nil},
		rehashIndex:   -1,
		resizeEnabled: o.ResizeEnabled,
		hashFunc:      o.HashFunc,
		rng:           korand.New(),
	}
}

func (t *Table) isRehashing() bool { return t.rehashIndex != -1 }

func nextPow2(n uint64) uint64 {
	if n <= initialSize {
		return initialSize
	}

	return 1 << bits.Len64(n-1)
}

// rehashStep migrates one non-empty bucket from table 0 to table 1.
func (t *Table) rehashStep() {
	if !t.isRehashing() || t.pauseRehash > 0 {
		return
	}

	src := t.t[0]

	for t.rehashIndex < int64(len(src.buckets)) && src.buckets[t.rehashIndex] == nil {
		t.rehashIndex++
	}

	if t.rehashIndex >= int64(len(src.buckets)) {
		t.t[0] = t.t[1]
		t.t[1] = nil
		t.rehashIndex = -1

		return
	}

	e := src.buckets[t.rehashIndex]
	src.buckets[t.rehashIndex] = nil

	for e != nil {
		next := e.next
		idx := t.hashFunc(e.key) & t.t[1].mask
		e.next = t.t[1].buckets[idx]
		t.t[1].buckets[idx] = e
		src.used--
		t.t[1].used++
		e = next
	}

	t.rehashIndex++
}

// RehashMilliseconds performs batches of 100 migration steps between
// wall-clock checks, per spec.md §4.6.2's idle-time driver. budgetExhausted is
// a caller-supplied "has my time budget run out" predicate so this
// package does not need to read the clock itself.
func (t *Table) RehashMilliseconds(budgetExhausted func() bool) {
	for t.isRehashing() {
		for i := 0; i < 100 && t.isRehashing(); i++ {
			t.rehashStep()
		}

		if budgetExhausted() {
			return
		}
	}
}

func (t *Table) startRehash(newSize uint64) {
	t.t[1] = newSubtable(newSize)
	t.rehashIndex = 0
}

func (t *Table) maybeResize() {
	if !t.resizeEnabled || t.isRehashing() {
		return
	}

	t0 := t.t[0]
	size := uint64(len(t0.buckets))

	if uint64(t0.used) >= size {
		t.startRehash(nextPow2(uint64(t0.used) * 2))
		return
	}

	if size > initialSize && uint64(t0.used)*10 < size {
		t.startRehash(nextPow2(uint64(t0.used)))
	}
}

// Set inserts or overwrites key's value. Returns true if key was newly
// inserted.
func (t *Table) Set(key string, value any) bool {
	t.rehashStep()

	h := t.hashFunc(key)

	if e := t.find(key, h); e != nil {
		e.value = value
		return false
	}

	target := t.t[0]
	if t.isRehashing() {
		target = t.t[1]
	}

	idx := h & target.mask
	target.buckets[idx] = &entry{key: key, value: value, next: target.buckets[idx]}
	target.used++

	if !t.isRehashing() {
		t.maybeResize()
	}

	return true
}

func (t *Table) find(key string, h uint64) *entry {
	for _, st := range t.t {
		if st == nil {
			continue
		}

		for e := st.buckets[h&st.mask]; e != nil; e = e.next {
			if e.key == key {
				return e
			}
		}

		if !t.isRehashing() {
			return nil
		}
	}

	return nil
}

// Get looks up key, checking both sub-tables while rehashing.
func (t *Table) Get(key string) (any, bool) {
	t.rehashStep()

	e := t.find(key, t.hashFunc(key))
	if e == nil {
		return nil, false
	}

	return e.value, true
}

// Delete removes key, returning true if it was present.
func (t *Table) Delete(key string) bool {
	t.rehashStep()

	h := t.hashFunc(key)

	for _, st := range t.t {
		if st == nil {
			continue
		}

		idx := h & st.mask
		prev := (*entry)(nil)

		for e := st.buckets[idx]; e != nil; e = e.next {
			if e.key == key {
				if prev == nil {
					st.buckets[idx] = e.next
				} else {
					prev.next = e.next
				}

				st.used--

				if !t.isRehashing() {
					t.maybeResize()
				}

				return true
			}

			prev = e
		}
	}

	return false
}

// Len returns the total live key count across both sub-tables.
func (t *Table) Len() int {
	n := t.t[0].used
	if t.t[1] != nil {
		n += t.t[1].used
	}

	return n
}

// PauseRehash suppresses rehashing for the duration of a safe
// iterator's traversal (spec.md §4.6.3).
func (t *Table) PauseRehash() { t.pauseRehash++ }

// ResumeRehash releases a pause acquired by PauseRehash.
func (t *Table) ResumeRehash() {
	if t.pauseRehash > 0 {
		t.pauseRehash--
	}
}

// Fingerprint captures enough state to detect illegal mutation during
// an unsafe iterator's traversal (spec.md §4.6.3).
type Fingerprint struct {
	p0, p1         *subtable
	size0, size1   int
	used0, used1   int
}

// Fingerprint snapshots the current table identities and sizes.
func (t *Table) Fingerprint() Fingerprint {
	fp := Fingerprint{p0: t.t[0], size0: len(t.t[0].buckets), used0: t.t[0].used}
	if t.t[1] != nil {
		fp.p1 = t.t[1]
		fp.size1 = len(t.t[1].buckets)
		fp.used1 = t.t[1].used
	}

	return fp
}

// VerifyFingerprint reports whether the table is unchanged since fp
// was captured.
func (t *Table) VerifyFingerprint(fp Fingerprint) bool {
	return fp == t.Fingerprint()
}

// RandomKey picks a non-empty bucket uniformly, then a uniform node
// from its chain — biased toward keys in longer chains, per spec.md
// §4.6.4.
func (t *Table) RandomKey() (string, any, bool) {
	st := t.pickNonEmptySubtable()
	if st == nil {
		return "", nil, false
	}

	var bucket *entry
	for bucket == nil {
		bucket = st.buckets[t.rng.Intn(len(st.buckets))]
	}

	n := 0
	for e := bucket; e != nil; e = e.next {
		n++
	}

	target := t.rng.Intn(n)
	e := bucket
	for i := 0; i < target; i++ {
		e = e.next
	}

	return e.key, e.value, true
}

func (t *Table) pickNonEmptySubtable() *subtable {
	if t.t[0].used == 0 && (t.t[1] == nil || t.t[1].used == 0) {
		return nil
	}

	if t.t[1] == nil || t.rng.Intn(t.Len()) < t.t[0].used {
		if t.t[0].used > 0 {
			return t.t[0]
		}

		return t.t[1]
	}

	return t.t[1]
}

// FairRandomKey flattens a small sample of consecutive buckets into a
// buffer and draws uniformly from it, reducing RandomKey's chain-length
// bias (spec.md §4.6.4).
func (t *Table) FairRandomKey(sampleBuckets int) (string, any, bool) {
	st := t.pickNonEmptySubtable()
	if st == nil {
		return "", nil, false
	}

	start := t.rng.Intn(len(st.buckets))

	var sample []*entry
	for i := 0; i < sampleBuckets && i < len(st.buckets); i++ {
		idx := (start + i) & int(st.mask)
		for e := st.buckets[idx]; e != nil; e = e.next {
			sample = append(sample, e)
		}
	}

	if len(sample) == 0 {
		return "", nil, false
	}

	e := sample[t.rng.Intn(len(sample))]

	return e.key, e.value, true
}

// SomeKeys reservoir-samples up to n keys, used for eviction
// candidate selection (spec.md §4.6.4).
func (t *Table) SomeKeys(n int) []string {
	out := make([]string, 0, n)
	seen := 0

	visit := func(e *entry) {
		seen++

		if len(out) < n {
			out = append(out, e.key)
			return
		}

		j := t.rng.Intn(seen)
		if j < n {
			out[j] = e.key
		}
	}

	for _, st := range t.t {
		if st == nil {
			continue
		}

		for _, b := range st.buckets {
			for e := b; e != nil; e = e.next {
				visit(e)
			}
		}
	}

	return out
}

// Scan implements spec.md §4.6.5's resize-tolerant cursor scan: a
// reverse-binary-increment cursor over the larger table's bucket
// index space, visiting every bucket whose bits, read from the
// highest set bit down, match the cursor's low bits under the
// currently-largest mask it has walked. fn is called for every live
// entry visited; the returned cursor is 0 when the scan is complete.
func (t *Table) Scan(cursor uint64, fn func(key string, value any)) uint64 {
	if !t.isRehashing() {
		return t.scanTable(t.t[0], cursor, fn)
	}

	// While rehashing, scan the smaller table's bucket and every bucket
	// in the larger table that could hold the same keys post-rehash.
	small, big := t.t[0], t.t[1]
	if len(small.buckets) > len(big.buckets) {
		small, big = big, small
	}

	m0 := cursor & small.mask
	for e := small.buckets[m0]; e != nil; e = e.next {
		fn(e.key, e.value)
	}

	// Every bucket in the larger table whose low bits (under the smaller
	// table's mask) equal m0 could hold a key that belongs in small's m0
	// bucket post-rehash; visit them all by stepping through the high
	// bits at a fixed stride of small.mask+1.
	stride := small.mask + 1
	for m1 := m0; m1 <= big.mask; m1 += stride {
		for e := big.buckets[m1]; e != nil; e = e.next {
			fn(e.key, e.value)
		}
	}

	return nextCursor(cursor, small.mask)
}

func (t *Table) scanTable(st *subtable, cursor uint64, fn func(key string, value any)) uint64 {
	for e := st.buckets[cursor&st.mask]; e != nil; e = e.next {
		fn(e.key, e.value)
	}

	return nextCursor(cursor, st.mask)
}

// nextCursor implements the classic reverse-binary increment: adding
// one to a cursor's bits from the high end down, so that cursors
// produced at a smaller mask remain valid prefixes after a table grows
// (spec.md §4.6.5's "visits every bucket that was either a bucket at
// the current size or a future bucket mapping to the same high bits").
func nextCursor(cursor, mask uint64) uint64 {
	cursor |= ^mask
	cursor = bits.Reverse64(cursor)
	cursor++

	return bits.Reverse64(cursor)
}
