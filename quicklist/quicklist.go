// Package quicklist implements the doubly linked list of ziplist nodes
// described in spec.md §3.6/§4.9: each node owns a compact ziplist (or,
// rarely, a raw byte buffer), the fill policy bounds per-node size or
// entry count, and interior nodes compress with the lzf-class codec
// while a configurable number of nodes at each end stay decompressed
// for fast access.
//
// Node compression is grounded on mebo's `compress` package usage
// pattern (package lzf here): try the codec, and keep the raw form when
// lzf.NotSmallerEnough reports the output at least 8 bytes larger than
// the input; otherwise the compressed form is kept.
package quicklist

import (
	"fmt"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/corekverr"
	"github.com/corekv/corekv/internal/options"
	"github.com/corekv/corekv/lzf"
	"github.com/corekv/corekv/ziplist"
)

// fillSizeTable backs negative Fill values: -1 selects 4K, -2 8K, and
// so on, per spec.md §3.6.
var fillSizeTable = [5]int{4096, 8192, 16384, 32768, 65536}

const hardSafetyLimit = 8192

type nodeEncoding uint8

const (
	encodingRaw nodeEncoding = iota
	encodingLZF
)

// Node is one quicklist link. zl is live when encoding is encodingRaw;
// packed holds the lzf-compressed ziplist blob otherwise.
type Node struct {
	prev, next *Node

	zl     *ziplist.List
	packed []byte

	encoding          nodeEncoding
	attemptedCompress bool
	recompress        bool
	packedCount       int // entry count while compressed
}

// Count returns the node's entry count.
func (n *Node) Count() int {
	if n.zl == nil {
		return n.packedCount
	}

	return n.zl.Len()
}

// Opts configures a List.
type Opts struct {
	Fill     int
	Compress int
	Codec    lzf.Kind
}

func defaultOpts() Opts {
	return Opts{Fill: -2, Compress: 0, Codec: lzf.LZ4}
}

// Option configures a List via functional options.
type Option = options.Option[*Opts]

// WithFill sets the fill policy (spec.md §3.6): negative selects a
// byte-budget tier, non-negative caps entries per node.
func WithFill(fill int) Option {
	return options.New(func(o *Opts) error { o.Fill = fill; return nil })
}

// WithCompress sets how many nodes at each end stay uncompressed.
func WithCompress(depth int) Option {
	return options.New(func(o *Opts) error { o.Compress = depth; return nil })
}

// WithCodec selects the interior-node compression codec.
func WithCodec(kind lzf.Kind) Option {
	return options.New(func(o *Opts) error { o.Codec = kind; return nil })
}

// List is a quicklist.
type List struct {
	head, tail *Node
	nodeCount  int
	entryCount int

	fill     int
	compress int
	codec    lzf.Codec

	bookmarks map[string]*Node

	a *alloc.Allocator
}

// New constructs an empty List.
func New(a *alloc.Allocator, opts ...Option) (*List, error) {
	o := defaultOpts()
	if err := options.Apply(&o, opts...); err != nil {
		return nil, err
	}

	codec, err := lzf.New(o.Codec)
	if err != nil {
		return nil, err
	}

	return &List{
		fill:      o.Fill,
		compress:  o.Compress,
		codec:     codec,
		bookmarks: make(map[string]*Node),
		a:         a,
	}, nil
}

// Len returns the total entry count across all nodes.
func (l *List) Len() int { return l.entryCount }

// Free releases every node's backing buffer to the allocator — the
// typed destructor object.Header's decref invokes when a LIST value
// drops to refcount zero (spec.md §4.11.2).
func (l *List) Free() {
	for n := l.head; n != nil; n = n.next {
		if n.encoding == encodingRaw && n.zl != nil {
			n.zl.Free()
		}
	}

	l.head, l.tail = nil, nil
	l.nodeCount, l.entryCount = 0, 0
}

// NodeCount returns the number of nodes.
func (l *List) NodeCount() int { return l.nodeCount }

func (l *List) sizeLimit() int {
	if l.fill >= 0 {
		return hardSafetyLimit
	}

	idx := -l.fill - 1
	if idx < 0 {
		idx = 0
	}

	if idx >= len(fillSizeTable) {
		idx = len(fillSizeTable) - 1
	}

	return fillSizeTable[idx]
}

// fits implements spec.md §4.9.1's fill-policy check: would adding an
// entry of entrySize bytes keep n within the configured budget?
func (l *List) fits(n *Node, entrySize int) bool {
	if n == nil {
		return false
	}

	projected := n.zl.TotalBytes() + entrySize

	if l.fill < 0 {
		return projected <= l.sizeLimit()
	}

	return projected <= hardSafetyLimit && n.Count() < l.fill
}

func newNode(a *alloc.Allocator) *Node {
	return &Node{zl: ziplist.New(a)}
}

func (l *List) linkTail(n *Node) {
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}

	l.tail = n
	l.nodeCount++
}

func (l *List) linkHead(n *Node) {
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}

	l.head = n
	l.nodeCount++
}

func (l *List) linkBefore(fresh, n *Node) {
	fresh.prev = n.prev
	fresh.next = n

	if n.prev != nil {
		n.prev.next = fresh
	} else {
		l.head = fresh
	}

	n.prev = fresh
	l.nodeCount++
}

func (l *List) linkAfter(fresh, n *Node) {
	fresh.next = n.next
	fresh.prev = n

	if n.next != nil {
		n.next.prev = fresh
	} else {
		l.tail = fresh
	}

	n.next = fresh
	l.nodeCount++
}

func (l *List) unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}

	l.nodeCount--

	for name, bm := range l.bookmarks {
		if bm == n {
			if n.next != nil {
				l.bookmarks[name] = n.next
			} else {
				delete(l.bookmarks, name)
			}
		}
	}
}

// entryBytes returns the on-wire representation Push/Insert would
// accept back unchanged: the raw string, or the decimal form of an
// integer entry (ziplist's own auto-detection re-encodes it as an
// integer on re-push).
func entryBytes(zl *ziplist.List, idx int) []byte {
	iv, s, isInt, _ := zl.Get(idx)
	if isInt {
		return []byte(fmt.Sprintf("%d", iv))
	}

	return s
}

// Push appends data at the tail, per spec.md §4.9.1.
func (l *List) Push(data []byte) {
	l.ensureDecompressed(l.tail)

	entrySize := 0
	if l.tail != nil {
		entrySize = ziplist.EncodedEntrySize(data, l.tail.zl.LastRawLen())
	}

	if l.tail != nil && l.fits(l.tail, entrySize) {
		l.tail.zl.Push(data)
	} else {
		n := newNode(l.a)
		n.zl.Push(data)
		l.linkTail(n)
	}

	l.entryCount++
	l.rebalanceCompression()
}

// PushHead prepends data at the head.
func (l *List) PushHead(data []byte) {
	l.ensureDecompressed(l.head)

	entrySize := 0
	if l.head != nil {
		entrySize = ziplist.EncodedEntrySize(data, 0)
	}

	if l.head != nil && l.fits(l.head, entrySize) {
		l.head.zl.PushHead(data)
	} else {
		n := newNode(l.a)
		n.zl.PushHead(data)
		l.linkHead(n)
	}

	l.entryCount++
	l.rebalanceCompression()
}

// location identifies an entry by its owning node and index within it.
type location struct {
	node *Node
	idx  int
}

// locate walks nodes to find the node owning a global entry index, per
// spec.md §4.9.2's "(entry, offset_within_ziplist) pair obtained from a
// prior index/seek".
func (l *List) locate(index int) (location, error) {
	if index < 0 || index >= l.entryCount {
		return location{}, fmt.Errorf("%w: index %d out of range", corekverr.ErrOutOfRange, index)
	}

	n := l.head
	for n != nil {
		c := n.Count()
		if index < c {
			return location{node: n, idx: index}, nil
		}

		index -= c
		n = n.next
	}

	return location{}, fmt.Errorf("%w: index out of range", corekverr.ErrOutOfRange)
}

// Get returns the decoded value at a global entry index.
func (l *List) Get(index int) (intVal int64, str []byte, isInt bool, ok bool) {
	loc, err := l.locate(index)
	if err != nil {
		return 0, nil, false, false
	}

	l.ensureDecompressed(loc.node)

	return loc.node.zl.Get(loc.idx)
}

// rebuildWithInsert replaces n's ziplist content with the same entries
// plus data spliced in before position idx. Ziplist itself only
// exposes append/prepend/delete-range, so an arbitrary-position insert
// is expressed as "keep the prefix, push data, replay the suffix" —
// the cost profile matches the reference implementation's in-place
// memmove since both are O(node size).
func rebuildWithInsert(n *Node, idx int, data []byte) {
	suffix := make([][]byte, 0, n.Count()-idx)
	for i := idx; i < n.Count(); i++ {
		suffix = append(suffix, append([]byte(nil), entryBytes(n.zl, i)...))
	}

	n.zl.DeleteRange(idx, n.Count()-idx)
	n.zl.Push(data)

	for _, e := range suffix {
		n.zl.Push(e)
	}
}

// Insert implements spec.md §4.9.2's insert-at-arbitrary-position,
// placing data before the entry currently at index.
func (l *List) Insert(index int, data []byte) error {
	if index == l.entryCount {
		l.Push(data)
		return nil
	}

	loc, err := l.locate(index)
	if err != nil {
		return err
	}

	n := loc.node
	l.ensureDecompressed(n)

	prevRaw := uint32(0)
	if loc.idx > 0 {
		prevRaw = uint32(len(entryBytes(n.zl, loc.idx-1)))
	}

	entrySize := ziplist.EncodedEntrySize(data, prevRaw)

	switch {
	case l.fits(n, entrySize):
		rebuildWithInsert(n, loc.idx, data)
	case loc.idx == n.Count() && n.next != nil && l.nodeHasRoom(n.next, data):
		l.ensureDecompressed(n.next)
		n.next.zl.PushHead(data)
	case loc.idx == 0 && n.prev != nil && l.nodeHasRoom(n.prev, data):
		l.ensureDecompressed(n.prev)
		n.prev.zl.Push(data)
	case loc.idx == n.Count():
		fresh := newNode(l.a)
		fresh.zl.Push(data)
		l.linkAfter(fresh, n)
	case loc.idx == 0:
		fresh := newNode(l.a)
		fresh.zl.Push(data)
		l.linkBefore(fresh, n)
	default:
		l.splitAndInsert(n, loc.idx, data)
	}

	l.entryCount++
	l.rebalanceCompression()

	return nil
}

func (l *List) nodeHasRoom(n *Node, data []byte) bool {
	l.ensureDecompressed(n)
	return l.fits(n, ziplist.EncodedEntrySize(data, n.zl.LastRawLen()))
}

// splitAndInsert splits n at idx into two nodes, inserts data at the
// boundary, then attempts to merge the halves with their neighbours —
// spec.md §4.9.2's node-splitting case.
func (l *List) splitAndInsert(n *Node, idx int, data []byte) {
	right := newNode(l.a)
	for i := idx; i < n.Count(); i++ {
		right.zl.Push(append([]byte(nil), entryBytes(n.zl, i)...))
	}

	n.zl.DeleteRange(idx, n.Count()-idx)
	right.zl.PushHead(data)

	l.linkAfter(right, n)
	l.tryMerge(n)
}

// tryMerge folds n's next neighbour back into n when the combined size
// still fits the fill policy (_quicklistMergeNodes). The sum slightly
// overcounts (both nodes carry a header), which only makes the merge
// check more conservative.
func (l *List) tryMerge(n *Node) {
	if n.next == nil {
		return
	}

	l.ensureDecompressed(n)
	l.ensureDecompressed(n.next)

	if l.fill >= 0 {
		if n.Count()+n.next.Count() > l.fill {
			return
		}
	} else if n.zl.TotalBytes()+n.next.zl.TotalBytes() > l.sizeLimit() {
		return
	}

	next := n.next
	for i := 0; i < next.Count(); i++ {
		n.zl.Push(append([]byte(nil), entryBytes(next.zl, i)...))
	}

	l.unlink(next)
}

// DeleteRange removes count entries starting at a global index, per
// spec.md §4.9.4.
func (l *List) DeleteRange(index, count int) error {
	for count > 0 {
		loc, err := l.locate(index)
		if err != nil {
			return err
		}

		l.ensureDecompressed(loc.node)

		avail := loc.node.Count() - loc.idx
		take := count
		if take > avail {
			take = avail
		}

		loc.node.zl.DeleteRange(loc.idx, take)
		l.entryCount -= take
		count -= take

		if loc.node.Count() == 0 {
			next := loc.node.next
			l.unlink(loc.node)

			if next == nil {
				break
			}
		}
	}

	l.rebalanceCompression()

	return nil
}

// Bookmark records a named reference to the node currently holding
// index; the bookmark advances to the following node automatically
// when its node is deleted.
func (l *List) Bookmark(name string, index int) error {
	loc, err := l.locate(index)
	if err != nil {
		return err
	}

	l.bookmarks[name] = loc.node

	return nil
}

// BookmarkNode returns the node a bookmark currently points at, or nil
// if the bookmark doesn't exist.
func (l *List) BookmarkNode(name string) *Node {
	return l.bookmarks[name]
}

// ensureDecompressed decompresses n in place if needed, and marks it
// for lazy recompression on the next compression pass.
func (l *List) ensureDecompressed(n *Node) {
	if n == nil || n.encoding == encodingRaw {
		return
	}

	raw, err := l.codec.Decompress(n.packed)
	if err != nil {
		panic(fmt.Sprintf("quicklist: corrupt compressed node: %v", err))
	}

	n.zl = ziplist.FromBytes(l.a, raw)
	n.encoding = encodingRaw
	n.packed = nil
	n.recompress = true
}

// rebalanceCompression maintains spec.md §4.9.3's invariant: at most
// compress uncompressed nodes at each end; everything else compresses.
func (l *List) rebalanceCompression() {
	if l.compress <= 0 {
		return
	}

	depth := l.compress

	front := l.head
	for i := 0; i < depth && front != nil; i++ {
		front = front.next
	}

	back := l.tail
	for i := 0; i < depth && back != nil; i++ {
		back = back.prev
	}

	for n := front; n != nil && n != back; n = n.next {
		l.maybeCompress(n)
	}

	if back != nil && back != l.tail {
		l.maybeCompress(back)
	}
}

func (l *List) maybeCompress(n *Node) {
	if n.encoding == encodingLZF && !n.recompress {
		return
	}

	if n.attemptedCompress && !n.recompress {
		return
	}

	raw := n.zl.Bytes()

	compressed, err := l.codec.Compress(raw)
	n.attemptedCompress = true
	n.recompress = false

	if err != nil || lzf.NotSmallerEnough(len(raw), len(compressed)) {
		return
	}

	n.packed = compressed
	n.packedCount = n.zl.Len()
	n.zl = nil
	n.encoding = encodingLZF
}
