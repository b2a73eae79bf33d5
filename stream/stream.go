// Package stream implements the stream substrate described in spec.md
// §3.10/§4.10: a radix tree keyed by big-endian 128-bit (ms, seq) IDs,
// whose leaves are listpacks holding one master entry followed by
// delta entries that share the master's field names.
//
// This is a direct composition of radix and listpack — no mebo
// equivalent exists, so the composition follows spec.md's algorithm
// directly, using `endian.GetBigEndianEngine()` for the ID encoding the
// package doc comment of endian itself calls out as the stream use case.
package stream

import (
	"fmt"
	"strconv"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/corekverr"
	"github.com/corekv/corekv/endian"
	"github.com/corekv/corekv/listpack"
	"github.com/corekv/corekv/radix"
)

var engine = endian.GetBigEndianEngine()

// ID is a stream entry identifier: a millisecond timestamp plus a
// per-millisecond sequence number, compared lexicographically once
// encoded big-endian so radix tree order equals numeric order.
type ID struct {
	Ms  uint64
	Seq uint64
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}

	return id.Seq < other.Seq
}

// Equal reports value equality.
func (id ID) Equal(other ID) bool { return id.Ms == other.Ms && id.Seq == other.Seq }

func (id ID) key() []byte {
	buf := make([]byte, 16)
	engine.PutUint64(buf[0:8], id.Ms)
	engine.PutUint64(buf[8:16], id.Seq)

	return buf
}

func idFromKey(key []byte) ID {
	return ID{Ms: engine.Uint64(key[0:8]), Seq: engine.Uint64(key[8:16])}
}

// Field is a single field/value pair within an entry.
type Field struct {
	Name  []byte
	Value []byte
}

// Entry is one logical stream entry as returned by Range.
type Entry struct {
	ID     ID
	Fields []Field
}

// node is the value stored at each radix tree leaf: a master entry's
// field names plus the listpack holding the master and its deltas.
type node struct {
	fieldNames [][]byte
	lp         *listpack.List
	firstID    ID
}

func fieldNamesMatch(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if string(a[i]) != string(b[i]) {
			return false
		}
	}

	return true
}

// Stream is a single stream's substrate: the radix tree of (ms, seq)
// keys to master+delta listpacks.
type Stream struct {
	tree     *radix.Tree
	a        *alloc.Allocator
	length   int
	lastID   ID
	hasLast  bool
	lastNode *node // the node a matching-field-set append would extend

	// maxEntriesPerNode caps how many listpack elements (tags, names and
	// values of the master and its deltas) one node holds before a fresh
	// radix tree key is started, independent of
	// field-set compaction — keeps any single leaf from growing
	// unbounded under a long run of identical field names.
	maxEntriesPerNode int
}

// New returns an empty stream.
func New(a *alloc.Allocator) *Stream {
	return &Stream{tree: radix.New(), a: a, maxEntriesPerNode: 100}
}

// Len returns the number of entries appended and not yet trimmed.
func (s *Stream) Len() int { return s.length }

// LastID returns the most recently appended ID.
func (s *Stream) LastID() (ID, bool) { return s.lastID, s.hasLast }

func fieldNames(fields []Field) [][]byte {
	names := make([][]byte, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	return names
}

// Append adds an entry, per spec.md §4.10. If id is nil, the next ID is
// auto-generated by incrementing the sequence within the current
// millisecond. A supplied ID must exceed the stream's current maximum.
func (s *Stream) Append(id *ID, fields []Field) (ID, error) {
	var newID ID

	switch {
	case id == nil && s.hasLast:
		newID = ID{Ms: s.lastID.Ms, Seq: s.lastID.Seq + 1}
	case id == nil:
		newID = ID{Ms: 0, Seq: 0}
	default:
		newID = *id
		if s.hasLast && !s.lastID.Less(newID) {
			return ID{}, fmt.Errorf("%w: stream ID %d-%d does not exceed current maximum %d-%d",
				corekverr.ErrOutOfRange, newID.Ms, newID.Seq, s.lastID.Ms, s.lastID.Seq)
		}
	}

	names := fieldNames(fields)

	if s.lastNode != nil && fieldNamesMatch(s.lastNode.fieldNames, names) && s.lastNode.lp.Length() < s.maxEntriesPerNode {
		appendCompact(s.lastNode.lp, s.lastNode.firstID, newID, fields)
	} else {
		n := &node{fieldNames: names, lp: listpack.New(s.a, 0), firstID: newID}
		appendMaster(n.lp, newID, fields)
		s.tree.Insert(newID.key(), n)
		s.lastNode = n
	}

	s.lastID = newID
	s.hasLast = true
	s.length++

	return newID, nil
}

// appendMaster writes id's entry as the master: full field names and
// values, plus the delta-id-offset sentinel of 0 (the master is its own
// base).
func appendMaster(lp *listpack.List, id ID, fields []Field) {
	lp.Append([]byte(fmt.Sprintf("M:%d:%d:%d", id.Ms, id.Seq, len(fields))))

	for _, f := range fields {
		lp.Append(f.Name)
		lp.Append(f.Value)
	}
}

// appendCompact writes a delta entry: its millisecond offset from the
// master's ID (recoverable since every entry shares the node's firstID),
// its sequence number, and the values only — field names are the
// master's, by position.
func appendCompact(lp *listpack.List, master, id ID, fields []Field) {
	lp.Append([]byte(fmt.Sprintf("D:%d:%d:%d", id.Ms-master.Ms, id.Seq, len(fields))))

	for _, f := range fields {
		lp.Append(f.Value)
	}
}

// decodeNode replays a node's listpack back into a slice of entries.
func decodeNode(n *node) []Entry {
	var out []Entry

	i := 0
	nFields := len(n.fieldNames)

	get := func(idx int) []byte {
		iv, s, isInt, _ := n.lp.Get(idx)
		if isInt {
			return []byte(strconv.FormatInt(iv, 10))
		}

		return s
	}

	for i < n.lp.Length() {
		_, tag, _, ok := n.lp.Get(i)
		if !ok {
			break
		}

		i++

		var id ID

		var entryFields []Field

		if len(tag) > 0 && tag[0] == 'M' {
			var ms, seq uint64

			var count int

			fmt.Sscanf(string(tag), "M:%d:%d:%d", &ms, &seq, &count)

			id = ID{Ms: ms, Seq: seq}
			entryFields = make([]Field, count)

			for f := 0; f < count; f++ {
				entryFields[f] = Field{Name: get(i), Value: get(i + 1)}
				i += 2
			}
		} else {
			var msOffset, seq uint64

			var count int

			fmt.Sscanf(string(tag), "D:%d:%d:%d", &msOffset, &seq, &count)

			entryFields = make([]Field, count)

			for f := 0; f < count && f < nFields; f++ {
				entryFields[f] = Field{Name: n.fieldNames[f], Value: get(i)}
				i++
			}

			id = ID{Ms: n.firstID.Ms + msOffset, Seq: seq}
		}

		out = append(out, Entry{ID: id, Fields: entryFields})
	}

	return out
}

// Range calls fn for every entry with start <= ID <= end, in ID order,
// stopping early if fn returns false.
func (s *Stream) Range(start, end ID, fn func(Entry) bool) {
	// A node is keyed by its first ID, so the node holding start may be
	// keyed below start: begin at the last node keyed at or before it.
	it := s.tree.Iterator()
	if !it.Seek(radix.LE, start.key()) && !it.Seek(radix.First, nil) {
		return
	}

	for !it.EOF() {
		n, ok := it.Node().Value().(*node)
		if !ok {
			break
		}

		for _, e := range decodeNode(n) {
			if e.ID.Less(start) {
				continue
			}

			if end.Less(e.ID) {
				return
			}

			if !fn(e) {
				return
			}
		}

		if !it.Next() {
			return
		}

		if end.Less(idFromKey(it.Key())) {
			return
		}
	}
}

// Trim removes whole radix tree nodes (leaves, each a listpack of
// entries) whose every entry's ID is less than minID, per spec.md
// §4.10's node-at-a-time compaction granularity.
func (s *Stream) Trim(minID ID) int {
	it := s.tree.Iterator()
	if !it.Seek(radix.First, nil) {
		return 0
	}

	var toDelete [][]byte

	removed := 0

	for {
		n, ok := it.Node().Value().(*node)
		if ok {
			entries := decodeNode(n)
			lastInNode := entries[len(entries)-1].ID

			if lastInNode.Less(minID) {
				toDelete = append(toDelete, append([]byte(nil), it.Key()...))
				removed += len(entries)

				if n == s.lastNode {
					s.lastNode = nil
				}
			}
		}

		if !it.Next() {
			break
		}
	}

	for _, k := range toDelete {
		s.tree.Delete(k)
	}

	s.length -= removed

	return removed
}

// ConsumerGroup is the structural bookkeeping record for a named
// consumer group: a pending-entries radix tree (ID -> PendingEntry) and
// a consumers radix tree (name -> *Consumer). No command dispatch is
// implemented (spec.md §1, §9 Non-goals exclude the command surface).
type ConsumerGroup struct {
	Name          string
	LastDelivered ID
	Pending       *radix.Tree
	Consumers     *radix.Tree
}

// PendingEntry records one delivered-but-unacknowledged entry.
type PendingEntry struct {
	ID            ID
	Consumer      string
	DeliveryTime  int64
	DeliveryCount int64
}

// Consumer is one named reader within a ConsumerGroup.
type Consumer struct {
	Name     string
	SeenTime int64
}

// NewConsumerGroup constructs an empty group positioned at lastDelivered.
func NewConsumerGroup(name string, lastDelivered ID) *ConsumerGroup {
	return &ConsumerGroup{
		Name:          name,
		LastDelivered: lastDelivered,
		Pending:       radix.New(),
		Consumers:     radix.New(),
	}
}
