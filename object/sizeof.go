package object

import (
	"github.com/corekv/corekv/hashtable"
	"github.com/corekv/corekv/intset"
	"github.com/corekv/corekv/quicklist"
	"github.com/corekv/corekv/sds"
	"github.com/corekv/corekv/stream"
	"github.com/corekv/corekv/ziplist"
)

// DefaultSizeSamples is spec.md §4.11.4's default bounded-sampling width.
const DefaultSizeSamples = 5

// SizeOf estimates h's heap footprint, walking the representation with
// bounded sampling for variable-length containers and extrapolating,
// per spec.md §4.11.4. Shared-integer singletons (and any other
// refcount-SHARED header) count as zero, since their cost is amortized
// across every holder.
func SizeOf(h *Header, samples int) int {
	if h.refcount == RefcountShared {
		return 0
	}

	if samples <= 0 {
		samples = DefaultSizeSamples
	}

	const headerOverhead = 16 // type+encoding+clock+refcount, packed

	return headerOverhead + bodySize(h, samples)
}

func bodySize(h *Header, samples int) int {
	switch v := h.ptr.(type) {
	case int64:
		return 8
	case *sds.String:
		return len(v.Bytes()) + 8
	case *ziplist.List:
		return v.TotalBytes()
	case *intset.Set:
		return len(v.Bytes())
	case *quicklist.List:
		return sampleQuicklist(v, samples)
	case *hashtable.Table:
		return sampleHashtable(v, samples)
	case *zsetSkiplist:
		return sampleZsetSkiplist(v, samples)
	case *stream.Stream:
		return sampleStream(v, samples)
	case *legacyLinkedList:
		total := 0
		for _, e := range v.values {
			total += len(e)
		}

		return total
	default:
		return 0
	}
}

func sampleQuicklist(ql *quicklist.List, samples int) int {
	n := ql.Len()
	if n == 0 {
		return 0
	}

	take := samples
	if take > n {
		take = n
	}

	total := 0
	for i := 0; i < take; i++ {
		idx := i * n / take

		_, str, _, ok := ql.Get(idx)
		if ok {
			total += len(str) + 16 // per-entry encoding overhead estimate
		}
	}

	avg := total / take

	return avg*n + 64*ql.NodeCount() // 64 bytes/node overhead estimate
}

func sampleHashtable(t *hashtable.Table, samples int) int {
	keys := t.SomeKeys(samples)
	if len(keys) == 0 {
		return 0
	}

	total := 0

	for _, k := range keys {
		v, ok := t.Get(k)
		if !ok {
			continue
		}

		total += len(k) + valueByteLen(v) + 32 // entry/chain-link overhead estimate
	}

	avg := total / len(keys)

	return avg * t.Len()
}

func valueByteLen(v any) int {
	switch b := v.(type) {
	case []byte:
		return len(b)
	case float64:
		return 8
	case struct{}:
		return 0
	default:
		return 8
	}
}

func sampleZsetSkiplist(z *zsetSkiplist, samples int) int {
	n := z.scores.Len()
	if n == 0 {
		return 0
	}

	take := samples
	if take > n {
		take = n
	}

	total := 0

	for i := 1; i <= take; i++ {
		rank := i * n / take
		if node := z.scores.ByRank(rank); node != nil {
			total += len(node.Element()) + 48 // score + skiplist level pointers estimate
		}
	}

	avg := total / take

	return avg * n
}

func sampleStream(s *stream.Stream, samples int) int {
	n := s.Len()
	if n == 0 {
		return 0
	}

	take := samples
	total := 0

	s.Range(stream.ID{}, stream.ID{Ms: ^uint64(0), Seq: ^uint64(0)}, func(e stream.Entry) bool {
		for _, f := range e.Fields {
			total += len(f.Name) + len(f.Value)
		}

		total += 16 // id overhead estimate
		take--

		return take > 0
	})

	sampled := samples - take
	if sampled <= 0 {
		return 0
	}

	avg := total / sampled

	return avg * n
}
