// Package shared implements the process-wide shared-object registry
// described in spec.md §3.11: a lazily built collection of
// refcount-frozen value headers for common replies (+OK, $-1, small
// integers 0..9999, bulk-header strings, error prefixes), so the
// command layer can hand out a pointer to an existing header instead
// of constructing and freeing one per reply.
//
// There is no mebo equivalent for a reply-object cache — mebo is a
// codec, not a server — so this is grounded on the general lazily
// built, mutex-guarded singleton-map shape mebo's internal/pool
// applies to buffer reuse (sync.Pool-backed pools in
// internal/pool/byte_buffer_pool.go, internal/pool/slice_pool.go),
// adapted here to cache immutable headers rather than reusable
// buffers.
package shared

import (
	"fmt"
	"sync"

	"github.com/corekv/corekv/alloc"
	"github.com/corekv/corekv/object"
)

// Registry is a process-wide cache of frozen headers. The zero value
// is not usable; construct with New.
type Registry struct {
	a          *alloc.Allocator
	thresholds object.Thresholds

	ok       *object.Header
	nullBulk *object.Header

	ints [10000]*object.Header

	mu          sync.Mutex
	bulkHeaders map[int]*object.Header
	errPrefixes map[string]*object.Header
}

// New builds a registry. Small integers 0..thresholds.SharedIntMax-1
// are constructed eagerly since every one of them is touched
// constantly in practice; bulk-length headers and error prefixes are
// built lazily on first request and cached.
func New(a *alloc.Allocator, thresholds object.Thresholds) *Registry {
	r := &Registry{
		a:           a,
		thresholds:  thresholds,
		bulkHeaders: make(map[int]*object.Header),
		errPrefixes: make(map[string]*object.Header),
	}

	r.ok = freeze(object.NewString(a, []byte("OK"), thresholds))
	r.nullBulk = freeze(object.NewString(a, nil, thresholds))

	n := int(thresholds.SharedIntMax)
	if n > len(r.ints) {
		n = len(r.ints)
	}

	for i := 0; i < n; i++ {
		r.ints[i] = freeze(object.NewString(a, []byte(fmt.Sprintf("%d", i)), thresholds))
	}

	return r
}

func freeze(h *object.Header) *object.Header {
	h.Freeze()
	return h
}

// OK returns the shared "+OK" reply header.
func (r *Registry) OK() *object.Header { return r.ok }

// NullBulk returns the shared "$-1" reply header.
func (r *Registry) NullBulk() *object.Header { return r.nullBulk }

// SmallInt returns the shared header for n, and whether n fell within
// the cached range.
func (r *Registry) SmallInt(n int64) (*object.Header, bool) {
	if n < 0 || n >= int64(len(r.ints)) || r.ints[n] == nil {
		return nil, false
	}

	return r.ints[n], true
}

// BulkHeader returns the shared header for the decimal rendering of a
// bulk-string length prefix (e.g. the "3" in "$3\r\nfoo\r\n"), building
// and caching it on first use.
func (r *Registry) BulkHeader(length int) *object.Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.bulkHeaders[length]; ok {
		return h
	}

	h := freeze(object.NewString(r.a, []byte(fmt.Sprintf("%d", length)), r.thresholds))
	r.bulkHeaders[length] = h

	return h
}

// ErrPrefix returns the shared header for a well-known error prefix
// (e.g. "WRONGTYPE", "ERR"), building and caching it on first use.
func (r *Registry) ErrPrefix(name string) *object.Header {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.errPrefixes[name]; ok {
		return h
	}

	h := freeze(object.NewString(r.a, []byte(name), r.thresholds))
	r.errPrefixes[name] = h

	return h
}
