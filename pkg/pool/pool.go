// Package pool provides object and byte buffer pooling for the block layer.
//
// Serialization is allocation heavy: every page written to an exchange grows
// a byte buffer from a few hundred bytes to several megabytes. Output sinks
// borrow their backing buffer from Buffers and hand it back on Release, so a
// steady stream of pages reuses the same few buffers instead of growing a new
// one per page.
//
// Decoded blocks never use pooled memory. Deserialization always allocates
// fresh backing storage owned by the new block.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an optional reset function
// applied before an object is returned to the pool. The pool is safe for
// concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The reset function may be nil.
//
// Example:
//
//	p := pool.New(
//	    func() *Scratch { return &Scratch{buf: make([]byte, 0, 1024)} },
//	    func(s *Scratch) { s.buf = s.buf[:0] },
//	)
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, allocating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, applying the reset function
// first if one was provided.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics: objects ever created, objects
// currently checked out, and Get calls served.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// bucketSizes are the capacities served by BufferPool, 512B through 16MB.
var bucketSizes = []int{
	512,
	4096,
	16384,
	65536,
	262144,
	1048576,
	4194304,
	16777216,
}

// BufferPool manages byte buffer pooling with size-based buckets.
// Requests larger than the largest bucket are allocated directly and are
// dropped on Put.
type BufferPool struct {
	pools []*Pool[*[]byte]
	sizes []int
}

// NewBufferPool creates a new buffer pool with power-of-4 size buckets.
func NewBufferPool() *BufferPool {
	pools := make([]*Pool[*[]byte], len(bucketSizes))
	for i, size := range bucketSizes {
		size := size
		pools[i] = New(
			func() *[]byte {
				b := make([]byte, 0, size)
				return &b
			},
			func(b *[]byte) {
				*b = (*b)[:0]
			},
		)
	}

	return &BufferPool{
		pools: pools,
		sizes: bucketSizes,
	}
}

// Get returns an empty buffer with capacity of at least size.
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			return *p.pools[i].Get()
		}
	}
	return make([]byte, 0, size)
}

// Put returns a buffer to the bucket matching its capacity exactly. Buffers
// whose capacity no longer matches a bucket (because append grew them) are
// filed under the largest bucket they fully cover.
func (p *BufferPool) Put(buf []byte) {
	c := cap(buf)
	for i := len(p.sizes) - 1; i >= 0; i-- {
		if c >= p.sizes[i] {
			if i == len(p.sizes)-1 && c > 4*p.sizes[i] {
				return
			}
			b := buf[:0]
			p.pools[i].Put(&b)
			return
		}
	}
}

// Buffers is the process-wide buffer pool used by serialization sinks.
var Buffers = NewBufferPool()
