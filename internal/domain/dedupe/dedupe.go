package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper maps submission keys to the id of the record they produced.
type Deduper interface {
	// Claim records key -> value unless key is already known. When it is,
	// Claim returns the stored value and true; otherwise value and false.
	Claim(ctx context.Context, key, value string) (string, bool)

	// Release forgets key so the submission can be retried, for use when the
	// claimed work failed.
	Release(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key     string
	value   string
	claimed time.Time
}

// inMemoryDeduper keeps keys in insertion order so eviction and expiry both
// pop from the front.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 50_000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Claim(_ context.Context, key, value string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if el, ok := d.index[key]; ok {
		return el.Value.(*entry).value, true
	}

	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			d.remove(d.order.Front())
		}
	}
	d.index[key] = d.order.PushBack(&entry{key: key, value: value, claimed: now})
	d.size.Add(1)
	return value, false
}

func (d *inMemoryDeduper) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// expire drops entries older than ttl. Caller holds d.mu.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if now.Sub(el.Value.(*entry).claimed) < d.ttl {
			return
		}
		d.remove(el)
	}
}

// remove unlinks el. Caller holds d.mu.
func (d *inMemoryDeduper) remove(el *list.Element) {
	e := d.order.Remove(el).(*entry)
	delete(d.index, e.key)
	d.size.Add(-1)
}
