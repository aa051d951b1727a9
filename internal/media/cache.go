package media

import (
	"container/list"

	"github.com/adamavenir/chatmirror/internal/metrics"
	"github.com/adamavenir/chatmirror/internal/types"
)

// DefaultCacheBudget is the thumbnail cache budget in bytes (100MB).
const DefaultCacheBudget = 1000 * 1000 * 100

// Blob is cached binary content together with its sniffed type.
type Blob struct {
	Data []byte
	Mime string
	Kind ContentKind
}

// NewBlob wraps data and infers its content kind.
func NewBlob(data []byte) Blob {
	mime := InferMimetype(data)
	return Blob{Data: data, Mime: mime, Kind: KindOf(mime)}
}

// Size is the number of bytes the blob counts against the budget.
func (b Blob) Size() int {
	return len(b.Data)
}

type cacheEntry struct {
	ref  types.AssetRef
	blob Blob
}

// ThumbnailCache is a byte-bounded cache that evicts in insertion order.
// Readers are expected to look entries up by reference each time; nothing
// outside the cache holds on to a blob.
type ThumbnailCache struct {
	budget  int
	size    int
	order   *list.List
	entries map[types.AssetRef]*list.Element
}

// NewThumbnailCache returns a cache holding at most budget bytes.
func NewThumbnailCache(budget int) *ThumbnailCache {
	if budget <= 0 {
		budget = DefaultCacheBudget
	}
	return &ThumbnailCache{
		budget:  budget,
		order:   list.New(),
		entries: make(map[types.AssetRef]*list.Element),
	}
}

// Put stores blob under ref, evicting the oldest entries until it fits.
// A blob larger than the whole budget is dropped and Put returns false.
// Storing an existing ref replaces it and makes it the newest entry.
func (c *ThumbnailCache) Put(ref types.AssetRef, blob Blob) bool {
	incoming := blob.Size()
	if incoming > c.budget {
		metrics.CacheRejections.Inc()
		return false
	}

	if elem, ok := c.entries[ref]; ok {
		c.remove(elem)
	}

	for c.size+incoming > c.budget {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest)
		metrics.CacheEvictions.Inc()
	}
	if c.size+incoming > c.budget {
		metrics.CacheRejections.Inc()
		c.report()
		return false
	}

	c.entries[ref] = c.order.PushBack(&cacheEntry{ref: ref, blob: blob})
	c.size += incoming
	c.report()
	return true
}

// Get returns the blob stored for ref.
func (c *ThumbnailCache) Get(ref types.AssetRef) (Blob, bool) {
	elem, ok := c.entries[ref]
	if !ok {
		return Blob{}, false
	}
	return elem.Value.(*cacheEntry).blob, true
}

// Has reports whether ref is cached.
func (c *ThumbnailCache) Has(ref types.AssetRef) bool {
	_, ok := c.entries[ref]
	return ok
}

// Invalidate drops ref from the cache if present.
func (c *ThumbnailCache) Invalidate(ref types.AssetRef) {
	if elem, ok := c.entries[ref]; ok {
		c.remove(elem)
		c.report()
	}
}

// Len returns the number of cached entries.
func (c *ThumbnailCache) Len() int {
	return len(c.entries)
}

// Size returns the number of cached bytes.
func (c *ThumbnailCache) Size() int {
	return c.size
}

// Budget returns the configured byte budget.
func (c *ThumbnailCache) Budget() int {
	return c.budget
}

// Refs returns cached references from oldest to newest.
func (c *ThumbnailCache) Refs() []types.AssetRef {
	refs := make([]types.AssetRef, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		refs = append(refs, elem.Value.(*cacheEntry).ref)
	}
	return refs
}

func (c *ThumbnailCache) remove(elem *list.Element) {
	entry := c.order.Remove(elem).(*cacheEntry)
	delete(c.entries, entry.ref)
	c.size -= entry.blob.Size()
}

func (c *ThumbnailCache) report() {
	metrics.CacheBytes.Set(float64(c.size))
	metrics.CacheEntries.Set(float64(len(c.entries)))
}
