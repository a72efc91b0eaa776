// Package intern implements the collector's string subsystem: an
// interning hash table for short strings (equal bytes always resolve to
// the same *gc.ShortString), lazily-hashed long strings, and a small
// fixed-size lookup cache for the handful of strings the embedder tends
// to re-request on every call (error messages, metamethod names).
//
// It is kept in a package separate from gc because the two interfaces
// it implements, gc.StringCache and gc.FreeObserver, are the only seam
// between them: the collector never imports this package.
package intern

import "github.com/xiyoo0812/luagc/gc"

const (
	// maxShortLen mirrors LUAI_MAXSHORTLEN: strings no longer than this
	// are interned; anything longer is always a fresh LongString.
	maxShortLen = 40

	minTableSize = 128

	// strcacheN/strcacheM size the direct-mapped API string cache
	// (spec.md "Supplemented Features" 6): N buckets of M slots each,
	// the same shape as the host's STRCACHE_N x STRCACHE_M.
	strcacheN = 53
	strcacheM = 2
)

// Interner owns the short-string hash table, the long-string accounting
// and the API cache, and is wired into a *gc.Collector as both its
// StringCache and FreeObserver.
type Interner struct {
	c       *gc.Collector
	buckets []*gc.ShortString
	nuse    int
	cache   [strcacheN][strcacheM]*gc.ShortString
}

// New creates an Interner and registers it with c.
func New(c *gc.Collector) *Interner {
	it := &Interner{c: c, buckets: make([]*gc.ShortString, minTableSize)}
	c.SetStringCache(it)
	c.SetFreeObserver(it)
	return it
}

// NewString interns s if it is short enough, or allocates a fresh,
// never-shared LongString otherwise (spec.md 4.8).
func (it *Interner) NewString(s string) gc.Object {
	if len(s) > maxShortLen {
		ls := gc.NewLongString(s)
		return it.c.NewObject(ls, int64(len(s)))
	}
	return it.internShort(s)
}

func (it *Interner) internShort(s string) *gc.ShortString {
	h := hashString(s, 0)
	idx := int(h) % len(it.buckets)
	for cur := it.buckets[idx]; cur != nil; cur = cur.BucketNext() {
		if cur.Bytes == s {
			it.c.ResurrectIfDead(cur)
			it.cachePut(h, cur)
			return cur
		}
	}

	ss := gc.NewShortString(s, h)
	it.c.NewObject(ss, int64(len(s)))
	ss.SetBucketNext(it.buckets[idx])
	it.buckets[idx] = ss
	it.nuse++
	if it.nuse > len(it.buckets) && len(it.buckets) < 1<<30 {
		it.resize(len(it.buckets) * 2)
	}
	it.cachePut(h, ss)
	return ss
}

// Lookup returns the already-interned ShortString for s, if any, without
// creating a new one. Used by the API cache's fast path.
func (it *Interner) Lookup(s string) (*gc.ShortString, bool) {
	if len(s) > maxShortLen {
		return nil, false
	}
	h := hashString(s, 0)
	if cached := it.cacheGet(h, s); cached != nil {
		it.c.ResurrectIfDead(cached)
		return cached, true
	}
	idx := int(h) % len(it.buckets)
	for cur := it.buckets[idx]; cur != nil; cur = cur.BucketNext() {
		if cur.Bytes == s {
			it.c.ResurrectIfDead(cur)
			return cur, true
		}
	}
	return nil, false
}

func (it *Interner) resize(newSize int) {
	next := make([]*gc.ShortString, newSize)
	for _, head := range it.buckets {
		cur := head
		for cur != nil {
			n := cur.BucketNext()
			idx := int(cur.Hash) % newSize
			cur.SetBucketNext(next[idx])
			next[idx] = cur
			cur = n
		}
	}
	it.buckets = next
}

// ObjectFreed implements gc.FreeObserver: when the sweeper reclaims a
// short string, it must also be unlinked from its hash bucket and
// dropped from the API cache, or either would keep a dangling pointer
// alive forever (spec.md 4.8 `remove`).
func (it *Interner) ObjectFreed(o gc.Object) {
	ss, ok := o.(*gc.ShortString)
	if !ok {
		return
	}
	row := &it.cache[int(ss.Hash)%strcacheN]
	for j := range row {
		if row[j] == ss {
			row[j] = nil
		}
	}
	idx := int(ss.Hash) % len(it.buckets)
	var prev *gc.ShortString
	cur := it.buckets[idx]
	for cur != nil {
		if cur == ss {
			if prev == nil {
				it.buckets[idx] = cur.BucketNext()
			} else {
				prev.SetBucketNext(cur.BucketNext())
			}
			cur.SetBucketNext(nil)
			it.nuse--
			return
		}
		prev = cur
		cur = cur.BucketNext()
	}
}

// ClearWeakCache implements gc.StringCache: the atomic procedure's last
// step before flipping currentWhite drops every API cache entry that
// points at a string condemned this cycle, so the cache never reports a
// live-looking pointer to an object about to be swept (spec.md 4.8
// `luaS_clearcache` analogue).
func (it *Interner) ClearWeakCache(isWhite func(gc.Object) bool) {
	for i := range it.cache {
		for j := range it.cache[i] {
			if it.cache[i][j] != nil && isWhite(it.cache[i][j]) {
				it.cache[i][j] = nil
			}
		}
	}
}

// ShrinkIfSparse implements gc.StringCache: once the table is under a
// quarter full, it is halved, mirroring the host's post-sweep shrink
// heuristic in luaS_resize's caller. The collector skips calling this
// during an emergency collection (spec.md "Supplemented Features" 4).
func (it *Interner) ShrinkIfSparse() {
	if len(it.buckets) <= minTableSize {
		return
	}
	if it.nuse >= len(it.buckets)/4 {
		return
	}
	newSize := len(it.buckets) / 2
	if newSize < minTableSize {
		newSize = minTableSize
	}
	it.resize(newSize)
}

func (it *Interner) cachePut(h uint32, s *gc.ShortString) {
	row := &it.cache[int(h)%strcacheN]
	copy(row[1:], row[:strcacheM-1])
	row[0] = s
}

func (it *Interner) cacheGet(h uint32, s string) *gc.ShortString {
	row := &it.cache[int(h)%strcacheN]
	for _, cand := range row {
		if cand != nil && cand.Bytes == s {
			return cand
		}
	}
	return nil
}

// hashString is a straight port of the host's luaS_hash: a sparse
// sampling hash that reads one byte in every len/32+1, so at most about
// 32 bytes of a long input. Every caller passes seed 0, so the same
// string hashes to the same value in every process.
func hashString(s string, seed uint32) uint32 {
	h := seed ^ uint32(len(s))
	step := (len(s) >> 5) + 1
	for i := len(s); i >= step; i -= step {
		h ^= (h << 5) + (h >> 2) + uint32(s[i-1])
	}
	return h
}
