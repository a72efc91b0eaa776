package intern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiyoo0812/luagc/gc"
)

func TestInternReturnsSamePointerForEqualBytes(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	a := it.NewString("hello")
	b := it.NewString("hello")

	assert.Same(t, a, b)
}

func TestInternDistinguishesDifferentBytes(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	a := it.NewString("hello")
	b := it.NewString("world")

	assert.NotSame(t, a, b)
}

func TestLongStringsAreNeverInterned(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	long := strings.Repeat("x", maxShortLen+10)
	a := it.NewString(long)
	b := it.NewString(long)

	_, aIsShort := a.(*gc.ShortString)
	assert.False(t, aIsShort)
	assert.NotSame(t, a, b)
}

func TestLookupFindsInternedString(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	created := it.NewString("needle")
	found, ok := it.Lookup("needle")
	require.True(t, ok)
	assert.Same(t, created, found)

	_, ok = it.Lookup("not present")
	assert.False(t, ok)
}

func TestObjectFreedUnlinksFromBucket(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	s := it.NewString("transient")
	ss := s.(*gc.ShortString)
	it.ObjectFreed(ss)

	_, ok := it.Lookup("transient")
	assert.False(t, ok)
}

func TestClearWeakCacheDropsWhiteEntries(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)

	it.NewString("cached")
	it.ClearWeakCache(func(o gc.Object) bool { return true })

	for i := range it.cache {
		for j := range it.cache[i] {
			assert.Nil(t, it.cache[i][j])
		}
	}
}

func TestShrinkIfSparseHalvesTable(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)
	it.resize(1024)
	it.nuse = 1

	it.ShrinkIfSparse()

	assert.Less(t, len(it.buckets), 1024)
}

func TestShrinkIfSparseNeverGoesBelowMinimum(t *testing.T) {
	c := gc.New(gc.Incremental, nil)
	it := New(c)
	it.nuse = 0

	it.ShrinkIfSparse()

	assert.Equal(t, minTableSize, len(it.buckets))
}
