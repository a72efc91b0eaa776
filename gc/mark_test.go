package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClearableExcludesStrings(t *testing.T) {
	s := NewShortString("x", 0)
	assert.False(t, clearable(s))
	assert.False(t, clearable("plain string, not an Object at all"))
	assert.False(t, clearable(42))
}

func TestClearableReportsWhiteCollectableValues(t *testing.T) {
	c := New(Incremental, nil)
	tbl := NewTable()
	c.NewObject(tbl, 8)

	assert.True(t, clearable(tbl))
	setColor(&tbl.Header, black)
	assert.False(t, clearable(tbl))
}

func TestEphemeronClearsEntryWhoseKeyIsUnreachable(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	mt := NewTable()
	mt.Hash["__mode"] = "k"
	c.NewObject(mt, 8)

	eph := NewTable()
	eph.Metatable = mt
	c.NewObject(eph, 8)
	roots.objs = append(roots.objs, eph, mt)

	key := NewTable() // reachable only as an ephemeron key
	c.NewObject(key, 8)
	val := NewTable() // reachable only as that key's value
	c.NewObject(val, 8)
	eph.Hash[key] = val

	c.FullGC(false)

	// key is never independently reachable, so it is never marked and
	// the whole entry is cleared; val never gets a chance to resurrect
	// through it.
	_, ok := eph.Hash[key]
	assert.False(t, ok)
}

func TestEphemeronKeepsEntryWhenKeyIsReachable(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	mt := NewTable()
	mt.Hash["__mode"] = "k"
	c.NewObject(mt, 8)

	eph := NewTable()
	eph.Metatable = mt
	c.NewObject(eph, 8)

	key := NewTable()
	c.NewObject(key, 8)
	val := NewTable()
	c.NewObject(val, 8)
	eph.Hash[key] = val

	roots.objs = append(roots.objs, eph, mt, key)

	c.FullGC(false)

	got, ok := eph.Hash[key]
	assert.True(t, ok)
	assert.Same(t, val, got)
}
