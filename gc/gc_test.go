package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoots struct{ objs []Object }

func (r *fakeRoots) MarkRoots(c *Collector) {
	for _, o := range r.objs {
		c.MarkRoot(o)
	}
}

type fakeFinalizer struct {
	calls []Object
}

func (f *fakeFinalizer) CallFinalizer(obj Object) error {
	f.calls = append(f.calls, obj)
	return nil
}

func TestNewObjectIsPaintedCurrentWhite(t *testing.T) {
	c := New(Incremental, nil)
	tbl := NewTable()
	c.NewObject(tbl, 32)

	assert.True(t, isWhite(&tbl.Header))
	assert.Equal(t, white0, tbl.Header.m.color())
	assert.Equal(t, 1, c.LiveCount())
}

func TestFullGCReclaimsUnreachableObjects(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	live := NewTable()
	c.NewObject(live, 16)
	roots.objs = append(roots.objs, live)

	dead := NewTable()
	c.NewObject(dead, 16)

	c.FullGC(false)

	require.Equal(t, PhasePause, c.Phase())
	assert.Equal(t, 1, c.LiveCount())
}

func TestFullGCKeepsReachableGraph(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	parent := NewTable()
	c.NewObject(parent, 16)
	child := NewTable()
	c.NewObject(child, 16)
	parent.Hash["k"] = child
	roots.objs = append(roots.objs, parent)

	c.FullGC(false)

	assert.Equal(t, 2, c.LiveCount())
}

func TestFinalizerRunsAndResurrectsObject(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)
	fin := &fakeFinalizer{}
	c.SetFinalizerCaller(fin)

	mt := NewTable()
	mt.Hash["__finalize"] = true
	c.NewObject(mt, 8)

	ud := NewUserdata(0)
	ud.Metatable = mt
	c.NewObject(ud, 8)

	c.CheckFinalizer(ud, mt)
	assert.True(t, isFinalized(&ud.Header))
	assert.Equal(t, 1, c.finobj.len)
	assert.Equal(t, 1, c.allgc.len) // only mt is left in allgc

	c.FullGC(false)

	require.Len(t, fin.calls, 1)
	assert.Same(t, ud, fin.calls[0])
	// the finalizer ran with FINALIZED cleared, then had it restored
	// (I4's transient exception).
	assert.True(t, isFinalized(&ud.Header))
	assert.Equal(t, 2, c.LiveCount()) // ud resurrected into allgc, mt still alive
}

func TestCheckFinalizerIgnoresMetatableWithoutHook(t *testing.T) {
	c := New(Incremental, nil)
	mt := NewTable()
	ud := NewUserdata(0)
	ud.Metatable = mt
	c.NewObject(mt, 8)
	c.NewObject(ud, 8)

	c.CheckFinalizer(ud, mt)

	assert.False(t, isFinalized(&ud.Header))
	assert.Equal(t, 2, c.allgc.len)
	assert.Equal(t, 0, c.finobj.len)
}

func TestFixObjectMovesHeadToFixedgc(t *testing.T) {
	c := New(Incremental, nil)
	tbl := NewTable()
	c.NewObject(tbl, 8)

	require.NoError(t, c.FixObject(tbl))

	assert.True(t, isGray(&tbl.Header))
	assert.Equal(t, ageOld, getAge(&tbl.Header))
	assert.Equal(t, 0, c.allgc.len)
	assert.Equal(t, 1, c.fixedgc.len)
}

func TestFixObjectRejectsNonHead(t *testing.T) {
	c := New(Incremental, nil)
	a := NewTable()
	c.NewObject(a, 8)
	b := NewTable()
	c.NewObject(b, 8)

	err := c.FixObject(a) // b is the head, not a
	assert.Error(t, err)
}

func TestWeakValueTableDropsClearedEntries(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	mt := NewTable()
	mt.Hash["__mode"] = "v"
	c.NewObject(mt, 8)

	weak := NewTable()
	weak.Metatable = mt
	c.NewObject(weak, 8)
	roots.objs = append(roots.objs, weak, mt)

	val := NewTable()
	c.NewObject(val, 8)
	weak.Hash["k"] = val // val is reachable only through the weak-value table

	c.FullGC(false)

	_, stillThere := weak.Hash["k"]
	assert.False(t, stillThere)
}

func TestGenerationalYoungCollectionReclaimsGarbage(t *testing.T) {
	c := New(Generational, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	live := NewTable()
	c.NewObject(live, 8)
	roots.objs = append(roots.objs, live)

	dead := NewTable()
	c.NewObject(dead, 8)

	for i := 0; i < 3; i++ {
		c.YoungCollection()
	}

	assert.Equal(t, 1, c.LiveCount())
}

func TestInvariantsPassAfterFullGC(t *testing.T) {
	c := New(Incremental, nil)
	c.DebugInvariants = true
	roots := &fakeRoots{}
	c.SetRoots(roots)

	tbl := NewTable()
	c.NewObject(tbl, 8)
	roots.objs = append(roots.objs, tbl)

	c.FullGC(false)
	assert.NoError(t, c.CheckInvariants())
}
