package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMinorMajorThresholds(t *testing.T) {
	c := New(Generational, nil)
	c.gcMajorMinor = 100 // baseline recorded at the last major<->minor transition

	c.marked = 10
	c.addedOld1 = 5
	assert.False(t, c.checkMinorMajor())

	// MinorMul=25 against a baseline of 100 gives step=25, so step/2=12.
	c.addedOld1 = 13
	assert.True(t, c.checkMinorMajor())

	// MinorMajor=50 against the same baseline gives limit=50.
	c.addedOld1 = 0
	c.marked = 50
	assert.True(t, c.checkMinorMajor())
}

func TestCheckMajorMinorDemotesWhenHeapIsSparse(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	live := NewTable()
	c.NewObject(live, 8)
	roots.objs = append(roots.objs, live)

	for i := 0; i < 3; i++ {
		c.NewObject(NewTable(), 8) // unreachable, swept by checkMajorMinor's sweepToOld
	}

	// Pretend this is the atomic-phase checkpoint of a promoted cycle:
	// two objects existed at the last transition, one got marked.
	c.gcMajorMinor = 2
	c.marked = 1
	setColor(&live.Header, black)

	assert.True(t, c.checkMajorMinor(), "3 dead objects against a 2-object baseline should be past MajorMinor's limit")
	assert.Equal(t, Generational, c.Mode())
	assert.Equal(t, 1, c.LiveCount())
}

func TestCheckMajorMinorStaysIncrementalWhenHeapIsDense(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	for i := 0; i < 5; i++ {
		tbl := NewTable()
		c.NewObject(tbl, 8)
		roots.objs = append(roots.objs, tbl)
	}

	c.gcMajorMinor = 1
	c.marked = 5

	assert.False(t, c.checkMajorMinor())
	assert.Equal(t, Incremental, c.Mode())
	assert.Equal(t, int64(5), c.gcMajorMinor, "staying incremental rebases the baseline on the new marked count")
}

// TestYoungCollectionPromotesToIncrementalUnderSustainedGrowth drives real
// young collections against a steadily growing root set until
// checkMinorMajor's marked-count threshold trips and the collector
// promotes itself to a major incremental cycle (spec.md 4.7.2
// `check_minor_major`, `minor2inc`).
func TestYoungCollectionPromotesToIncrementalUnderSustainedGrowth(t *testing.T) {
	c := New(Incremental, nil)
	roots := &fakeRoots{}
	c.SetRoots(roots)

	anchor := NewTable()
	c.NewObject(anchor, 8)
	roots.objs = append(roots.objs, anchor)

	c.ChangeMode(Generational)
	require.Equal(t, Generational, c.Mode())

	// Pin a sizeable baseline so the default thresholds aren't satisfied
	// trivially by the single anchor object alone.
	c.gcMajorMinor = 100

	promoted := false
	for i := 0; i < 20; i++ {
		for j := 0; j < 10; j++ {
			tbl := NewTable()
			c.NewObject(tbl, 8)
			roots.objs = append(roots.objs, tbl)
		}
		c.YoungCollection()
		if c.Mode() == Incremental {
			promoted = true
			break
		}
	}

	assert.True(t, promoted, "sustained root growth should eventually cross MinorMajor's marked-count limit")
	assert.Equal(t, Incremental, c.Mode())
}
