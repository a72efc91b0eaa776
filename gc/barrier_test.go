package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierForwardShadesWhiteReferentDuringMarking(t *testing.T) {
	c := New(Incremental, nil)
	c.phase = PhasePropagate

	owner := NewTable()
	c.NewObject(owner, 8)
	setColor(&owner.Header, black)

	referent := NewTable()
	c.NewObject(referent, 8)

	c.BarrierForward(owner, referent)

	assert.False(t, isWhite(&referent.Header))
	popped := c.gray.pop()
	require.NotNil(t, popped)
	assert.Same(t, referent, popped)
}

func TestBarrierForwardAgesReferentWhenOwnerIsOld(t *testing.T) {
	c := New(Generational, nil)
	c.phase = PhasePropagate

	owner := NewTable()
	c.NewObject(owner, 8)
	setAge(&owner.Header, ageOld)

	referent := NewTable()
	c.NewObject(referent, 8)

	c.BarrierForward(owner, referent)

	assert.Equal(t, ageOld0, getAge(&referent.Header))
}

func TestBarrierForwardNoopOutsideMarking(t *testing.T) {
	c := New(Incremental, nil)
	c.phase = PhasePause

	owner := NewTable()
	c.NewObject(owner, 8)
	referent := NewTable()
	c.NewObject(referent, 8)

	c.BarrierForward(owner, referent)

	assert.True(t, isWhite(&referent.Header))
	assert.True(t, c.gray.empty())
}

func TestBarrierBackRelinksOldOwnerAndSetsTouched1(t *testing.T) {
	c := New(Generational, nil)
	owner := NewTable()
	c.NewObject(owner, 8)
	setColor(&owner.Header, black)
	setAge(&owner.Header, ageOld)

	c.BarrierBack(owner)

	assert.True(t, isGray(&owner.Header))
	assert.Equal(t, ageTouched1, getAge(&owner.Header))
	popped := c.grayagain.pop()
	require.NotNil(t, popped)
	assert.Same(t, owner, popped)
}

func TestBarrierBackTouched2StaysGrayWithoutRelinking(t *testing.T) {
	c := New(Generational, nil)
	owner := NewTable()
	c.NewObject(owner, 8)
	setColor(&owner.Header, black)
	setAge(&owner.Header, ageTouched2)

	c.BarrierBack(owner)

	assert.True(t, isGray(&owner.Header))
	assert.True(t, c.grayagain.empty())
}
