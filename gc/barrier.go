package gc

// BarrierForward must be called by the mutator whenever a black/old
// owner is made to reference a white/young referent (spec.md 4.5). It
// is the cheaper of the two barriers to reason about but the more
// frequently invoked, since it applies to every kind of object, not
// just tables.
func (c *Collector) BarrierForward(owner, referent Object) {
	if referent == nil || !isWhite(referent.gcHeader()) {
		return
	}
	switch {
	case c.isMarking():
		markObject(c, referent)
		if getAge(owner.gcHeader()) >= ageOld0 {
			setAge(referent.gcHeader(), ageOld0)
		}
	case c.isSweeping() && c.mode == Incremental:
		setColor(owner.gcHeader(), c.currentWhite)
	}
}

// BarrierBack must be called by the mutator whenever a black table
// gains a reference to a young object. It defers the actual rescan to
// the next atomic phase instead of marking immediately, which is
// cheaper when a table is mutated many times per cycle (spec.md 4.5).
func (c *Collector) BarrierBack(owner Object) {
	h := owner.gcHeader()
	wasOld := getAge(h) >= ageOld0
	if getAge(h) == ageTouched2 {
		setColor(h, gray)
	} else {
		c.grayagain.push(owner)
		setColor(h, gray)
	}
	if wasOld {
		setAge(h, ageTouched1)
	}
}

func (c *Collector) isMarking() bool {
	return c.phase == PhasePropagate || c.phase == PhaseEnterAtomic
}

func (c *Collector) isSweeping() bool {
	switch c.phase {
	case PhaseSweepAllgc, PhaseSweepFinobj, PhaseSweepTobefnz:
		return true
	default:
		return false
	}
}
