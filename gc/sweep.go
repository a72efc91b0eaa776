package gc

// sweepCursor tracks progress through one pass over an objList so that
// SWEEP_* states can do a bounded amount of work per gc_step tick and
// resume exactly where they left off, without rescanning already-swept
// objects (spec.md 4.3).
type sweepCursor struct {
	list    *objList
	prev    Object
	cur     Object
	started bool
}

func newSweepCursor(list *objList) *sweepCursor {
	return &sweepCursor{list: list, cur: list.head, started: true}
}

func (sc *sweepCursor) done() bool { return sc.cur == nil }

// FreeObserver is notified whenever the sweeper reclaims an object.
// The string interner implements this to unlink dead short strings
// from their hash bucket (spec.md 4.8 `remove`).
type FreeObserver interface {
	ObjectFreed(Object)
}

func (c *Collector) SetFreeObserver(o FreeObserver) { c.freeObserver = o }

// sweepStep advances sc by up to budget objects (budget < 0 means
// unlimited). White-of-the-other-color objects are unlinked and freed;
// everything else is repainted current white and reset to ageNew.
// Returns the number of objects visited.
func (c *Collector) sweepStep(sc *sweepCursor, budget int) int {
	n := 0
	for sc.cur != nil && (budget < 0 || n < budget) {
		obj := sc.cur
		h := obj.gcHeader()
		next := h.next
		if isDead(c, h) {
			if sc.prev == nil {
				sc.list.head = next
			} else {
				sc.prev.gcHeader().next = next
			}
			h.next = nil
			sc.list.len--
			if c.freeObserver != nil {
				c.freeObserver.ObjectFreed(obj)
			}
		} else {
			// Generational mode never reaches sweepStep: GCStep
			// dispatches it straight to YoungCollection instead, which
			// has its own age-aware sweepYoungSegment.
			makeWhite(c, h)
			setAge(h, ageNew)
			sc.prev = obj
		}
		sc.cur = next
		n++
	}
	return n
}

// advanceAge implements the fixed part of generational age monotonicity
// (spec.md 3.3): NEW -> SURVIVAL -> OLD1 -> OLD, and the two extra
// minor cycles an OLD0 object (one freshly exposed by a forward
// barrier) needs before it is trusted as fully OLD. TOUCHED1/TOUCHED2
// are not advanced here: genLink ages a TOUCHED2 object to OLD when it
// traverses it, and nothing moves a TOUCHED1 object on to TOUCHED2.
func advanceAge(h *Header) {
	switch getAge(h) {
	case ageNew:
		setAge(h, ageSurvival)
	case ageSurvival:
		setAge(h, ageOld1)
	case ageOld0:
		setAge(h, ageOld1)
	case ageOld1:
		setAge(h, ageOld)
	}
}
