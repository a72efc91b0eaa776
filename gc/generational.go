package gc

// enterGenerational transitions into generational mode. It must run a
// complete atomic procedure first, exactly like an ordinary major
// collection, so every object is correctly marked and every weak table
// is resolved; only then does it sweep every survivor to age OLD, since
// a freshly generational heap begins with nothing considered young
// (spec.md 4.7.2 `enter_gen`, grounded on the source's `entergen` and
// `atomic2gen`: `entergen` runs only through one atomic() pass before
// handing off to `atomic2gen`, never an ordinary age-NEW sweep).
func (c *Collector) enterGenerational() {
	for c.phase != PhasePause {
		c.GCStep()
	}
	c.startCycle()
	c.propagateAll()
	c.phase = PhaseEnterAtomic
	c.atomicCore()
	c.sweepToOld()
	c.setMinorDebt(c.totalBytes)
	c.phase = PhasePause
}

// enterIncremental resumes the ordinary PAUSE/PROPAGATE/.../SWEEP_END
// state machine. A generational heap's survivors are black and aged,
// and the incremental marker never revisits a non-white object, so every
// object in allgc, finobj and tobefnz is repainted the current white and
// reset to ageNew, and the generation boundaries are cleared (spec.md
// 4.7.2 `minor2inc`, the non-promoting half of it).
func (c *Collector) enterIncremental() {
	whiten := func(o Object) {
		makeWhite(c, o.gcHeader())
		setAge(o.gcHeader(), ageNew)
	}
	c.allgc.forEach(whiten)
	c.finobj.forEach(whiten)
	c.tobefnz.forEach(whiten)
	c.reallyOld, c.firstOld1, c.finobjRold = nil, nil, nil
	c.phase = PhasePause
}

// sweepToOld clears every gray work-list and sweeps allgc, finobj and
// tobefnz to completion: dead (still-white) objects are freed and every
// survivor is aged straight to OLD. It then re-bases gcMajorMinor on
// the marked count just produced and zeroes marked so the next young
// collection counts freshly promoted objects from scratch (spec.md
// 4.7.2 `atomic2gen`/`sweep2old`). Used both to enter generational mode
// the first time and to return to it after a major collection turns out
// sparse enough (`checkMajorMinor`).
func (c *Collector) sweepToOld() {
	c.gray = grayList{}
	c.grayagain = grayList{}
	c.weak = grayList{}
	c.ephemeron = grayList{}
	c.allweak = grayList{}

	c.sweepListToOld(&c.allgc)
	c.reallyOld = c.allgc.head
	c.firstOld1 = nil

	c.sweepListToOld(&c.finobj)
	c.finobjRold = c.finobj.head

	c.sweepListToOld(&c.tobefnz)

	c.gcMajorMinor = c.marked
	c.marked = 0
	c.addedOld1 = 0
}

// sweepListToOld frees every still-white object in list and ages every
// survivor straight to ageOld. Threads are relinked into grayagain so
// they keep being revisited (an open-upvalue stack can still change
// without a barrier); open upvalues stay gray for the same reason;
// everything else goes solid black (spec.md 3.3, grounded on the
// source's `sweep2old`).
func (c *Collector) sweepListToOld(list *objList) {
	var prev Object
	cur := list.head
	for cur != nil {
		h := cur.gcHeader()
		next := h.next
		if isWhite(h) {
			if prev == nil {
				list.head = next
			} else {
				prev.gcHeader().next = next
			}
			h.next = nil
			list.len--
			if c.freeObserver != nil {
				c.freeObserver.ObjectFreed(cur)
			}
		} else {
			setAge(h, ageOld)
			switch {
			case cur.Kind() == KindThread:
				setColor(h, gray)
				c.grayagain.push(cur)
			case cur.Kind() == KindUpvalue && cur.(*Upvalue).Open:
				setColor(h, gray)
			default:
				setColor(h, black)
			}
			prev = cur
		}
		cur = next
	}
}

// markOld promotes every OLD1-age object between from (inclusive) and
// to (exclusive) to ageOld, re-marking any that are already black so
// the live count captures them before this cycle's mark phase runs
// (spec.md 4.7.2, grounded on the source's `markold`). It is run on the
// boundary left over from the previous young collection, since those
// objects are about to fall out of the range advanceAge/sweepYoungSegment
// will touch this round.
func (c *Collector) markOld(from, to Object) {
	for cur := from; cur != nil && cur != to; cur = cur.gcHeader().next {
		h := cur.gcHeader()
		if getAge(h) == ageOld1 {
			setAge(h, ageOld)
			if isBlack(h) {
				markObject(c, cur)
			}
		}
	}
}

// YoungCollection runs exactly one minor cycle to completion: promote
// last cycle's OLD1 objects to OLD, mark roots, run the shared atomic
// procedure, sweep only the young part of allgc/finobj/tobefnz (objects
// already aged OLD are skipped entirely, which is the whole point of
// generational mode), and finally decide whether to keep running minor
// cycles or fall back to a major collection (spec.md 4.7.2
// `young_collection`). The caller is expected to invoke this directly
// in Generational mode instead of driving GCStep, since a minor cycle
// is not paced incrementally.
func (c *Collector) YoungCollection() {
	if c.mode != Generational {
		return
	}

	c.markOld(c.firstOld1, c.reallyOld)
	c.firstOld1 = nil
	c.markOld(c.finobj.head, c.finobjRold)
	c.markOld(c.tobefnz.head, nil)

	marked := c.marked // preserved across the atomic pass below

	c.gray = grayList{}
	c.grayagain = grayList{}
	c.weak = grayList{}
	c.ephemeron = grayList{}
	c.allweak = grayList{}
	c.twups = c.twups[:0]

	if c.roots != nil {
		c.roots.MarkRoots(c)
	}
	c.propagateAll()
	c.phase = PhaseEnterAtomic
	c.atomicCore()
	c.phase = PhasePause

	c.addedOld1 = 0
	c.sweepYoungSegment(&c.allgc, c.reallyOld)
	c.sweepYoungSegment(&c.finobj, c.finobjRold)
	c.sweepYoungSegment(&c.tobefnz, nil)

	c.reallyOld = c.oldBoundary(&c.allgc)
	c.finobjRold = c.oldBoundary(&c.finobj)
	c.firstOld1 = c.firstOldBoundary(&c.allgc)

	c.correctGrayLists()

	// the total live count is the previous cumulative total plus
	// whatever newly reached OLD1 this round, not whatever the atomic
	// pass above happened to count while re-verifying reachability
	// (spec.md 4.7.2 `young_collection`).
	c.marked = marked + c.addedOld1

	if c.checkMinorMajor() {
		c.minor2inc()
	}
	c.setMinorDebt(c.totalBytes)
}

// sweepYoungSegment sweeps list from its head up to (excluding) boundary
// — the first object already known to be fully OLD — freeing anything
// still white (generational mode never flips currentWhite, so "still
// white" means simply "not reached this round"). Only objects still at
// ageNew are repainted back to white: they get one more round of full
// liveness scrutiny as they become SURVIVAL. Anything older keeps
// whatever color the mark phase left it in, since those survivors are
// never retraversed from here on and rely entirely on write barriers
// (spec.md 3.3, grounded on the source's `sweepgen`, which only clears
// color for the G_NEW case). Objects at or beyond boundary were proven
// OLD by an earlier minor cycle and are left untouched entirely, which
// is the source of the generational mode's speed advantage over a full
// incremental cycle.
func (c *Collector) sweepYoungSegment(list *objList, boundary Object) {
	var prev Object
	cur := list.head
	for cur != nil && cur != boundary {
		h := cur.gcHeader()
		next := h.next
		if isWhite(h) {
			if prev == nil {
				list.head = next
			} else {
				prev.gcHeader().next = next
			}
			h.next = nil
			list.len--
			if c.freeObserver != nil {
				c.freeObserver.ObjectFreed(cur)
			}
		} else {
			prevAge := getAge(h)
			advanceAge(h)
			switch {
			case prevAge == ageNew:
				setColor(h, c.currentWhite)
			case getAge(h) == ageOld1 && prevAge != ageOld1:
				c.addedOld1++
			}
			prev = cur
		}
		cur = next
	}
}

// oldBoundary returns the first object in list whose age has reached
// ageOld — the new stop point for the next minor cycle's sweep.
func (c *Collector) oldBoundary(list *objList) Object {
	for cur := list.head; cur != nil; cur = cur.gcHeader().next {
		if getAge(cur.gcHeader()) == ageOld {
			return cur
		}
	}
	return nil
}

// firstOldBoundary returns the first object in list whose age is OLD1 —
// the range markOld needs to revisit and promote at the start of the
// next young collection.
func (c *Collector) firstOldBoundary(list *objList) Object {
	for cur := list.head; cur != nil; cur = cur.gcHeader().next {
		if getAge(cur.gcHeader()) == ageOld1 {
			return cur
		}
	}
	return nil
}

// correctGrayLists drops the now-stale gray/grayagain chains a minor
// cycle leaves behind; anything that still needed tracking was already
// re-linked into grayagain by genLink during propagation and was folded
// back into gray by the next cycle's atomic pass (spec.md 4.7.2
// `correct_gray_lists`).
func (c *Collector) correctGrayLists() {
	c.gray = grayList{}
	c.grayagain = grayList{}
}

// checkMinorMajor decides whether to promote from generational to a
// major incremental collection: either too many objects were promoted
// to OLD1 this cycle relative to the allocation step size, or the total
// marked count has grown past MinorMajor percent of the baseline
// recorded at the last major<->minor transition (spec.md 4.7.2
// `check_minor_major`, grounded on the source's `checkminormajor`).
func (c *Collector) checkMinorMajor() bool {
	step := applyParam(c.Params.MinorMul, c.gcMajorMinor)
	limit := applyParam(c.Params.MinorMajor, c.gcMajorMinor)
	return c.addedOld1 >= step/2 || c.marked >= limit
}

// minor2inc promotes to a major incremental collection: it runs one
// complete fresh incremental cycle through the atomic mark phase, then
// asks checkMajorMinor whether the heap is already sparse enough to
// head straight back to generational mode instead of continuing the
// incremental sweep (spec.md 4.7.2, grounded on the source's
// `minor2inc`/`checkmajorminor` pairing at the GCSenteratomic
// transition).
func (c *Collector) minor2inc() {
	c.gcMajorMinor = c.marked
	c.enterIncremental()
	c.mode = Incremental
	for c.phase != PhasePause {
		c.GCStep()
	}
	c.startCycle()
	c.propagateAll()
	c.phase = PhaseEnterAtomic
	c.atomicStep()

	if c.checkMajorMinor() {
		c.phase = PhasePause
		return
	}
	c.phase = PhaseSweepAllgc
	c.sweepAllgc = newSweepCursor(&c.allgc)
	for c.phase != PhasePause {
		c.GCStep()
	}
}

// checkMajorMinor runs immediately after a promoted cycle's atomic mark
// phase, before anything is swept: it compares the number of objects
// about to be reclaimed against MajorMinor percent of the objects added
// since the last transition. If the heap turns out to be mostly live
// data after all, it is sparse enough that generational mode pays for
// itself again, so the collector sweeps everything straight to OLD and
// returns to minor cycles instead of finishing the incremental sweep
// (spec.md 4.7.2 `check_major_minor`, grounded on the source's
// `checkmajorminor`).
func (c *Collector) checkMajorMinor() bool {
	numObjs := int64(c.LiveCount())
	addedObjs := numObjs - c.gcMajorMinor
	limit := applyParam(c.Params.MajorMinor, addedObjs)
	toBeCollected := numObjs - c.marked
	if toBeCollected > limit {
		c.sweepToOld()
		c.setMinorDebt(c.totalBytes)
		c.mode = Generational
		return true
	}
	c.gcMajorMinor = c.marked
	return false
}
