package gc

// gcSweepMax bounds how many objects a single SWEEP_* tick visits, so a
// "slow" gc_step call still returns promptly (spec.md "Supplemented
// Features" 1; mirrors the host's GCSWEEPMAX).
const gcSweepMax = 20

// Stop records an additional reason the collector must not advance.
// Stop/Resume nest: the collector resumes only once every reason has
// been cleared (spec.md "Supplemented Features" 2).
func (c *Collector) Stop(reason StopReason) { c.stopReason |= reason }

// Resume clears one stop reason.
func (c *Collector) Resume(reason StopReason) { c.stopReason &^= reason }

// Stopped reports whether any stop reason is currently set.
func (c *Collector) Stopped() bool { return c.stopReason != 0 }

// NeedsStep reports whether the caller's allocation loop should invoke
// GCStep: either the debt has become positive (setPause/setMinorDebt
// store minus the remaining budget and every NewObject adds its size) or
// a cycle is already underway and must be driven to completion.
func (c *Collector) NeedsStep() bool {
	return c.debt > 0 || c.phase != PhasePause
}

// startCycle resets every per-cycle work-list, marks roots and enters
// PROPAGATE (spec.md 4.7, the PAUSE->PROPAGATE transition).
func (c *Collector) startCycle() {
	c.marked = int64(c.fixedgc.len)
	c.gray = grayList{}
	c.grayagain = grayList{}
	c.weak = grayList{}
	c.ephemeron = grayList{}
	c.allweak = grayList{}
	c.twups = c.twups[:0]
	if c.roots != nil {
		c.roots.MarkRoots(c)
	}
	c.phase = PhasePropagate
}

// atomicStep runs the entire ENTER_ATOMIC procedure to completion in one
// call: it is not interruptible, matching the host's atomic() (spec.md
// 4.7.1). In order: remark roots and open-upvalue-bearing threads to
// catch anything a back-barrier deferred, propagate to a fixed point,
// resolve ephemeron convergence, clear now-dead weak-value entries,
// resurrect and mark finalizable objects (which may need a further
// propagation + convergence + clear pass of their own), flush the
// string interner's weak cache, and finally flip currentWhite.
func (c *Collector) atomicStep() {
	c.atomicCore()
	c.currentWhite, c.otherWhite = c.otherWhite, c.currentWhite
}

// atomicCore is atomicStep without the final currentWhite flip: the
// minor-cycle atomic pass shares every other step with the major
// cycle's, since generational mode never alternates white at all
// (spec.md 4.7.1, 4.7.2; grounded on the source's `atomic`, called
// verbatim from both `singlestep`'s GCSenteratomic case and
// `youngcollection`).
func (c *Collector) atomicCore() {
	if c.roots != nil {
		c.roots.MarkRoots(c)
	}
	c.remarkUpvals()
	c.propagateAll()

	c.gray.attach(c.grayagain.detach())
	c.propagateAll()

	c.convergeEphemerons()
	c.clearByValues(&c.weak, nil)
	c.clearByValues(&c.allweak, nil)
	c.clearByKeys(&c.allweak)
	origWeak := c.weak.head
	origAll := c.allweak.head

	c.SeparateTobefnz(false)
	c.MarkBeingFinalized()
	c.propagateAll()
	c.convergeEphemerons()
	c.clearByValues(&c.weak, origWeak)
	c.clearByValues(&c.allweak, origAll)
	c.clearByKeys(&c.allweak)

	if c.strings != nil {
		c.strings.ClearWeakCache(func(o Object) bool { return isWhite(o.gcHeader()) })
	}
}

// finishSweep runs once, at the SWEEP_END->CALL_FIN/PAUSE transition. An
// emergency collection (one run out of memory, not on the normal pacing
// schedule) skips the interner's opportunistic shrink so it never grows
// the heap it was just asked to shrink (spec.md "Supplemented Features" 4).
func (c *Collector) finishSweep() {
	if c.strings != nil && !c.emergency {
		c.strings.ShrinkIfSparse()
	}
}

// GCStep advances the collector by one tick and returns a rough work
// count, for callers that want to pace their own allocation loop
// (spec.md 6 `gc_step`). In Generational mode this dispatches to a
// whole YoungCollection, matching the host's luaC_step switch on
// gckind — callers never need to branch on mode themselves.
func (c *Collector) GCStep() int64 {
	if c.Stopped() {
		return 0
	}
	if c.mode == Generational {
		c.YoungCollection()
		return 1
	}
	switch c.phase {
	case PhasePause:
		c.startCycle()
		return 1

	case PhasePropagate:
		if !c.gray.empty() {
			work := int64(0)
			for i := 0; i < gcSweepMax && !c.gray.empty(); i++ {
				o := c.gray.pop()
				setColor(o.gcHeader(), black)
				work += o.Traverse(c)
			}
			return work
		}
		c.phase = PhaseEnterAtomic
		return 0

	case PhaseEnterAtomic:
		c.atomicStep()
		c.phase = PhaseSweepAllgc
		c.sweepAllgc = newSweepCursor(&c.allgc)
		return 1

	case PhaseSweepAllgc:
		n := c.sweepStep(c.sweepAllgc, gcSweepMax)
		if c.sweepAllgc.done() {
			c.phase = PhaseSweepFinobj
			c.sweepFinobj = newSweepCursor(&c.finobj)
		}
		return int64(n)

	case PhaseSweepFinobj:
		n := c.sweepStep(c.sweepFinobj, gcSweepMax)
		if c.sweepFinobj.done() {
			c.phase = PhaseSweepTobefnz
			c.sweepTobefnz = newSweepCursor(&c.tobefnz)
		}
		return int64(n)

	case PhaseSweepTobefnz:
		n := c.sweepStep(c.sweepTobefnz, gcSweepMax)
		if c.sweepTobefnz.done() {
			c.phase = PhaseSweepEnd
		}
		return int64(n)

	case PhaseSweepEnd:
		c.finishSweep()
		if c.tobefnz.empty() {
			c.phase = PhasePause
			c.setPause(c.totalBytes)
		} else {
			c.phase = PhaseCallFin
		}
		return 1

	case PhaseCallFin:
		if !c.emergency {
			c.RunOneFinalizer()
		}
		if c.tobefnz.empty() || c.emergency {
			c.phase = PhasePause
			c.setPause(c.totalBytes)
		}
		return 1
	}
	return 0
}

// FullGC drains whatever cycle is already in flight and then runs one
// complete fresh cycle to PAUSE, matching the host's luaC_fullgc: a
// pending incremental cycle is finished first so the heap is in a known
// state before the "real" full collection begins (spec.md 6 `full_gc`).
// emergency suppresses the interner shrink, the atomic stack-shrink
// step and finalizer invocation (objects stay queued in tobefnz for a
// later, non-emergency CALL_FIN), since an emergency collection runs
// from inside the allocator and must not itself allocate.
//
// In Generational mode this is the source's `fullgen`: running
// enterGenerational again re-marks the whole graph, reclaims anything
// unreachable and ages every survivor to OLD without leaving
// generational mode, which is a complete collection on its own — there
// is no separate incremental detour to run first.
func (c *Collector) FullGC(emergency bool) {
	prevEmergency := c.emergency
	c.emergency = emergency
	defer func() { c.emergency = prevEmergency }()

	if c.mode == Generational {
		c.enterGenerational()
		return
	}

	for c.phase != PhasePause {
		c.GCStep()
	}
	c.startCycle()
	for c.phase != PhasePause {
		c.GCStep()
	}
}

// ChangeMode switches between Incremental and Generational. Any cycle in
// flight is drained to PAUSE first so the switch always happens on a
// consistent heap (spec.md 4.7.2 `change_mode`).
func (c *Collector) ChangeMode(mode Mode) {
	if mode == c.mode {
		return
	}
	for c.phase != PhasePause {
		c.GCStep()
	}
	switch mode {
	case Generational:
		c.enterGenerational()
	case Incremental:
		c.enterIncremental()
	}
	c.mode = mode
}
