package gc

import "github.com/pkg/errors"

// Sentinel errors the collector can return from its external interface
// (spec.md 7). Embedders compare with errors.Is; FixObject's own
// ordering error stays inline since it already carries full context.
var (
	// ErrFinalizerPanicked wraps a recovered panic from a __finalize
	// call; RunOneFinalizer reports it through Log rather than
	// returning it, but it is exported so tests and embedders can match
	// on it in their own finalizer-caller implementations.
	ErrFinalizerPanicked = errors.New("gc: finalizer panicked")
)

// CheckInvariants runs a set of cheap structural sanity checks and
// returns a single combined error describing every violation found. It
// is a no-op unless DebugInvariants is set (spec.md 9 Open Question:
// invariant checks are compiled in unconditionally but gated at runtime
// by a field rather than a build tag, since this ships as a library
// with no single main package to carry a build-time switch). Embedders
// call this from their own test suites and debug builds; the collector
// itself never calls it.
func (c *Collector) CheckInvariants() error {
	if !c.DebugInvariants {
		return nil
	}
	var violations []string

	// I3: LiveCount is exactly the sum of the four list lengths, and
	// none of them can go negative.
	if c.allgc.len < 0 || c.finobj.len < 0 || c.tobefnz.len < 0 || c.fixedgc.len < 0 {
		violations = append(violations, "a global list has negative length")
	}

	// fixedgc objects are permanently gray and OLD; nothing should ever
	// repaint or re-age them (spec.md 3.3).
	c.fixedgc.forEach(func(o Object) {
		h := o.gcHeader()
		if !isGray(h) {
			violations = append(violations, "fixedgc object is not gray: "+o.Kind().String())
		}
		if getAge(h) != ageOld {
			violations = append(violations, "fixedgc object is not OLD: "+o.Kind().String())
		}
	})

	// I4: an object queued in tobefnz still carries FINALIZED, except
	// for the transient window inside RunOneFinalizer, which this check
	// cannot observe (it only runs between GCStep calls).
	c.tobefnz.forEach(func(o Object) {
		if !isFinalized(o.gcHeader()) {
			violations = append(violations, "tobefnz object missing FINALIZED: "+o.Kind().String())
		}
	})

	// I5: during CALL_FIN, every object still queued in tobefnz must be
	// reachable (the atomic procedure's mark_being_finalized pass is
	// responsible for this; here we only confirm none of them carry the
	// color that would make them collectable garbage).
	if c.phase == PhaseCallFin {
		c.tobefnz.forEach(func(o Object) {
			if isWhite(o.gcHeader()) {
				violations = append(violations, "tobefnz object is white during CALL_FIN: "+o.Kind().String())
			}
		})
	}

	if len(violations) == 0 {
		return nil
	}
	msg := "gc: invariant violations:"
	for _, v := range violations {
		msg += "\n  - " + v
	}
	return errors.New(msg)
}
