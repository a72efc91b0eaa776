package gc

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mode selects between the two interchangeable collection strategies
// (spec.md 1, 4.7.2).
type Mode uint8

const (
	Incremental Mode = iota
	Generational
)

func (m Mode) String() string {
	if m == Generational {
		return "generational"
	}
	return "incremental"
}

// Phase is a state in the incremental mode controller's state machine
// (spec.md 4.7).
type Phase uint8

const (
	PhasePause Phase = iota
	PhasePropagate
	PhaseEnterAtomic
	PhaseSweepAllgc
	PhaseSweepFinobj
	PhaseSweepTobefnz
	PhaseSweepEnd
	PhaseCallFin
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhasePropagate:
		return "propagate"
	case PhaseEnterAtomic:
		return "enter-atomic"
	case PhaseSweepAllgc:
		return "sweep-allgc"
	case PhaseSweepFinobj:
		return "sweep-finobj"
	case PhaseSweepTobefnz:
		return "sweep-tobefnz"
	case PhaseSweepEnd:
		return "sweep-end"
	case PhaseCallFin:
		return "call-fin"
	default:
		return "phase?"
	}
}

// StopReason tracks why gc_step/full_gc must not start a new cycle,
// mirroring the host's GCSTP bit flags (spec.md "Supplemented Features" 2):
// the collector can be stopped for more than one reason at once, and
// must not resume until every reason has cleared.
type StopReason uint8

const (
	StopUser StopReason = 1 << iota
	StopFinalizer
	StopClosing
)

// RootMarker is supplied by the embedding runtime; MarkRoots is called
// at the start of every cycle (PAUSE) and must shade every object the
// collector should treat as a root: the running thread(s), the global
// registry, and the base metatables for primitive types. The interpreter
// and object catalog are out of scope for this module (spec.md 1) — this
// is the single seam between them and the collector.
type RootMarker interface {
	MarkRoots(c *Collector)
}

// FinalizerCaller invokes a finalizable object's __finalize metamethod.
// Supplied by the embedding interpreter (spec.md 1, out of scope).
type FinalizerCaller interface {
	CallFinalizer(obj Object) error
}

// StringCache is implemented by the string interner (package intern) so
// the atomic procedure's final step can clear its weak API cache without
// this package importing that one.
type StringCache interface {
	ClearWeakCache(isWhite func(Object) bool)
	ShrinkIfSparse()
}

// Collector is the entire mutable state of the garbage collector: every
// list, counter, parameter and the current-white bit. Per the Design
// Notes, it is a single owned value passed explicitly rather than
// process-wide statics, so an embedder can run more than one independent
// heap (e.g. isolated interpreter instances) in the same process.
type Collector struct {
	Log    logrus.FieldLogger
	Params Params

	mode  Mode
	phase Phase

	currentWhite color
	otherWhite   color

	allgc   objList
	finobj  objList
	tobefnz objList
	fixedgc objList

	gray      grayList
	grayagain grayList
	weak      grayList
	ephemeron grayList
	allweak   grayList

	// generational age-stratum boundaries within allgc/finobj: reallyOld
	// (finobjRold) is the first object already proven fully OLD, and
	// firstOld1 is the first object that reached OLD1 last cycle and
	// still needs promoting to OLD before this cycle's sweep runs.
	// allgc/finobj are maintained sorted newest-first, oldest-last
	// (spec.md 3.2).
	reallyOld, firstOld1 Object
	finobjRold           Object

	// gcMajorMinor is the marked-object count recorded at the last
	// major<->minor transition (the host's GCmajorminor): the baseline
	// checkMinorMajor/checkMajorMinor scale their thresholds from.
	gcMajorMinor int64
	// addedOld1 counts objects promoted to ageOld1 during the sweep of
	// the young collection currently in progress.
	addedOld1 int64

	marked     int64
	debt       int64
	totalBytes int64

	stopReason StopReason
	emergency  bool

	roots        RootMarker
	finalizers   FinalizerCaller
	strings      StringCache
	freeObserver FreeObserver

	// twups: threads with open upvalues, consulted by remark_upvals
	// during the atomic procedure (spec.md 4.7.1 step 4).
	twups []*Thread

	// sweep cursor state, carried across SWEEP_* phase ticks.
	sweepAllgc   *sweepCursor
	sweepFinobj  *sweepCursor
	sweepTobefnz *sweepCursor

	DebugInvariants bool
}

// New creates a Collector ready to run in the given mode.
func New(mode Mode, log logrus.FieldLogger) *Collector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Collector{
		Log:          log,
		Params:       DefaultParams(),
		mode:         mode,
		phase:        PhasePause,
		currentWhite: white0,
		otherWhite:   white1,
	}
	return c
}

func (c *Collector) Mode() Mode   { return c.mode }
func (c *Collector) Phase() Phase { return c.phase }

func (c *Collector) SetRoots(r RootMarker)           { c.roots = r }
func (c *Collector) SetFinalizerCaller(f FinalizerCaller) { c.finalizers = f }
func (c *Collector) SetStringCache(s StringCache)    { c.strings = s }

// NewObject debits GCdebt, links o to the head of allgc painted the
// current white, and returns it. The embedder calls this immediately
// after the allocator constructs o (spec.md 6 `new_object`).
func (c *Collector) NewObject(o Object, size int64) Object {
	h := o.gcHeader()
	setColor(h, c.currentWhite)
	setAge(h, ageNew)
	c.allgc.pushFront(o)
	c.debt += size
	c.totalBytes += size
	return o
}

// FixObject moves the current head of allgc into fixedgc, permanently
// gray and OLD: it will never be traversed or collected (spec.md 3.3,
// 6 `fix_object`). The caller guarantees o is that head.
func (c *Collector) FixObject(o Object) error {
	if c.allgc.head != o {
		return errors.New("gc: FixObject requires obj to be the current allgc head")
	}
	c.allgc.popFront()
	h := o.gcHeader()
	setColor(h, gray)
	setAge(h, ageOld)
	c.fixedgc.pushFront(o)
	return nil
}

// LiveCount returns |allgc| + |finobj| + |tobefnz| + |fixedgc| (I3).
func (c *Collector) LiveCount() int {
	return c.allgc.len + c.finobj.len + c.tobefnz.len + c.fixedgc.len
}

// ResurrectIfDead repaints o the current white if it currently carries
// the color condemned this cycle (the other white) but has not yet been
// swept. The string interner calls this on every successful lookup,
// since a string found alive in the intern table but not yet reachable
// from any root this cycle would otherwise be reclaimed out from under
// the mutator that just asked for it (spec.md 4.8, the interner's
// resurrection-on-lookup rule).
func (c *Collector) ResurrectIfDead(o Object) {
	h := o.gcHeader()
	if isDead(c, h) {
		setColor(h, c.currentWhite)
	}
}
