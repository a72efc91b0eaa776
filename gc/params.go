package gc

import (
	"os"
	"strconv"
)

// Params holds the collector's tunable knobs (spec.md 6). Defaults
// mirror the host's LUAI_GCPAUSE/LUAI_GCMUL/LUAI_GCSTEPSIZE family.
type Params struct {
	// Pause controls how long the collector waits, as a percentage of
	// live data, after finishing one cycle before starting the next.
	// 200 means "wait until the heap has doubled".
	Pause int64

	// StepMul is the memory-to-work ratio the incremental marker uses to
	// convert bytes allocated into marking work: 100 means 1x.
	StepMul int64

	// StepSize is expressed as a log2 byte count (default 13 -> 8 KiB)
	// per spec.md 6; stepSizeBytes derives the linear value.
	StepSize int64

	// MinorMul sets the minor-collection pause, analogous to Pause but
	// for the generational mode's young generation.
	MinorMul int64

	// MinorMajor is the percentage growth of the old generation that
	// triggers promotion from generational back to a major (incremental)
	// cycle.
	MinorMajor int64

	// MajorMinor is the inverse threshold: after a major collection, how
	// small the reclaimed fraction must be for generational mode to
	// remain in effect rather than reverting.
	MajorMinor int64
}

// DefaultParams matches LUAI_GCPAUSE=200, LUAI_GCMUL=100, a 13-bit
// step size, LUAI_GENMINORMUL=25, LUAI_GENMINORMAJOR=LUAI_GENMAJORMINOR=50.
func DefaultParams() Params {
	return Params{
		Pause:      200,
		StepMul:    100,
		StepSize:   13,
		MinorMul:   25,
		MinorMajor: 50,
		MajorMinor: 50,
	}
}

func (p Params) stepSizeBytes() int64 {
	return int64(1) << uint(p.StepSize)
}

// applyParam scales base by an integer percentage, matching the host's
// applygcparam macro: used wherever a tunable expresses "N percent of
// some object-count baseline" (spec.md 4.7.2 `check_minor_major`,
// `check_major_minor`).
func applyParam(param, base int64) int64 {
	return (base / 100) * param
}

// FromEnv overrides any field present as LUAGC_PAUSE, LUAGC_STEPMUL,
// LUAGC_STEPSIZE, LUAGC_MINORMUL, LUAGC_MINORMAJOR or LUAGC_MAJORMINOR,
// mirroring the host's readgogc reading of the GOGC environment variable.
func (p Params) FromEnv() Params {
	readInto := func(name string, dst *int64) {
		v, ok := os.LookupEnv(name)
		if !ok {
			return
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return
		}
		*dst = n
	}
	readInto("LUAGC_PAUSE", &p.Pause)
	readInto("LUAGC_STEPMUL", &p.StepMul)
	readInto("LUAGC_STEPSIZE", &p.StepSize)
	readInto("LUAGC_MINORMUL", &p.MinorMul)
	readInto("LUAGC_MINORMAJOR", &p.MinorMajor)
	readInto("LUAGC_MAJORMINOR", &p.MajorMinor)
	return p
}

// setPause computes the next debt threshold so that the collector does
// not restart until totalBytes reaches Pause percent of estimate (never
// less than estimate itself), matching the source's setpause/luaE_setdebt
// arithmetic (spec.md "Supplemented Features" 3). Callers pass
// totalBytes, which counts every byte handed to NewObject; sweeping does
// not subtract freed objects from it.
func (c *Collector) setPause(estimate int64) {
	threshold := (estimate / 100) * c.Params.Pause
	if threshold < estimate {
		threshold = estimate
	}
	debt := threshold - c.totalBytes
	if debt < 0 {
		debt = 0
	}
	c.debt = -debt
}

// setMinorDebt is setPause's generational-mode counterpart, scaled by
// MinorMul instead of Pause (spec.md 4.7.2).
func (c *Collector) setMinorDebt(estimate int64) {
	threshold := (estimate / 100) * c.Params.MinorMul
	if threshold < estimate {
		threshold = estimate
	}
	debt := threshold - c.totalBytes
	if debt < 0 {
		debt = 0
	}
	c.debt = -debt
}
