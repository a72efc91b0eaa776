// Package gc implements the tri-color, write-barriered garbage collector
// core of a dynamic-language runtime. It supports two interchangeable
// modes, incremental mark-sweep and generational, over a heterogeneous
// graph of table, closure, prototype, thread, userdata, upvalue and
// string objects.
//
// The collector is a single owned value (*Collector); there is no
// process-wide global state. Objects participate in the collector's
// intrusive lists via an embedded Header, following the same pattern
// the host runtime uses for its own span and object free-lists: a
// `next` pointer spliced in place rather than a slice- or map-backed
// container.
package gc

import "github.com/google/uuid"

// Kind discriminates the closed set of object types the collector knows
// how to trace. It plays the role of the runtime's type_tag.
type Kind uint8

const (
	KindShortString Kind = iota
	KindLongString
	KindTable
	KindUserdata
	KindClosure
	KindProto
	KindThread
	KindUpvalue
)

func (k Kind) String() string {
	switch k {
	case KindShortString:
		return "short-string"
	case KindLongString:
		return "long-string"
	case KindTable:
		return "table"
	case KindUserdata:
		return "userdata"
	case KindClosure:
		return "closure"
	case KindProto:
		return "proto"
	case KindThread:
		return "thread"
	case KindUpvalue:
		return "upvalue"
	default:
		return "kind?"
	}
}

// color is one of WHITE0, WHITE1, GRAY or BLACK (spec.md 3.1). Two whites
// alternate each cycle so that "the other white" identifies condemned
// objects at sweep time without a separate liveness bit.
type color uint8

const (
	white0 color = iota
	white1
	gray
	black
)

// age tracks generational promotion (spec.md 3.1); in incremental mode
// every non-fixed object stays ageNew and fixed objects stay ageOld.
type age uint8

const (
	ageNew age = iota
	ageSurvival
	ageOld0
	ageOld1
	ageOld
	ageTouched1
	ageTouched2
)

// flags packs the sticky, list-independent bits of an object's state.
type flags uint8

const (
	flagFinalized flags = 1 << iota
)

// marked packs color (2 bits), age (3 bits) and flags (3 bits) into a
// single byte, mirroring the host runtime's single "marked" field so a
// color or age flip never touches unrelated state.
type marked uint8

const (
	colorMask = 0x3
	ageShift  = 2
	ageMask   = 0x7 << ageShift
	flagShift = 5
)

func packMarked(c color, a age, f flags) marked {
	return marked(uint8(c)&colorMask | (uint8(a)<<ageShift)&ageMask | uint8(f)<<flagShift)
}

func (m marked) color() color { return color(uint8(m) & colorMask) }
func (m marked) age() age     { return age((uint8(m) & ageMask) >> ageShift) }
func (m marked) flags() flags { return flags(uint8(m) >> flagShift) }

// Header is the common prefix every collectable object embeds. It
// supplies the intrusive `next` link used by the global object lists
// (allgc/finobj/tobefnz/fixedgc) and a second `gcList` link used only by
// types that can be gray (tables, closures, threads, prototypes, and
// userdata with more than zero user values) to thread the gray,
// grayagain, weak, ephemeron and allweak work-lists.
type Header struct {
	kind   Kind
	m      marked
	next   Object
	gcList Object
	id     uuid.UUID
}

// ID returns a debug identifier, stable for the object's lifetime.
// Never consulted by the collector itself — see Design Notes on keeping
// marking logic independent of anything but pointer identity.
func (h *Header) ID() uuid.UUID { return h.id }

func (h *Header) Kind() Kind { return h.kind }

func newHeader(k Kind) Header {
	return Header{kind: k, id: uuid.New()}
}

// Object is implemented by every collectable type. Traverse visits the
// object's outgoing references, shading or enqueueing them as
// appropriate, and returns a work estimate (roughly: 1 + number of
// fields visited) used to pace incremental steps.
type Object interface {
	gcHeader() *Header
	Kind() Kind
	Traverse(c *Collector) int64
}

func isWhite(h *Header) bool {
	c := h.m.color()
	return c == white0 || c == white1
}

func isGray(h *Header) bool { return h.m.color() == gray }
func isBlack(h *Header) bool { return h.m.color() == black }

// isDead reports whether o carries the color that is "the other white"
// this cycle: an object of that color at sweep time is unreachable.
func isDead(c *Collector, h *Header) bool {
	return h.m.color() == c.otherWhite
}

func setColor(h *Header, col color) {
	h.m = packMarked(col, h.m.age(), h.m.flags())
}

func setAge(h *Header, a age) {
	h.m = packMarked(h.m.color(), a, h.m.flags())
}

func getAge(h *Header) age { return h.m.age() }

func setFinalized(h *Header) {
	h.m = packMarked(h.m.color(), h.m.age(), h.m.flags()|flagFinalized)
}

func clearFinalized(h *Header) {
	h.m = packMarked(h.m.color(), h.m.age(), h.m.flags() & ^flagFinalized)
}

func isFinalized(h *Header) bool { return h.m.flags()&flagFinalized != 0 }

// makeWhite paints o the current white, used when the incremental
// sweeper resets a survivor and when enterIncremental repaints a
// generational heap.
func makeWhite(c *Collector, h *Header) {
	setColor(h, c.currentWhite)
}
