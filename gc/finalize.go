package gc

import "github.com/pkg/errors"

// CheckFinalizer is called by the embedder whenever a metatable
// carrying `__finalize` is assigned to obj (spec.md 4.4). If obj has
// not already been finalized and the collector is not in the middle of
// closing down, obj moves from allgc to finobj and is marked
// FINALIZED. If the active sweep cursor currently sits on obj, it is
// advanced first so the sweeper never dereferences a node that was
// just spliced out from under it.
func (c *Collector) CheckFinalizer(obj Object, mt *Table) {
	if mt == nil {
		return
	}
	if _, ok := mt.Hash["__finalize"]; !ok {
		return
	}
	h := obj.gcHeader()
	if isFinalized(h) {
		return
	}
	if c.stopReason&StopClosing != 0 {
		return
	}
	if c.sweepAllgc != nil && !c.sweepAllgc.done() && c.sweepAllgc.cur == obj {
		c.sweepAllgc.cur = h.next
	}
	c.allgc.remove(obj)
	setFinalized(h)
	c.finobj.pushFront(obj)
}

// SeparateTobefnz walks finobj — up to the first old-generation
// boundary, unless all is true — and moves every unreachable (or, when
// closing, every) finalizable object to the tail of tobefnz in the
// order encountered, preserving FIFO finalization order (spec.md 4.4,
// 5 ordering guarantee (b)).
func (c *Collector) SeparateTobefnz(all bool) int {
	stopAt := Object(nil)
	if c.mode == Generational && !all {
		stopAt = c.finobjRold
	}

	var prev Object
	var movedHead, movedTail Object
	count := 0
	cur := c.finobj.head
	for cur != nil && cur != stopAt {
		h := cur.gcHeader()
		next := h.next
		if all || isWhite(h) {
			if prev == nil {
				c.finobj.head = next
			} else {
				prev.gcHeader().next = next
			}
			h.next = nil
			c.finobj.len--
			if movedHead == nil {
				movedHead = cur
			} else {
				movedTail.gcHeader().next = cur
			}
			movedTail = cur
			count++
		} else {
			prev = cur
		}
		cur = next
	}
	if movedHead != nil {
		moved := objList{head: movedHead, len: count}
		c.tobefnz.appendTail(&moved)
	}
	return count
}

// MarkBeingFinalized marks every object currently queued in tobefnz,
// resurrecting them for this cycle (spec.md 4.7.1 step 9, invariant I5).
func (c *Collector) MarkBeingFinalized() {
	c.tobefnz.forEach(func(o Object) { markObject(c, o) })
}

// RunOneFinalizer dequeues the head of tobefnz, clears FINALIZED for
// the duration of the call (I4's transient exception), returns the
// object to the head of allgc, and invokes its finalizer in a
// protected call with further GC steps suspended (StopFinalizer is set
// for the duration of the call, so GCStep does nothing while it runs).
// Errors are reported through Log and swallowed; the collector always
// continues (spec.md 7.2).
func (c *Collector) RunOneFinalizer() {
	obj := c.tobefnz.popFront()
	if obj == nil {
		return
	}
	h := obj.gcHeader()
	clearFinalized(h)
	c.allgc.pushFront(obj)
	c.stopReason |= StopFinalizer
	err := c.invokeFinalizer(obj)
	setFinalized(h)
	c.stopReason &^= StopFinalizer
	if err != nil {
		c.Log.WithError(err).Warn("gc: finalizer error swallowed")
	}
}

func (c *Collector) invokeFinalizer(obj Object) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrFinalizerPanicked, "%v", r)
		}
	}()
	if c.finalizers == nil {
		return nil
	}
	return c.finalizers.CallFinalizer(obj)
}
