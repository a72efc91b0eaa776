package gc

// markObject is the shading routine ("reallymarkobject" in the source
// this was ported from): the first time a white object is reached, it
// is colored and, for types with children, linked into gray for later
// traversal by propagateOne. Strings have no children and go straight
// to black; userdata with no user values only need their metatable
// marked so they also go black immediately; open upvalues are kept
// gray without being linked anywhere; everything else is queued.
func markObject(c *Collector, o Object) {
	if o == nil {
		return
	}
	h := o.gcHeader()
	if !isWhite(h) {
		return
	}
	c.marked++
	switch o.Kind() {
	case KindShortString, KindLongString:
		setColor(h, black)
	case KindUpvalue:
		up := o.(*Upvalue)
		if up.Open {
			setColor(h, gray)
		} else {
			setColor(h, black)
		}
		markValue(c, up.Get())
	case KindUserdata:
		ud := o.(*Userdata)
		if len(ud.UserValues) == 0 {
			if ud.Metatable != nil {
				markObject(c, ud.Metatable)
			}
			setColor(h, black)
		} else {
			setColor(h, gray)
			c.gray.push(o)
		}
	default: // Table, Closure, Proto, Thread
		setColor(h, gray)
		c.gray.push(o)
	}
}

// MarkRoot shades o as reachable from outside the object graph the
// collector itself owns. A RootMarker implementation calls this once
// per root object during the PAUSE->PROPAGATE transition (spec.md 4.7).
func (c *Collector) MarkRoot(o Object) { markObject(c, o) }

func markValue(c *Collector, v Value) {
	if o, ok := valueObject(v); ok {
		markObject(c, o)
	}
}

// clearable reports whether v should be treated as weakly clearable:
// a collectable, still-white reference. Strings are deliberately
// excluded (spec.md 4.2 "strings count as non-collectable values for
// this check") — interning means a weak table never needs to release a
// string early to make progress.
func clearable(v Value) bool {
	o, ok := valueObject(v)
	if !ok {
		return false
	}
	switch o.Kind() {
	case KindShortString, KindLongString:
		return false
	default:
		return isWhite(o.gcHeader())
	}
}

func isWhiteValue(v Value) bool {
	o, ok := valueObject(v)
	return ok && isWhite(o.gcHeader())
}

// propagateOne dequeues the head of gray, paints it black and traverses
// its outgoing references. Traversal of a weak table may re-link it
// into grayagain/weak/ephemeron/allweak even though it is now colored
// black — color and gray-list membership are orthogonal here, exactly
// as in the source this was ported from.
func (c *Collector) propagateOne() bool {
	o := c.gray.pop()
	if o == nil {
		return false
	}
	setColor(o.gcHeader(), black)
	o.Traverse(c)
	return true
}

func (c *Collector) propagateAll() {
	for c.propagateOne() {
	}
}

// --- per-type traversal, dispatched from Object.Traverse ---

func (t *Table) Traverse(c *Collector) int64 { return c.traverseTable(t) }

func (c *Collector) traverseTable(t *Table) int64 {
	if t.Metatable != nil {
		markObject(c, t.Metatable)
	}
	switch t.Mode() {
	case WeakValue:
		return c.traverseWeakValue(t)
	case WeakKey:
		n, _ := c.traverseEphemeron(t)
		return n
	case WeakBoth:
		c.allweak.push(t)
		return 1
	default:
		return c.traverseStrongTable(t)
	}
}

// traverseArray marks every non-nil, still-white array slot and reports
// whether anything new was marked.
func (c *Collector) traverseArray(t *Table) bool {
	marked := false
	for _, v := range t.Array {
		if o, ok := valueObject(v); ok && isWhite(o.gcHeader()) {
			markObject(c, o)
			marked = true
		}
	}
	return marked
}

func (c *Collector) traverseStrongTable(t *Table) int64 {
	c.traverseArray(t)
	for k, v := range t.Hash {
		markValue(c, k)
		markValue(c, v)
	}
	c.genLink(t)
	return int64(1 + len(t.Array) + 2*len(t.Hash))
}

func (c *Collector) traverseWeakValue(t *Table) int64 {
	hasClears := len(t.Array) > 0
	for k, v := range t.Hash {
		markValue(c, k) // keys are strong even in a weak-value table
		if clearable(v) {
			hasClears = true
		}
	}
	if c.phase == PhaseEnterAtomic && hasClears {
		c.weak.push(t)
	} else {
		c.grayagain.push(t)
	}
	return int64(1 + len(t.Hash))
}

// traverseEphemeron traverses a weak-key table, returning the work
// estimate and whether anything new was shaded (used by
// convergeEphemerons to detect a fixed point). Direction-alternation
// (a chain-convergence speedup in the source's open-addressed hash) has
// no analogue over a Go map, whose iteration order is unspecified
// already, and is therefore omitted without affecting correctness.
func (c *Collector) traverseEphemeron(t *Table) (int64, bool) {
	hasClears := false
	hasWW := false
	marked := c.traverseArray(t)
	for k, v := range t.Hash {
		if clearable(k) {
			hasClears = true
			if isWhiteValue(v) {
				hasWW = true
			}
		} else if isWhiteValue(v) {
			markValue(c, v)
			marked = true
		}
	}
	switch {
	case c.phase == PhasePropagate:
		c.grayagain.push(t)
	case hasWW:
		c.ephemeron.push(t)
	case hasClears:
		c.allweak.push(t)
	default:
		c.genLink(t)
	}
	return int64(1 + len(t.Array) + 2*len(t.Hash)), marked
}

func (u *Userdata) Traverse(c *Collector) int64 { return c.traverseUserdata(u) }

func (c *Collector) traverseUserdata(u *Userdata) int64 {
	if u.Metatable != nil {
		markObject(c, u.Metatable)
	}
	for _, v := range u.UserValues {
		markValue(c, v)
	}
	c.genLink(u)
	return int64(1 + len(u.UserValues))
}

func (p *Proto) Traverse(c *Collector) int64 { return c.traverseProto(p) }

func (c *Collector) traverseProto(p *Proto) int64 {
	if p.Source != nil {
		markObject(c, p.Source)
	}
	for _, k := range p.Constants {
		markValue(c, k)
	}
	for _, n := range p.UpvalueNames {
		if n != nil {
			markObject(c, n)
		}
	}
	for _, np := range p.Protos {
		if np != nil {
			markObject(c, np)
		}
	}
	for _, n := range p.LocalVarNames {
		if n != nil {
			markObject(c, n)
		}
	}
	return int64(1 + len(p.Constants) + len(p.UpvalueNames) + len(p.Protos) + len(p.LocalVarNames))
}

func (cl *Closure) Traverse(c *Collector) int64 { return c.traverseClosure(cl) }

func (c *Collector) traverseClosure(cl *Closure) int64 {
	if !cl.Light && cl.Proto != nil {
		markObject(c, cl.Proto)
	}
	for _, uv := range cl.Upvalues {
		if uv != nil {
			markObject(c, uv)
		}
	}
	return int64(1 + len(cl.Upvalues))
}

func (th *Thread) Traverse(c *Collector) int64 { return c.traverseThread(th) }

func (c *Collector) traverseThread(th *Thread) int64 {
	if getAge(&th.Header) >= ageOld0 || c.phase == PhasePropagate {
		c.grayagain.push(th)
	}
	for i := 0; i < th.Top && i < len(th.Stack); i++ {
		markValue(c, th.Stack[i])
	}
	for _, uv := range th.OpenUpvalues {
		markObject(c, uv)
	}
	if c.phase == PhaseEnterAtomic {
		if !c.emergency {
			shrinkStack(th)
		}
		for i := th.Top; i < len(th.Stack); i++ {
			th.Stack[i] = nil
		}
		if !th.inTwups && len(th.OpenUpvalues) > 0 {
			th.inTwups = true
			c.twups = append(c.twups, th)
		}
	}
	return int64(1 + th.Top)
}

// shrinkStack trims a thread's stack back towards its live size. Not
// precise (no frame-by-frame accounting, out of scope per spec.md 1) —
// just bounds unbounded growth the way the source's luaD_shrinkstack
// bounds it.
func shrinkStack(th *Thread) {
	want := th.Top + 16
	if cap(th.Stack) > want*2 {
		ns := make([]Value, want)
		copy(ns, th.Stack[:th.Top])
		th.Stack = ns
	}
}

func (s *ShortString) Traverse(c *Collector) int64 { return 1 }
func (s *LongString) Traverse(c *Collector) int64  { return 1 }

func (u *Upvalue) Traverse(c *Collector) int64 {
	// Reached only if an open upvalue is ever linked into gray, which
	// markObject never does; present for interface completeness.
	markValue(c, u.Get())
	return 1
}

// genLink checks whether a just-blackened object should be kept
// reachable for the collector to revisit: TOUCHED1 objects (touched by
// a back-barrier this cycle) go back into grayagain; TOUCHED2 objects
// simply age into OLD (spec.md 4.5, 4.7.2).
func (c *Collector) genLink(o Object) {
	if c.mode != Generational {
		return
	}
	h := o.gcHeader()
	switch getAge(h) {
	case ageTouched1:
		c.grayagain.push(o)
	case ageTouched2:
		setAge(h, ageOld)
	}
}

// convergeEphemerons repeatedly re-traverses the ephemeron list until a
// full pass marks nothing new (spec.md 4.2). Once stable, any table
// still carrying an unresolved white-key/white-value pair has its dead
// keys cleared outright: the C implementation this was ported from can
// leave such a slot as an inert tombstone because the key's backing
// memory is managed independently of the table, but a Go map holds a
// live reference to its key for as long as the entry exists, so leaving
// it in place would keep the "collected" key reachable from Go's own
// perspective forever (spec.md "Supplemented Features" — noted deviation
// required by the map-based Table representation).
func (c *Collector) convergeEphemerons() {
	for {
		changed := false
		cur := c.ephemeron.detach()
		for cur != nil {
			next := cur.gcHeader().gcList
			cur.gcHeader().gcList = nil
			t := cur.(*Table)
			_, marked := c.traverseEphemeron(t)
			if marked {
				changed = true
			}
			cur = next
		}
		if !changed {
			c.clearByKeys(&c.ephemeron)
			return
		}
		c.propagateAll()
	}
}

// clearByValues empties every array/hash entry of every table in list
// whose value is clearable, stopping before stopAt (used to avoid
// re-clearing tables already handled by an earlier pass in the same
// atomic procedure).
func (c *Collector) clearByValues(list *grayList, stopAt Object) {
	cur := list.head
	for cur != nil && cur != stopAt {
		t := cur.(*Table)
		for i, v := range t.Array {
			if clearable(v) {
				t.Array[i] = nil
			}
		}
		for k, v := range t.Hash {
			if clearable(v) {
				delete(t.Hash, k)
			}
		}
		cur = cur.gcHeader().gcList
	}
}

// clearByKeys empties every hash entry whose key is unmarked.
func (c *Collector) clearByKeys(list *grayList) {
	cur := list.head
	for cur != nil {
		t := cur.(*Table)
		for k := range t.Hash {
			if o, ok := valueObject(k); ok && isWhite(o.gcHeader()) {
				delete(t.Hash, k)
			}
		}
		cur = cur.gcHeader().gcList
	}
}

// remarkUpvals simulates a missed barrier for threads that were not
// revisited during propagation: any thread that ended the cycle white,
// or that has no open upvalues left, has its already-gray upvalues'
// values marked directly and is dropped from twups (spec.md 4.7.1 step 4).
func (c *Collector) remarkUpvals() {
	kept := c.twups[:0]
	for _, th := range c.twups {
		if isWhite(&th.Header) || len(th.OpenUpvalues) == 0 {
			th.inTwups = false
			for _, uv := range th.OpenUpvalues {
				if isGray(&uv.Header) {
					markValue(c, uv.Get())
				}
			}
			continue
		}
		kept = append(kept, th)
	}
	c.twups = kept
}
