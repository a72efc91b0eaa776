package gc

// objList is an intrusive singly-linked list threaded through each
// object's Header.next field. It backs the global object lists (allgc,
// finobj, tobefnz, fixedgc). Splicing is O(1) at the head and during a
// forward walk (sweep); arbitrary removal (used only by finalizer
// promotion) walks the list once, exactly as the host runtime's own
// free-list code does when it needs to pull an element out of the
// middle of a chain.
type objList struct {
	head Object
	len  int
}

func (l *objList) empty() bool { return l.head == nil }

func (l *objList) pushFront(o Object) {
	h := o.gcHeader()
	h.next = l.head
	l.head = o
	l.len++
}

func (l *objList) popFront() Object {
	o := l.head
	if o == nil {
		return nil
	}
	h := o.gcHeader()
	l.head = h.next
	h.next = nil
	l.len--
	return o
}

// remove unlinks target from anywhere in the list. Reports whether it
// was found.
func (l *objList) remove(target Object) bool {
	var prev Object
	cur := l.head
	for cur != nil {
		if cur == target {
			h := cur.gcHeader()
			if prev == nil {
				l.head = h.next
			} else {
				prev.gcHeader().next = h.next
			}
			h.next = nil
			l.len--
			return true
		}
		prev = cur
		cur = cur.gcHeader().next
	}
	return false
}

// appendTail splices other onto the tail of l in O(len(l)) time and
// empties other. Used by separate_tobefnz, which appends to a FIFO.
func (l *objList) appendTail(other *objList) {
	if other.head == nil {
		return
	}
	if l.head == nil {
		l.head = other.head
		l.len = other.len
		other.head, other.len = nil, 0
		return
	}
	cur := l.head
	for cur.gcHeader().next != nil {
		cur = cur.gcHeader().next
	}
	cur.gcHeader().next = other.head
	l.len += other.len
	other.head, other.len = nil, 0
}

func (l *objList) forEach(fn func(Object)) {
	for cur := l.head; cur != nil; cur = cur.gcHeader().next {
		fn(cur)
	}
}

// grayList is the analogous intrusive list threaded through Header.gcList,
// used for the gray/grayagain/weak/ephemeron/allweak work-lists.
type grayList struct {
	head Object
}

func (g *grayList) empty() bool { return g.head == nil }

func (g *grayList) push(o Object) {
	h := o.gcHeader()
	h.gcList = g.head
	g.head = o
}

func (g *grayList) pop() Object {
	o := g.head
	if o == nil {
		return nil
	}
	h := o.gcHeader()
	g.head = h.gcList
	h.gcList = nil
	return o
}

// detach removes and returns the whole chain, leaving g empty.
func (g *grayList) detach() Object {
	h := g.head
	g.head = nil
	return h
}

// attach replaces the contents of g with the chain rooted at o.
func (g *grayList) attach(o Object) { g.head = o }

func (g *grayList) forEach(fn func(Object)) {
	for cur := g.head; cur != nil; cur = cur.gcHeader().gcList {
		fn(cur)
	}
}
