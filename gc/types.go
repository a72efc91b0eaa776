package gc

// Value is any slot a collectable object may hold: a scalar (number,
// bool, nil — anything not implementing Object) or a reference to
// another heap object. The collector never special-cases scalars beyond
// "not collectable, always reachable trivially".
type Value = any

func valueObject(v Value) (Object, bool) {
	if v == nil {
		return nil, false
	}
	o, ok := v.(Object)
	return o, ok
}

// WeakMode mirrors a table metatable's __mode string.
type WeakMode uint8

const (
	WeakNone WeakMode = iota
	WeakValue
	WeakKey
	WeakBoth
)

// Table is a heterogeneous array+hash table, Lua-style. Its weakness is
// read from its metatable's __mode entry at traversal time, not cached,
// matching the source semantics (the mode can change if the metatable
// is mutated, though doing so mid-cycle is the embedder's problem).
type Table struct {
	Header
	Array     []Value
	Hash      map[Value]Value
	Metatable *Table
}

func NewTable() *Table {
	return &Table{Header: newHeader(KindTable), Hash: make(map[Value]Value)}
}

func (t *Table) gcHeader() *Header { return &t.Header }

func (t *Table) Mode() WeakMode {
	if t.Metatable == nil {
		return WeakNone
	}
	raw, ok := t.Metatable.Hash["__mode"]
	if !ok {
		return WeakNone
	}
	s, ok := raw.(string)
	if !ok {
		return WeakNone
	}
	hasK, hasV := false, false
	for _, r := range s {
		switch r {
		case 'k':
			hasK = true
		case 'v':
			hasV = true
		}
	}
	switch {
	case hasK && hasV:
		return WeakBoth
	case hasK:
		return WeakKey
	case hasV:
		return WeakValue
	default:
		return WeakNone
	}
}

// Userdata wraps an opaque payload plus zero or more GC-visible "user
// values" and an optional metatable.
type Userdata struct {
	Header
	Metatable  *Table
	UserValues []Value
	Data       []byte
}

func NewUserdata(nUser int) *Userdata {
	u := &Userdata{Header: newHeader(KindUserdata)}
	if nUser > 0 {
		u.UserValues = make([]Value, nUser)
	}
	return u
}

func (u *Userdata) gcHeader() *Header { return &u.Header }

// Upvalue is either open (aliasing a live slot on its owning thread's
// stack) or closed (holding its own value).
type Upvalue struct {
	Header
	Open   bool
	Owner  *Thread
	Index  int
	Closed Value
}

func NewOpenUpvalue(owner *Thread, index int) *Upvalue {
	return &Upvalue{Header: newHeader(KindUpvalue), Open: true, Owner: owner, Index: index}
}

func (u *Upvalue) gcHeader() *Header { return &u.Header }

// Get returns the upvalue's current referent.
func (u *Upvalue) Get() Value {
	if u.Open {
		return u.Owner.Stack[u.Index]
	}
	return u.Closed
}

// Close severs the upvalue from its owning thread's stack, copying the
// slot's current value in.
func (u *Upvalue) Close() {
	if !u.Open {
		return
	}
	u.Closed = u.Owner.Stack[u.Index]
	u.Open = false
	u.Owner = nil
}

// Proto is a function prototype: debug metadata plus nested constants
// and prototypes. Several slices may contain nil entries while the
// prototype is still being built.
type Proto struct {
	Header
	Source        *ShortString
	Constants     []Value
	UpvalueNames  []*ShortString
	Protos        []*Proto
	LocalVarNames []*ShortString
}

func NewProto() *Proto { return &Proto{Header: newHeader(KindProto)} }

func (p *Proto) gcHeader() *Header { return &p.Header }

// Closure is either "light" (a native/C-style closure with upvalues but
// no prototype) or "heavy" (a Lua-style closure with both).
type Closure struct {
	Header
	Light     bool
	Proto     *Proto
	Upvalues  []*Upvalue
}

func NewClosure(light bool) *Closure {
	return &Closure{Header: newHeader(KindClosure), Light: light}
}

func (c *Closure) gcHeader() *Header { return &c.Header }

// Thread represents a coroutine/VM state: a value stack plus the set of
// upvalues still open on it.
type Thread struct {
	Header
	Stack        []Value
	Top          int
	OpenUpvalues []*Upvalue
	// inTwups records membership in the collector's twups list (threads
	// with open upvalues that must be remarked every atomic phase).
	inTwups bool
}

func NewThread(stackCap int) *Thread {
	return &Thread{Header: newHeader(KindThread), Stack: make([]Value, stackCap)}
}

func (t *Thread) gcHeader() *Header { return &t.Header }

// ShortString is interned: two ShortStrings with equal bytes are the
// same object (see package intern).
type ShortString struct {
	Header
	Bytes string
	Hash  uint32
	// bucketNext links this string into the interner's hash-chain,
	// independent of the GC's own next/gcList links.
	bucketNext *ShortString
}

func NewShortString(bytes string, hash uint32) *ShortString {
	return &ShortString{Header: newHeader(KindShortString), Bytes: bytes, Hash: hash}
}

func (s *ShortString) gcHeader() *Header { return &s.Header }

// BucketNext and SetBucketNext expose the interner's own chain link to
// package intern, which lives outside gc and so cannot reach the
// unexported field directly.
func (s *ShortString) BucketNext() *ShortString     { return s.bucketNext }
func (s *ShortString) SetBucketNext(n *ShortString) { s.bucketNext = n }

// LongString is never interned; its hash is computed lazily.
type LongString struct {
	Header
	Bytes  string
	hashed bool
	hash   uint64
}

func NewLongString(s string) *LongString {
	return &LongString{Header: newHeader(KindLongString), Bytes: s}
}

func (s *LongString) gcHeader() *Header { return &s.Header }

func (s *LongString) Hash() uint64 {
	if !s.hashed {
		s.hash = fnv1a(s.Bytes)
		s.hashed = true
	}
	return s.hash
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
