package machine

// markable is implemented by every heap-allocated Value kind via its
// embedded gcHeader. The collector keeps one list of every such object it
// has ever registered; a collect() pass marks everything still reachable
// from a root and drops the collector's own reference to the rest, which
// is enough for Go's real allocator to reclaim them on its own schedule.
// This machine never frees memory itself; it only decides, the way a
// bytecode VM with a real heap would, which objects are still live.
type markable interface {
	isMarked() bool
	mark()
	unmark()
}

func (h *gcHeader) isMarked() bool { return h.marked }
func (h *gcHeader) mark()          { h.marked = true }
func (h *gcHeader) unmark()        { h.marked = false }

// collector is the thread's bookkeeping GC: a flat list of every
// heap-allocated object still considered reachable as of the last
// collect(), plus a byte-budget heuristic deciding when to collect again.
// Interned strings are not tracked here: Thread.interns already holds
// them for the program's whole lifetime, so they need no mark/sweep.
type collector struct {
	th             *Thread
	all            []markable
	bytesAllocated int
	nextGC         int
}

// objectSize is a rough, fixed per-object accounting unit; this machine
// only needs the byte counter to decide when to collect, not to report
// precise memory use.
const objectSize = 48

const initialGCThreshold = 1 << 20

func newCollector(th *Thread) *collector {
	return &collector{th: th, nextGC: initialGCThreshold}
}

// register adds v to the set of tracked heap objects, triggering a
// collection first if the byte budget has been exceeded.
func (c *collector) register(v markable) {
	if c.bytesAllocated > c.nextGC {
		c.collect()
	}
	c.all = append(c.all, v)
	c.bytesAllocated += objectSize
}

func (c *collector) collect() {
	for _, o := range c.all {
		o.unmark()
	}
	c.th.markRoots()

	kept := c.all[:0]
	for _, o := range c.all {
		if o.isMarked() {
			kept = append(kept, o)
		}
	}
	c.all = kept
	c.bytesAllocated = len(c.all) * objectSize
	c.nextGC = c.bytesAllocated*2 + initialGCThreshold
}

// markRoots marks every Value directly reachable from the thread itself:
// the operand/locals stack, every active frame's closure (which in turn
// retains its captured cells), the globals table and the predeclared STL
// namespace.
func (th *Thread) markRoots() {
	for _, v := range th.stack {
		th.markValue(v)
	}
	for _, fr := range th.frames {
		th.markValue(fr.closure)
	}
	if th.Globals != nil {
		th.Globals.Each(func(_ *String, v Value) { th.markValue(v) })
	}
	if th.STL != nil {
		th.STL.Iter(func(_ string, v Value) bool {
			th.markValue(v)
			return false
		})
	}
}

// markValue marks v and, for the container kinds, everything it refers
// to. v may be nil or a non-heap kind (Nil, Bool, Number), in which case
// it is simply ignored.
func (th *Thread) markValue(v Value) {
	m, ok := v.(markable)
	if !ok || m.isMarked() {
		return
	}
	m.mark()
	switch v := v.(type) {
	case *Array:
		for _, it := range v.Items {
			th.markValue(it)
		}
	case *Closure:
		for _, up := range v.Upvalues {
			if up != nil {
				th.markValue(up)
			}
		}
	case *Cell:
		th.markValue(v.V)
	case *Instance:
		for _, f := range v.Fields {
			th.markValue(f)
		}
	case *Class:
		for _, method := range v.Methods {
			th.markValue(method)
		}
		for _, method := range v.Statics {
			th.markValue(method)
		}
	case *BoundMethod:
		th.markValue(v.Receiver)
		th.markValue(v.Method)
	}
}

// CollectGarbage forces an immediate collection. The interpreter never
// needs to call this itself (register() paces collections against the
// byte budget); it exists for tests and for a future `gc()` native.
func (th *Thread) CollectGarbage() { th.gc.collect() }
