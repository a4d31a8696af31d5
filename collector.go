package ebr

/*
Collector is the coordinator of the reclamation scheme: one global epoch,
three bag-stacks (one per epoch slot), and the roster of participant flags.

Registering a Handle is one stack push. Pinning announces the participant's
current epoch on its flag and returns a Guard. Retiring a payload parks it in
the Handle's private bag; once that bag fills, it migrates into the
collector's bag-stack for the guard's epoch, and the migrating goroutine
makes one opportunistic attempt to advance the global epoch:

 1. Push the full bag onto bags[guard.epoch]. Safe unconditionally: the
    epoch can only move past guard.epoch once every participant has left it,
    so parking garbage there never races a drain of that same slot.
 2. Try to claim the roster (TryOwn). A contended attempt just returns:
    reclamation is throttled to one drainer at a time, never awaited.
 3. If claimed, scan every flag on the roster. If any reads flagOf(prev(E)),
    a straggler is still observing the epoch about to be reclaimed, so stop:
    bags[prev(E)] is untouched this pass.
 4. Otherwise every payload in bags[prev(E)] is destroyed (Destroyer.Destroy
    where implemented) and the bag-stack is emptied.
 5. The global epoch advances to next(E). Future pins announce flagOf(next(E));
    bags[prev(next(E))], i.e. bags[E], becomes the next drain target.
*/
type Collector[T any] struct {
	epoch atomicEpoch
	bags  [numEpochs]Stack[bag[T]]
	flags Stack[atomicFlag]
	cap   int
}

// NewCollector constructs a Collector whose participants batch up to cap
// retired payloads per bag before migrating. cap must be at least 1.
func NewCollector[T any](cap int) *Collector[T] {
	if cap < 1 {
		panic("ebr: cap must be at least 1")
	}
	c := &Collector[T]{cap: cap}
	c.epoch.store(Epoch0)
	return c
}

// Register adds a new participant to the roster and returns a Handle bound
// to it. The new flag always starts Unpinned. Handles must not outlive the
// Collector that registered them.
func (c *Collector[T]) Register() *Handle[T] {
	flag := c.flags.Push(newAtomicFlag())
	return &Handle[T]{
		bag:    newBag[T](c.cap),
		flag:   flag,
		global: c,
	}
}

// Close drains every bag-stack and the roster, destroying every payload
// still resident in a bag-stack (via Destroyer, where implemented) and
// returning how many payloads it drained. Payloads still in a Handle's
// private bag, not yet migrated by Retire or Flush, are not reached. A
// Collector must not be closed while any Handle it spawned is still in use.
func (c *Collector[T]) Close() (destroyed int) {
	for i := range c.bags {
		for {
			b, ok := c.bags[i].Pop()
			if !ok {
				break
			}
			destroyed += b.destroyAll()
		}
	}
	c.flags.Drain()
	return destroyed
}

// migrate is the reclamation protocol described in the type doc comment.
func (c *Collector[T]) migrate(g *Guard, full *bag[T]) {
	c.bags[g.epoch].Push(*full)

	sg, ok := c.flags.TryOwn()
	if !ok {
		return
	}
	defer sg.Release()

	e := c.epoch.load()
	pe := e.prev()

	for flag := range c.flags.SnapshotIterate(sg) {
		if flag.load() == flagOf(pe) {
			// A straggler is still observing pe: nothing may be reclaimed
			// this pass.
			return
		}
	}

	for {
		b, ok := c.bags[pe].Pop()
		if !ok {
			break
		}
		b.destroyAll()
	}

	c.epoch.compareAndSwap(e.next())
}

// Handle is a single participant's view of a Collector: one borrowed flag
// slot on the roster, one private bag, and a reference back to the
// Collector. Non-reentrant: pinning twice on the same Handle without an
// intervening Unpin is a programmer error.
type Handle[T any] struct {
	bag    *bag[T]
	flag   *atomicFlag
	global *Collector[T]
}

// Guard is the scoped token returned by Pin: proof that its Handle is
// currently announcing the epoch it captured at creation. Call Unpin when
// done observing shared data (typically via defer), or use Handle.Pinned.
type Guard struct {
	epoch    Epoch
	flag     *atomicFlag
	unpinned bool
}

// Pin announces the participant as observing the current global epoch and
// returns a Guard capturing it. Pinning a Handle that is already pinned
// panics: reentrant pins are not supported.
func (h *Handle[T]) Pin() *Guard {
	if h.flag.load() != Unpinned {
		panic("ebr: handle already pinned")
	}
	e := h.global.epoch.load()
	h.flag.compareAndSwap(Unpinned, flagOf(e))
	// Publishing the flag here happens-before any subsequent read of shared
	// data the participant performs under the returned guard.
	return &Guard{epoch: e, flag: h.flag}
}

// Unpin releases the guard, announcing the participant as Unpinned again.
// Safe to call more than once; only the first call has an effect.
func (g *Guard) Unpin() {
	if g.unpinned {
		return
	}
	g.flag.store(Unpinned)
	g.unpinned = true
}

// Epoch reports the epoch this guard captured at Pin time.
func (g *Guard) Epoch() Epoch {
	return g.epoch
}

// Pinned runs fn while pinned, always unpinning afterward, including if fn
// panics. Convenience wrapper around Pin/Unpin for callers who don't need
// the guard to outlive a single call.
func (h *Handle[T]) Pinned(fn func(g *Guard)) {
	g := h.Pin()
	defer g.Unpin()
	fn(g)
}

// Retire transfers ownership of payload to the engine under the epoch g
// captured at Pin time. If the Handle's bag becomes full, it is swapped out
// for an empty one and migrated to the collector, which makes one
// opportunistic attempt to advance the global epoch.
func (h *Handle[T]) Retire(g *Guard, payload T) {
	h.bag.push(payload)
	if !h.bag.full() {
		return
	}
	full := h.bag
	h.bag = newBag[T](h.global.cap)
	h.global.migrate(g, full)
}

// Flush forces the Handle's current bag to migrate immediately, regardless
// of whether it is full. An empty bag is not migrated, so Flush then does
// nothing, not even a reclamation attempt. A participant that never fills a bag never triggers
// reclamation on its own; Flush gives callers a way to bound how long their
// own garbage can sit unreclaimed.
func (h *Handle[T]) Flush(g *Guard) {
	if h.bag.len() == 0 {
		return
	}
	full := h.bag
	h.bag = newBag[T](h.global.cap)
	h.global.migrate(g, full)
}
