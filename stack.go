package ebr

import (
	"iter"
	"sync/atomic"
)

/*
Stack is a lock-free, singly-linked Treiber stack. It backs both the global
roster of participant flags and the three epoch bag-stacks, the one piece
of shared infrastructure the whole reclamation scheme sits on.

- Push CAS-loops a new node onto head and returns a stable pointer to the
  stored value, good for the stack's own lifetime. That stability is why the
  roster works at all: a Handle holds a raw pointer into a node nobody else
  will ever move or relocate.
- Pop CAS-loops head to head.next and hands back the popped value. Every
  Push allocates a fresh node, and the garbage collector keeps a popped node
  alive while any goroutine still references it, so a node is never recycled
  underneath a concurrent Pop. Callers keep pop apart from snapshot iteration
  of the *same* stack: the roster is popped only by Collector.Close at
  teardown, and the bag-stacks are popped only by Collector.Close or from
  inside a goroutine that has just won TryOwn on the *roster*, which makes it
  the sole drainer for that bag-stack at that moment, so draining there never
  races another drain.
- TryOwn/snapshot iteration is a non-reentrant try-lock: at most one
  StackGuard exists for a given Stack at a time, and it does not block
  concurrent Push; new entries may or may not be observed by an in-flight
  iteration, which is always safe to miss (a newly pushed flag starts
  Unpinned; a newly pushed bag is simply retired later).
*/
type Stack[T any] struct {
	head  atomic.Pointer[node[T]]
	taken atomic.Bool
}

type node[T any] struct {
	next atomic.Pointer[node[T]]
	data *T
}

// Push allocates a node carrying value and links it onto head, returning a
// stable pointer to the stored value valid for as long as the stack itself
// is never popped back past it.
func (s *Stack[T]) Push(value T) *T {
	n := &node[T]{data: &value}
	for {
		head := s.head.Load()
		n.next.Store(head)
		if s.head.CompareAndSwap(head, n) {
			return n.data
		}
	}
}

// Pop removes and returns the most recently pushed value, or false if the
// stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		head := s.head.Load()
		if head == nil {
			var zero T
			return zero, false
		}
		next := head.next.Load()
		if s.head.CompareAndSwap(head, next) {
			return *head.data, true
		}
	}
}

// StackGuard is the non-reentrant try-lock token returned by TryOwn. While
// it is live, it is the only guard for its Stack; release it via Release
// (typically deferred) to let another goroutine win TryOwn.
type StackGuard[T any] struct {
	stack *Stack[T]
}

// TryOwn attempts to claim exclusive ownership for a snapshot iteration.
// Contended attempts fail immediately instead of blocking: reclamation is
// throttled to one drainer at a time, never awaited.
func (s *Stack[T]) TryOwn() (*StackGuard[T], bool) {
	if s.taken.CompareAndSwap(false, true) {
		return &StackGuard[T]{stack: s}, true
	}
	return nil, false
}

// Release gives up ownership, allowing a future TryOwn to succeed again.
func (g *StackGuard[T]) Release() {
	g.stack.taken.Store(false)
}

// SnapshotIterate walks the stack from its current head at the moment of the
// call, in LIFO order. It does not freeze the stack against concurrent
// pushes; those may or may not be observed depending on timing, which is
// tolerated by every caller in this package. Concurrent pops must not occur
// while iterating; that is guaranteed by caller discipline (see the Stack
// doc comment), not enforced here.
func (s *Stack[T]) SnapshotIterate(_ *StackGuard[T]) iter.Seq[*T] {
	return func(yield func(*T) bool) {
		n := s.head.Load()
		for n != nil {
			if !yield(n.data) {
				return
			}
			n = n.next.Load()
		}
	}
}

// Drain pops every remaining element, discarding them. Used to empty a
// Stack when its owner is being torn down.
func (s *Stack[T]) Drain() {
	for {
		if _, ok := s.Pop(); !ok {
			return
		}
	}
}
