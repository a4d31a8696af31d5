package ebr

import "sync/atomic"

// Epoch is one of three logical clock values. Garbage retired while a
// participant is announcing epoch X is destroyed at the second advance after
// X: the first advance (to next(X)) stops new pins from announcing X, and the
// second is only allowed once no participant still announces X.
type Epoch uint32

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2

	numEpochs = 3
)

// next returns the epoch that follows e, cycling E0 -> E1 -> E2 -> E0.
func (e Epoch) next() Epoch {
	return Epoch((uint32(e) + 1) % numEpochs)
}

// prev returns the epoch preceding e. With only three values, going forward
// twice lands on the same epoch as going back once, so prev is next applied
// twice.
func (e Epoch) prev() Epoch {
	return e.next().next()
}

func (e Epoch) String() string {
	switch e {
	case Epoch0:
		return "E0"
	case Epoch1:
		return "E1"
	case Epoch2:
		return "E2"
	default:
		return "Epoch(?)"
	}
}

// Flag is a participant's announcement of what it is doing: observing one
// of the three epochs, or Unpinned. Its numeric encoding deliberately
// coincides with Epoch for {E0,E1,E2} so flagOf is a plain conversion.
type Flag uint32

// Unpinned is the default flag value: the participant is not currently
// observing any epoch.
const Unpinned Flag = 3

// flagOf returns the flag a participant publishes while pinned on e.
func flagOf(e Epoch) Flag {
	return Flag(e)
}

func (f Flag) String() string {
	if f == Unpinned {
		return "Unpinned"
	}
	return Epoch(f).String()
}

// atomicEpoch is a cache-line-padded atomic Epoch cell, padded to 128 bytes
// so participants, and the single global epoch cell, never share a cache
// line with an unrelated field.
type atomicEpoch struct {
	v atomic.Uint32
	_ [128 - 4]byte
}

func (a *atomicEpoch) load() Epoch {
	return Epoch(a.v.Load())
}

func (a *atomicEpoch) store(e Epoch) {
	a.v.Store(uint32(e))
}

// compareAndSwap loops until it installs desired, reading the latest value
// as expected on every retry. Callers use it only in single-writer-at-a-time
// sections, where desired is already guaranteed to win eventually.
func (a *atomicEpoch) compareAndSwap(desired Epoch) {
	for {
		old := a.v.Load()
		if a.v.CompareAndSwap(old, uint32(desired)) {
			return
		}
	}
}

// atomicFlag is a cache-line-padded atomic Flag cell, one per registered
// participant, aligned the same way as atomicEpoch to keep participants from
// false-sharing with each other on the roster.
type atomicFlag struct {
	v atomic.Uint32
	_ [128 - 4]byte
}

func newAtomicFlag() atomicFlag {
	var f atomicFlag
	f.v.Store(uint32(Unpinned))
	return f
}

func (a *atomicFlag) load() Flag {
	return Flag(a.v.Load())
}

func (a *atomicFlag) store(f Flag) {
	a.v.Store(uint32(f))
}

// compareAndSwap reports whether it moved the flag from old to new. It does
// not retry: a failed match means somebody else already moved the flag off
// old, which is a legitimate outcome here, not contention to retry through.
func (a *atomicFlag) compareAndSwap(old, new Flag) bool {
	return a.v.CompareAndSwap(uint32(old), uint32(new))
}
