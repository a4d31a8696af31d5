// Package ebr implements epoch-based reclamation (EBR): a way to defer
// destroying a heap object until it is provable that no other goroutine
// can still be holding a reference to it.
//
// It exists for lock-free data structures (stacks, queues, maps) where one
// goroutine unlinks a node while a concurrent reader may still hold a raw
// pointer into it. This package gives you the primitive: register, pin,
// retire, unpin, not the data structure itself.
//
// The model, end to end:
//
//   - A global epoch cycles through three values, E0 -> E1 -> E2 -> E0.
//   - Each participant (obtained via Collector.Register) announces, via a
//     per-participant flag, which epoch it is currently observing. A
//     participant that isn't observing anything announces Unpinned.
//   - Pinning (Handle.Pin) publishes "I am observing the current epoch" and
//     returns a Guard; retiring (Handle.Retire) under that guard parks the
//     payload in the participant's private bag, which migrates to the
//     collector's bag for the guard's epoch, whatever the global epoch has
//     become by then.
//   - When a participant's bag fills up, it migrates to the global
//     coordinator, which opportunistically tries to advance the epoch: it
//     scans every participant's flag, and only advances if nobody is still
//     announcing the epoch about to be retired. If a straggler is found the
//     advance is skipped, not retried by force; the caller that happened to
//     trigger it just continues, and the next migrate attempt tries again.
//
// Three epoch values are the minimum that makes this sound: at any instant a
// participant can be pinned on the current epoch or the one before it, never
// two epochs back, because advancing past an epoch already required every
// participant to have left it.
//
// Go has no destructors, so Guard has no implicit "release on scope exit."
// Call Guard.Unpin explicitly (typically via defer), or use Handle.Pinned,
// which wraps pin/body/unpin in a closure and unpins even if the closure
// panics.
package ebr
