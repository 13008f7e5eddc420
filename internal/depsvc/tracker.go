// Package depsvc implements the dependency tracker of §4.C: waiters that
// fire a completion event on a shared queue once every key they name is
// present in the object store.
//
// The one cross-subsystem contract this package must never violate:
// Complete must never call back into the object store. It is the object
// store's responsibility (see internal/wire, which wires Put to Complete)
// to invoke Complete only after releasing its own mutex.
package depsvc

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"

	"github.com/s-u/osrv/internal/evqueue"
	"github.com/s-u/osrv/internal/objstore"
)

// Waiter is a single registered dependency. One Waiter struct is allocated
// per AddDep call, collapsing the original's hand-packed single arena
// allocation (header + key table + status bytes + interned keys) into two
// parallel Go slices — see SPEC_FULL.md §9 ("Pointer-rich contiguous
// allocations").
type Waiter struct {
	Name   string
	Msg    int32
	Keys   []string
	Status []bool
}

func (w *Waiter) satisfied() bool {
	for _, s := range w.Status {
		if !s {
			return false
		}
	}
	return true
}

// Tracker holds the set of pending waiters and the queue completions are
// published to.
type Tracker struct {
	mu      sync.Mutex
	waiters []*Waiter

	store *objstore.Store
	queue *evqueue.Queue
}

// New constructs a Tracker that probes store for key presence and publishes
// completions onto queue. Passing the same queue used by the /work HTTP
// route reproduces the original's documented "shortcut" coupling
// (SPEC_FULL.md §9, Open Question 3) but, unlike the original, that choice is this explicit
// constructor parameter rather than a hidden global.
func New(store *objstore.Store, queue *evqueue.Queue) *Tracker {
	return &Tracker{store: store, queue: queue}
}

// Queue returns the completion queue this tracker publishes to.
func (t *Tracker) Queue() *evqueue.Queue { return t.queue }

// AddDep registers a new waiter. Existing keys are probed against the store
// before the waiter is linked (outside the tracker's mutex, since the store
// must never be called while holding it); each probe first consults the
// store's cuckoo-filter hint and only falls through to the mutex+map lookup
// when the hint says the key might be present. A Put racing between this
// probe and the link below calls Complete on an as-yet-unlinked waiter and
// finds nothing to mark, so after linking, recheck re-probes w's still-
// unresolved keys and resolves it immediately if that closes it out.
func (t *Tracker) AddDep(name string, keys []string, msg int32) error {
	if name == "" {
		return errors.New("depsvc: waiter name must not be empty")
	}
	w := &Waiter{
		Name:   name,
		Msg:    msg,
		Keys:   append([]string(nil), keys...),
		Status: make([]bool, len(keys)),
	}
	for i, k := range w.Keys {
		if !t.store.MaybeExists(k) {
			continue
		}
		if _, ok := t.store.Get(k, false); ok {
			w.Status[i] = true
		}
	}

	t.mu.Lock()
	t.waiters = append(t.waiters, w)
	t.mu.Unlock()

	t.recheck(w)
	return nil
}

// recheck re-probes w's unresolved keys against the store and, if that
// satisfies w, unlinks it and publishes its completion. Unlike Complete,
// it targets a single waiter and is allowed to call the store because it
// is invoked from AddDep, not from the Put-side Complete path. If a
// concurrent Complete has already unlinked and published w, recheck does
// nothing.
func (t *Tracker) recheck(w *Waiter) {
	present := make([]bool, len(w.Keys))
	for i, k := range w.Keys {
		if !t.store.MaybeExists(k) {
			continue
		}
		if _, ok := t.store.Get(k, false); ok {
			present[i] = true
		}
	}

	t.mu.Lock()
	linked := false
	for _, x := range t.waiters {
		if x == w {
			linked = true
			break
		}
	}
	if !linked {
		t.mu.Unlock()
		return
	}
	for i, ok := range present {
		if ok {
			w.Status[i] = true
		}
	}
	resolved := w.satisfied()
	if resolved {
		remaining := t.waiters[:0]
		for _, x := range t.waiters {
			if x != w {
				remaining = append(remaining, x)
			}
		}
		t.waiters = remaining
	}
	t.mu.Unlock()

	if resolved {
		t.publish(w)
	}
}

// Complete marks key present across every waiter that names it. Any waiter
// that becomes fully satisfied as a result is unlinked and has a completion
// event pushed onto the queue.
//
// MUST NOT call any objstore method — see the package doc comment.
func (t *Tracker) Complete(key string) {
	t.mu.Lock()
	remaining := t.waiters[:0]
	var resolved []*Waiter
	for _, w := range t.waiters {
		for i, k := range w.Keys {
			if k == key {
				w.Status[i] = true
			}
		}
		if w.satisfied() {
			resolved = append(resolved, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	t.waiters = remaining
	t.mu.Unlock()

	for _, w := range resolved {
		t.publish(w)
	}
}

// publish encodes and pushes the completion event: a little-endian int32
// msg followed by the NUL-terminated name, matching §6.3's wire format.
func (t *Tracker) publish(w *Waiter) {
	payload := make([]byte, 4+len(w.Name)+1)
	binary.LittleEndian.PutUint32(payload, uint32(w.Msg))
	copy(payload[4:], w.Name)
	// payload[4+len(w.Name)] is already the zero byte (NUL terminator)
	t.queue.Push(evqueue.NewEntry(payload, nil), false)
}
