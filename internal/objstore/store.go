// Package objstore implements the thread-safe keyed artifact store: §4.B of
// the design. Structured (host-runtime-owned) artifacts are reclaimed only
// from Gc, which must be invoked from a context where the supplied
// HostHooks are legal to call; raw artifacts need no such care.
package objstore

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/s-u/osrv/internal/cmn/metrics"
	"github.com/s-u/osrv/internal/cmn/nlog"
	"github.com/s-u/osrv/internal/sfs"
)

// HostHooks lets a host runtime manage the lifetime of structured artifacts.
// A nil HostHooks is valid and is the common case for deployments that only
// ever store raw byte artifacts.
type HostHooks interface {
	Preserve(v sfs.Value)
	Release(v sfs.Value)
	InterruptCheck() error
}

// Artifact is a single stored value: either Raw bytes or a host-owned
// Structured value, per the data model's invariant that at least one is
// present.
type Artifact struct {
	Key        string
	Raw        []byte
	Structured *sfs.Value
}

func (a *Artifact) Len() uint64 {
	if a.Structured != nil {
		return 0
	}
	return uint64(len(a.Raw))
}

// Store is the thread-safe key→artifact map plus its deferred reclamation
// pool. The zero value is not usable; construct with New.
type Store struct {
	mu    sync.Mutex
	byKey map[string]*listNode
	head  *listNode // matches the original's singly-linked insertion order; Gc drains pool, not this list

	pool []*Artifact // entries removed by Get(remove=true), awaiting Gc

	hooks HostHooks

	// hint is a cuckoo filter seeded with xxhash: a fast, false-negative
	// -free pre-check so a caller (depsvc's pre-insert probe in
	// particular) can skip the mutex+map round trip for keys that are
	// certainly absent. It never replaces the authoritative map lookup.
	hint *cuckoo.Filter
}

type listNode struct {
	artifact *Artifact
	next     *listNode
}

// New creates an empty store. hooks may be nil when only raw artifacts will
// ever be stored.
func New(hooks HostHooks) *Store {
	return &Store{
		byKey: make(map[string]*listNode),
		hint:  cuckoo.NewFilter(1 << 16),
		hooks: hooks,
	}
}

func hintKey(key string) []byte {
	h := xxhash.ChecksumString64(key)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(h >> (8 * i))
	}
	return b[:]
}

// Put inserts or replaces the artifact under key. The supplied raw bytes
// are copied so the caller is free to reuse the backing slice afterward;
// see SPEC_FULL.md §9's resolution of Open Question 1. If structured is non-nil
// and hooks are configured, Preserve is called before the value becomes
// visible to other goroutines.
func (s *Store) Put(key string, raw []byte, structured *sfs.Value) {
	var cp []byte
	if raw != nil {
		cp = make([]byte, len(raw))
		copy(cp, raw)
	}
	if structured != nil && s.hooks != nil {
		s.hooks.Preserve(*structured)
	}
	art := &Artifact{Key: key, Raw: cp, Structured: structured}

	s.mu.Lock()
	prev, replaced := s.byKey[key]
	node := &listNode{artifact: art, next: s.head}
	s.head = node
	s.byKey[key] = node
	s.hint.InsertUnique(hintKey(key))
	s.mu.Unlock()

	if replaced {
		metrics.StoreBytes.Sub(float64(prev.artifact.Len()))
	} else {
		metrics.StoreObjects.Inc()
	}
	metrics.StoreBytes.Add(float64(art.Len()))
	nlog.Debugf("objstore: put key=%q len=%d structured=%v", key, art.Len(), structured != nil)
}

// MaybeExists is a fast, false-negative-free pre-check: false means key is
// certainly absent (skip the authoritative Get); true means "probably, go
// check". Used by depsvc's pre-insert probe to avoid a map lookup for keys
// it already knows cannot be present.
func (s *Store) MaybeExists(key string) bool {
	return s.hint.Lookup(hintKey(key))
}

// Get retrieves the artifact for key. If remove is true the artifact is
// unlinked and moved to the reclamation pool; the returned pointer remains
// valid only until the next Gc call.
func (s *Store) Get(key string, remove bool) (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	if remove {
		delete(s.byKey, key)
		s.unlinkLocked(node)
		s.pool = append(s.pool, node.artifact)
		metrics.StoreObjects.Dec()
		metrics.StoreBytes.Sub(float64(node.artifact.Len()))
	}
	return node.artifact, true
}

func (s *Store) unlinkLocked(target *listNode) {
	if s.head == target {
		s.head = target.next
		return
	}
	for n := s.head; n != nil; n = n.next {
		if n.next == target {
			n.next = target.next
			return
		}
	}
}

// Gc drains the reclamation pool, invoking HostHooks.Release on every
// structured artifact. It must be called only from a context where those
// hooks are legal to invoke (the "host thread").
func (s *Store) Gc() {
	s.mu.Lock()
	pool := s.pool
	s.pool = nil
	s.mu.Unlock()

	if s.hooks == nil {
		return
	}
	for _, art := range pool {
		if art.Structured != nil {
			s.hooks.Release(*art.Structured)
		}
	}
}
