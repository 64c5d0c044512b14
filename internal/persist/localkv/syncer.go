package localkv

import (
	"context"
	"log"
	"sync"

	"instagen/internal/store"
)

// DefaultQueueDepth bounds the pending change notifications. Changes to the
// same collection coalesce, so a small queue is enough.
const DefaultQueueDepth = 64

// WarnFunc receives user-facing durability warnings (quota exhaustion).
type WarnFunc func(message string)

// Syncer observes store changes and persists snapshots on a background
// goroutine, so a slow device write never stalls a mutation.
type Syncer struct {
	kv    *KV
	store *store.Store
	warn  WarnFunc

	changes chan store.Collection

	mu     sync.Mutex
	dirty  map[store.Collection]bool
	warned map[string]bool // one warning per entity

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSyncer wires the syncer as the store's change observer. warn may be nil.
func NewSyncer(kv *KV, st *store.Store, warn WarnFunc) *Syncer {
	s := &Syncer{
		kv:      kv,
		store:   st,
		warn:    warn,
		changes: make(chan store.Collection, DefaultQueueDepth),
		dirty:   make(map[store.Collection]bool),
		warned:  make(map[string]bool),
	}
	st.SetChangeHook(s.observe)
	return s
}

// observe marks the collection dirty and nudges the worker. A full queue is
// fine: the collection stays marked and the next nudge flushes it.
func (s *Syncer) observe(c store.Change) {
	s.mu.Lock()
	s.dirty[c.Collection] = true
	s.mu.Unlock()

	select {
	case s.changes <- c.Collection:
	default:
	}
}

// Start begins the persistence worker. Call Stop to flush and shut down.
func (s *Syncer) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
	log.Printf("[Syncer] Local durability worker started")
}

// Stop flushes pending snapshots and stops the worker.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.flush()
	log.Printf("[Syncer] Local durability worker stopped")
}

func (s *Syncer) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.changes:
			s.flush()
		}
	}
}

// flush persists every dirty collection.
func (s *Syncer) flush() {
	s.mu.Lock()
	pending := make([]store.Collection, 0, len(s.dirty))
	for c := range s.dirty {
		pending = append(pending, c)
	}
	s.dirty = make(map[store.Collection]bool)
	s.mu.Unlock()

	for _, c := range pending {
		s.persist(c)
	}
}

func (s *Syncer) persist(c store.Collection) {
	var warnings []QuotaWarning
	switch c {
	case store.CollectionPosts:
		warnings = s.kv.SavePosts(s.store.Posts())
	case store.CollectionReels:
		warnings = s.kv.SaveReels(s.store.Reels())
	case store.CollectionStories:
		warnings = s.kv.SaveStories(s.store.Stories())
	case store.CollectionProfile:
		if p, ok := s.store.Profile(); ok {
			s.kv.SaveProfile(p)
		}
	}

	for _, w := range warnings {
		key := w.Collection + "/" + w.EntityID
		s.mu.Lock()
		seen := s.warned[key]
		s.warned[key] = true
		s.mu.Unlock()
		if seen {
			continue
		}
		log.Printf("[Syncer] Quota exceeded: collection=%s id=%s", w.Collection, w.EntityID)
		if s.warn != nil {
			s.warn(w.Message())
		}
	}
}
