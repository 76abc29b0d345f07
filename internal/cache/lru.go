package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/roadsense/iri-engine/internal/metrics"
	"github.com/roadsense/iri-engine/internal/models"
)

// entry is a cached computation result keyed by fingerprint
type entry struct {
	fingerprint string
	result      *models.IRIResult
	storedAt    time.Time
}

// lruStore is a thread-safe LRU store with TTL for computed results.
// Entries never mutate: they are only created, evicted or invalidated.
type lruStore struct {
	capacity  int
	ttl       time.Duration
	items     map[string]*list.Element
	evictList *list.List
	mu        sync.Mutex

	hits   uint64
	misses uint64
}

func newLRUStore(capacity int, ttl time.Duration) *lruStore {
	return &lruStore{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// get retrieves a result, expiring it if past TTL
func (s *lruStore) get(fingerprint string) (*models.IRIResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[fingerprint]
	if !ok {
		s.misses++
		return nil, false
	}

	ent := elem.Value.(*entry)
	if time.Since(ent.storedAt) > s.ttl {
		s.removeElement(elem)
		s.misses++
		return nil, false
	}

	s.evictList.MoveToFront(elem)
	s.hits++
	return ent.result, true
}

// set stores a result, evicting the oldest entry when over capacity
func (s *lruStore) set(fingerprint string, result *models.IRIResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[fingerprint]; ok {
		// Same fingerprint means same deterministic result, refresh TTL
		s.evictList.MoveToFront(elem)
		ent := elem.Value.(*entry)
		ent.result = result
		ent.storedAt = time.Now()
		return
	}

	elem := s.evictList.PushFront(&entry{
		fingerprint: fingerprint,
		result:      result,
		storedAt:    time.Now(),
	})
	s.items[fingerprint] = elem

	if s.evictList.Len() > s.capacity {
		if oldest := s.evictList.Back(); oldest != nil {
			s.removeElement(oldest)
			metrics.CacheEvictions.Inc()
		}
	}
}

// delete removes a fingerprint from the store
func (s *lruStore) delete(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[fingerprint]; ok {
		s.removeElement(elem)
	}
}

// clear removes all entries
func (s *lruStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.evictList.Init()
}

// size returns the number of cached results
func (s *lruStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// stats returns hit/miss counters and hit rate
func (s *lruStore) stats() (hits, misses uint64, hitRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits = s.hits
	misses = s.misses
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return
}

func (s *lruStore) removeElement(elem *list.Element) {
	ent := elem.Value.(*entry)
	delete(s.items, ent.fingerprint)
	s.evictList.Remove(elem)
}
