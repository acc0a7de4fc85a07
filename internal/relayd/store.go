package relayd

import (
	"crypto/sha256"
	"sort"
	"sync"

	"github.com/danmuck/relayctl/internal/relay"
)

// Store holds the record sets a relay serves, keyed by FQDN. All methods are
// safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	sets   map[string][]relay.Record
	denied map[string]uint32
}

func NewStore() *Store {
	return &Store{
		sets:   make(map[string][]relay.Record),
		denied: make(map[string]uint32),
	}
}

// Put replaces the record set held for fqdn. Records are deep-copied so the
// caller can keep mutating its slice.
func (s *Store) Put(fqdn relay.FQDN, records []relay.Record) {
	cloned := make([]relay.Record, 0, len(records))
	for _, rec := range records {
		cloned = append(cloned, rec.Clone())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[fqdn.String()] = cloned
}

// Lookup returns a copy of the record set for fqdn. An FQDN the store has
// never seen yields an empty set; the relay holds nothing for it, which is a
// servable answer rather than an error.
func (s *Store) Lookup(fqdn relay.FQDN) []relay.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.sets[fqdn.String()]
	out := make([]relay.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Clone())
	}
	return out
}

// Deny makes the relay refuse index requests for fqdn with the given
// nonzero status code.
func (s *Store) Deny(fqdn relay.FQDN, status uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[fqdn.String()] = status
}

// Allow clears a previous Deny.
func (s *Store) Allow(fqdn relay.FQDN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.denied, fqdn.String())
}

// DeniedStatus reports whether fqdn is refused and with which status.
func (s *Store) DeniedStatus(fqdn relay.FQDN) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.denied[fqdn.String()]
	return status, ok
}

// Remove drops the record set for fqdn.
func (s *Store) Remove(fqdn relay.FQDN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, fqdn.String())
}

// FQDNs lists every name the store holds records for, sorted.
func (s *Store) FQDNs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SignRecord returns rec with its signature set to the SHA-256 digest of the
// value, the scheme clients verify by default.
func SignRecord(rec relay.Record) relay.Record {
	sum := sha256.Sum256(rec.Value)
	out := rec.Clone()
	out.Sig = sum[:]
	return out
}
