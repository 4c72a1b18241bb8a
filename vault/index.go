package vault

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Index is the in-memory collection of records. No two records in it share
// an identity outside a single mutation call. Storage order is insertion
// order; Sorted gives the display order.
type Index struct {
	mu      sync.RWMutex
	records []*Record
	log     *zap.Logger
}

func NewIndex() *Index {
	return &Index{log: zap.NewNop()}
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Exists reports whether a record with the given identity is stored.
func (ix *Index) Exists(title, username string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.existsLocked(identityKey(title, username), -1)
}

// Records returns the records in storage order.
func (ix *Index) Records() []*Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return slices.Clone(ix.records)
}

// Sorted returns the records ordered by Compare.
func (ix *Index) Sorted() []*Record {
	out := ix.Records()
	slices.SortStableFunc(out, Compare)
	return out
}

// Get returns the record with the given ID or nil.
func (ix *Index) Get(id string) *Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, r := range ix.records {
		if r.id == id {
			return r
		}
	}
	return nil
}

// Insert adds r after checking auth and identity uniqueness.
func (ix *Index) Insert(auth Authorizer, r *Record) Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.authorize(auth, r) {
		return KeyMismatch
	}
	if ix.existsLocked(r.Key(), -1) {
		ix.log.Debug("insert rejected", zapRecord(r))
		return Collision
	}
	r.owner.Store(ix)
	ix.records = append(ix.records, r)
	ix.log.Debug("record inserted", zapRecord(r), zap.Int("records", len(ix.records)))
	return Success
}

// Remove deletes r after checking auth. r must be stored in ix.
func (ix *Index) Remove(auth Authorizer, r *Record) Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.authorize(auth, r) {
		return KeyMismatch
	}
	pos := ix.mustIndexOf(r)
	ix.records = slices.Delete(ix.records, pos, pos+1)
	r.owner.Store(nil)
	ix.log.Debug("record removed", zapRecord(r), zap.Int("records", len(ix.records)))
	return Success
}

// load adds a decoded record without a key check.
func (ix *Index) load(r *Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.existsLocked(r.Key(), -1) {
		return fmt.Errorf("%w: duplicate identity for record %s", ErrCorrupt, r.id)
	}
	r.owner.Store(ix)
	ix.records = append(ix.records, r)
	return nil
}

func (ix *Index) authorize(auth Authorizer, r *Record) bool {
	if auth == nil || !auth.IsValid() {
		ix.log.Warn("mutation refused: main key mismatch", zapRecord(r))
		return false
	}
	return true
}

// existsLocked scans for key, ignoring position skip.
func (ix *Index) existsLocked(key string, skip int) bool {
	for i, r := range ix.records {
		if i != skip && r.Key() == key {
			return true
		}
	}
	return false
}

// indexOf returns the position of the first record identity-equal to r,
// or -1.
func (ix *Index) indexOf(r *Record) int {
	key := r.Key()
	for i, stored := range ix.records {
		if stored.Key() == key {
			return i
		}
	}
	return -1
}

// mustIndexOf is indexOf for handles that must be the live record stored
// in ix. Stale or foreign handles with a matching identity panic.
func (ix *Index) mustIndexOf(r *Record) int {
	pos := ix.indexOf(r)
	if pos < 0 || ix.records[pos] != r || r.owner.Load() != ix {
		panic(fmt.Errorf("%w: %s", ErrRecordNotIndexed, r.id))
	}
	return pos
}

// replace swaps r in at pos and detaches the handle it displaces.
func (ix *Index) replace(pos int, r *Record) {
	ix.records[pos].owner.Store(nil)
	r.owner.Store(ix)
	ix.records[pos] = r
	ix.log.Debug("record replaced", zapRecord(r), zap.Int("position", pos))
}

func zapRecord(r *Record) zap.Field {
	return zap.String("record_id", r.id)
}
