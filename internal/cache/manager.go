// Package cache implements the content-addressed cache manager: a
// bloom-filter-accelerated store mapping a task's content hash to its
// captured output files, with LRU eviction, an ephemeral zero-disk mode, and
// XOR-patch reconstruction.
//
// The cache is purely opportunistic: misses, unparsable records, and absent
// signatures are soft negatives, never errors.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"dxengine/internal/dxc"
)

var (
	// ErrEntryNotFound indicates a patch base that is not in the cache.
	ErrEntryNotFound = errors.New("cache entry not found")

	// ErrSignatureInvalid indicates a signed entry whose signature does not
	// verify against its content digest.
	ErrSignatureInvalid = errors.New("cache signature invalid")
)

// TaskKey derives the 32-byte cache key for a task from its definition hash
// and command.
func TaskKey(definitionHash [8]byte, command string) [32]byte {
	h := blake3.New(32, nil)
	h.Write(definitionHash[:])
	h.Write([]byte(command))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// Manager owns one cache: either disk-backed under a sharded directory or,
// in zero-disk mode, a purely in-memory map for CI runs with no persistent
// store. Switching modes does not migrate existing entries.
//
// All operations are safe for concurrent use; a single mutex covers the
// bloom filter, the recency list, and the size counters.
type Manager struct {
	mu       sync.Mutex
	dir      string
	maxSize  uint64
	curSize  uint64
	zeroDisk bool
	mem      map[[32]byte]*dxc.Entry
	bloom    bloomFilter
	lru      *recencyList
	log      *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// New creates a disk-backed manager rooted at dir, bounded to maxSize
// content bytes.
func New(dir string, maxSize uint64, opts ...Option) *Manager {
	m := &Manager{
		dir:     dir,
		maxSize: maxSize,
		mem:     make(map[[32]byte]*dxc.Entry),
		lru:     newRecencyList(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Has reports whether an entry exists for hash.
//
// The bloom filter is consulted first: a negative result is authoritative
// and short-circuits without touching the backing store; a positive result
// is confirmed against the store since the filter may false-positive.
func (m *Manager) Has(hash [32]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.bloom.mayContain(&hash) {
		return false
	}
	if m.zeroDisk {
		_, ok := m.mem[hash]
		return ok
	}
	_, err := os.Stat(m.hashToPath(hash))
	return err == nil
}

// Get retrieves an entry, or nil on a miss. An unparsable on-disk record is
// a miss, not an error.
func (m *Manager) Get(hash [32]byte) *dxc.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(hash)
}

func (m *Manager) getLocked(hash [32]byte) *dxc.Entry {
	if m.zeroDisk {
		entry, ok := m.mem[hash]
		if !ok {
			return nil
		}
		m.lru.touch(hash, uint64(entry.TotalSize()))
		return entry
	}

	data, err := os.ReadFile(m.hashToPath(hash))
	if err != nil {
		return nil
	}
	entry, err := dxc.DecodeRecord(data)
	if err != nil {
		m.log.Debug("unparsable cache record treated as miss",
			zap.String("hash", hex.EncodeToString(hash[:])),
			zap.Error(err))
		return nil
	}

	// A pre-existing file discovered through Get joins the accounting so it
	// becomes an eviction candidate like everything else.
	size := uint64(entry.TotalSize())
	if _, known := m.lru.index[hash]; !known {
		m.curSize += size
	}
	m.lru.touch(hash, size)
	return entry
}

// Put stores an entry under hash, evicting least-recently-used entries until
// the new entry fits within the size bound.
func (m *Manager) Put(hash [32]byte, entry *dxc.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(hash, entry)
}

func (m *Manager) putLocked(hash [32]byte, entry *dxc.Entry) error {
	size := uint64(entry.TotalSize())

	// Replacing an entry releases its old accounting first.
	if _, known := m.lru.index[hash]; known {
		m.removeLocked(hash)
	}

	for m.curSize+size > m.maxSize {
		victim, _, ok := m.lru.oldest()
		if !ok {
			break
		}
		m.removeLocked(victim)
	}

	m.bloom.add(&hash)

	if m.zeroDisk {
		m.mem[hash] = entry
	} else {
		path := m.hashToPath(hash)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
		if err := os.WriteFile(path, dxc.EncodeRecord(entry), 0o644); err != nil {
			return fmt.Errorf("writing cache entry: %w", err)
		}
	}

	m.curSize += size
	m.lru.touch(hash, size)
	return nil
}

// removeLocked evicts one entry from the store and the accounting.
func (m *Manager) removeLocked(hash [32]byte) {
	el, ok := m.lru.index[hash]
	if !ok {
		return
	}
	size := el.Value.(*recencyNode).size
	m.lru.remove(hash)
	if m.curSize >= size {
		m.curSize -= size
	} else {
		m.curSize = 0
	}

	if m.zeroDisk {
		delete(m.mem, hash)
		return
	}
	if err := os.Remove(m.hashToPath(hash)); err != nil && !os.IsNotExist(err) {
		m.log.Warn("evicting cache entry", zap.Error(err))
	}
}

// ApplyPatch reconstructs a new entry from patch's base and stores it under
// newHash. Fails with ErrEntryNotFound when the base entry is absent.
func (m *Manager) ApplyPatch(newHash [32]byte, patch *dxc.EntryPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := m.getLocked(patch.BaseHash)
	if base == nil {
		return fmt.Errorf("%w: base %s", ErrEntryNotFound, hex.EncodeToString(patch.BaseHash[:]))
	}
	return m.putLocked(newHash, patch.Apply(base, newHash))
}

// EnableZeroDisk switches to the ephemeral in-memory store. Existing disk
// entries are not migrated.
func (m *Manager) EnableZeroDisk() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zeroDisk {
		return
	}
	m.zeroDisk = true
	m.resetAccountingLocked()
}

// DisableZeroDisk switches back to the disk-backed store. In-memory entries
// are not migrated.
func (m *Manager) DisableZeroDisk() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.zeroDisk {
		return
	}
	m.zeroDisk = false
	m.mem = make(map[[32]byte]*dxc.Entry)
	m.resetAccountingLocked()
}

func (m *Manager) resetAccountingLocked() {
	m.curSize = 0
	m.lru.reset()
	m.bloom.reset()
}

// Size returns the tracked content byte size of the current store.
func (m *Manager) Size() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curSize
}

// Clear destroys all entries in both stores.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mem = make(map[[32]byte]*dxc.Entry)
	m.resetAccountingLocked()

	if !m.zeroDisk {
		if err := os.RemoveAll(m.dir); err != nil {
			return fmt.Errorf("clearing cache directory: %w", err)
		}
	}
	return nil
}

// hashToPath shards entries into a two-level directory by the first and
// second hash bytes to avoid directory fan-out.
func (m *Manager) hashToPath(hash [32]byte) string {
	h := hex.EncodeToString(hash[:])
	return filepath.Join(m.dir, h[0:2], h[2:4], h)
}
