package store

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"

	"ifs-get/ifsget"
	ifserrors "ifs-get/ifsget/errors"
)

// MemoryStore is a map-backed ContentStore, used by tests and as a demo
// backend. Safe for concurrent readers and writers.
type MemoryStore struct {
	mu     sync.RWMutex
	images map[ifsget.ComponentID]map[ifsget.Version][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images: make(map[ifsget.ComponentID]map[ifsget.Version][]byte),
	}
}

func (m *MemoryStore) Exists(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.images[id][version]
	return ok, nil
}

func (m *MemoryStore) ListVersions(ctx context.Context, id ifsget.ComponentID) ([]ifsget.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := make([]ifsget.Version, 0, len(m.images[id]))
	for v := range m.images[id] {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func (m *MemoryStore) ReadRange(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, offset int64, maxLen int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[id][version]
	if !ok {
		return nil, ifserrors.ErrNotFound.
			WithDetail("component", string(id)).
			WithDetail("version", uint64(version))
	}

	size := int64(len(data))
	if offset < 0 || offset > size {
		return nil, ifserrors.ErrRangeInvalid.
			WithDetail("offset", offset).
			WithDetail("size", size)
	}

	end := size
	if maxLen > 0 && offset+maxLen < end {
		end = offset + maxLen
	}
	return append([]byte(nil), data[offset:end]...), nil
}

func (m *MemoryStore) Size(ctx context.Context, id ifsget.ComponentID, version ifsget.Version) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[id][version]
	if !ok {
		return 0, ifserrors.ErrNotFound.
			WithDetail("component", string(id)).
			WithDetail("version", uint64(version))
	}
	return int64(len(data)), nil
}

// Put stores a new image. Overwriting an existing (id, version) fails with
// PUBLISH_CONFLICT.
func (m *MemoryStore) Put(ctx context.Context, id ifsget.ComponentID, version ifsget.Version, r io.Reader) (digest.Digest, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.images[id][version]; ok {
		return "", 0, ifserrors.ErrPublishConflict.
			WithDetail("component", string(id)).
			WithDetail("version", uint64(version))
	}
	if m.images[id] == nil {
		m.images[id] = make(map[ifsget.Version][]byte)
	}
	m.images[id][version] = data
	return digest.FromBytes(data), int64(len(data)), nil
}
