package progression

import (
	"context"
	"sort"
	"sync"
)

type memoryEntry struct {
	record Record
	seq    uint64
}

// MemoryStore keeps records in process. Used by the memory backend and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     uint64
	records map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryEntry)}
}

func memoryKey(guildID, userID string) string {
	return guildID + ":" + userID
}

func (m *MemoryStore) GetProgress(_ context.Context, guildID, userID string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.records[memoryKey(guildID, userID)]
	return entry.record, ok, nil
}

func (m *MemoryStore) SetProgress(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(record.GuildID, record.UserID)
	entry, ok := m.records[key]
	if !ok {
		m.seq++
		entry.seq = m.seq
	}
	entry.record = record
	m.records[key] = entry
	return nil
}

func (m *MemoryStore) DeleteProgress(_ context.Context, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, memoryKey(guildID, userID))
	return nil
}

func (m *MemoryStore) ListProgress(_ context.Context, guildID string) ([]Record, error) {
	m.mu.RLock()
	entries := make([]memoryEntry, 0, len(m.records))
	for _, entry := range m.records {
		if entry.record.GuildID == guildID {
			entries = append(entries, entry)
		}
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.record)
	}
	return records, nil
}
