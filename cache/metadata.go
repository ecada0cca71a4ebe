package cache

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SourceCached is the source label recorded for cache hits.
const SourceCached = "cached"

// Metadata records what a client instance collected: where each key's data
// came from and how many rows it had. It is only written to disk by Save.
type Metadata struct {
	mu        sync.Mutex
	id        uuid.UUID
	collected time.Time
	sources   map[string]string
	counts    map[string]int
}

// MetadataSnapshot is the exported form of Metadata.
type MetadataSnapshot struct {
	CollectionID   string            `json:"collection_id"`
	CollectionDate time.Time         `json:"collection_date"`
	Sources        map[string]string `json:"sources"`
	RecordCounts   map[string]int    `json:"record_counts"`
}

func NewMetadata() *Metadata {
	return &Metadata{
		id:        uuid.New(),
		collected: time.Now(),
		sources:   map[string]string{},
		counts:    map[string]int{},
	}
}

// RestoreMetadata rebuilds metadata from a snapshot, for callers that keep
// it across requests.
func RestoreMetadata(s MetadataSnapshot) *Metadata {
	m := NewMetadata()
	if id, err := uuid.Parse(s.CollectionID); err == nil {
		m.id = id
	}
	if !s.CollectionDate.IsZero() {
		m.collected = s.CollectionDate
	}
	for k, v := range s.Sources {
		m.sources[k] = v
	}
	for k, v := range s.RecordCounts {
		m.counts[k] = v
	}
	return m
}

// Record notes a fetch of key from source with the given row count.
func (m *Metadata) Record(key, source string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[key] = source
	m.counts[key] = rows
}

func (m *Metadata) Source(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[key]
	return s, ok
}

func (m *Metadata) Snapshot() MetadataSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetadataSnapshot{
		CollectionID:   m.id.String(),
		CollectionDate: m.collected,
		Sources:        make(map[string]string, len(m.sources)),
		RecordCounts:   make(map[string]int, len(m.counts)),
	}
	for k, v := range m.sources {
		s.Sources[k] = v
	}
	for k, v := range m.counts {
		s.RecordCounts[k] = v
	}
	return s
}

func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// Save writes the snapshot as indented JSON to path.
func (m *Metadata) Save(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}
