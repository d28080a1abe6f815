package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/parley-ai/parley/internal/domain"
)

// EmbeddedStore is the in-process backend: a brute-force cosine
// similarity scan over entries held in memory, with an optional JSON
// snapshot on disk so the store survives restarts. Writes persist
// immediately. Safe for concurrent use.
type EmbeddedStore struct {
	mu      sync.RWMutex
	path    string
	entries []embeddedEntry
}

type embeddedEntry struct {
	ChunkID   string            `json:"chunk_id"`
	DocID     string            `json:"doc_id"`
	Index     int               `json:"index"`
	Category  string            `json:"category"`
	Text      string            `json:"text"`
	Vector    []float32         `json:"vector"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEmbeddedStore opens the embedded store. When path is non-empty an
// existing snapshot is loaded from it and every mutation rewrites it.
func NewEmbeddedStore(path string) (*EmbeddedStore, error) {
	s := &EmbeddedStore{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, domain.NewStoreError("failed to read store snapshot", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, domain.NewStoreError("failed to decode store snapshot", err)
	}
	return s, nil
}

func (s *EmbeddedStore) AddChunks(ctx context.Context, docID string, chunks []string, vectors [][]float32, metadata map[string]string) error {
	if len(chunks) != len(vectors) {
		return domain.NewStoreError(fmt.Sprintf("chunk/vector length mismatch: %d vs %d", len(chunks), len(vectors)), nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent add: the representative chunk existing means the
	// whole document is already indexed.
	if s.hasChunkLocked(domain.ChunkID(docID, 0)) {
		return nil
	}

	now := time.Now().UTC()
	for i, text := range chunks {
		s.entries = append(s.entries, embeddedEntry{
			ChunkID:   domain.ChunkID(docID, i),
			DocID:     docID,
			Index:     i,
			Category:  metadata[metadataCategoryKey],
			Text:      text,
			Vector:    vectors[i],
			Metadata:  cloneMetadata(metadata),
			CreatedAt: now,
		})
	}

	return s.persistLocked()
}

func (s *EmbeddedStore) Query(ctx context.Context, vector []float32, topK int, categoryFilter string) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.SearchResult, 0, topK)
	for _, e := range s.entries {
		if categoryFilter != "" && e.Category != categoryFilter {
			continue
		}
		distance := cosineDistance(vector, e.Vector)
		results = append(results, domain.SearchResult{
			Content:  e.Text,
			Category: e.Category,
			Score:    normalizeScore(distance),
			Metadata: resultMetadata(e.Metadata, e.DocID, e.Index),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *EmbeddedStore) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.DocID == docID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept

	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked()
}

func (s *EmbeddedStore) CountDocuments(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.Index == 0 {
			count++
		}
	}
	return count, nil
}

func (s *EmbeddedStore) ListDocuments(ctx context.Context, limit, offset int) ([]domain.KnowledgeItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	reps := make([]embeddedEntry, 0)
	for _, e := range s.entries {
		if e.Index == 0 {
			reps = append(reps, e)
		}
	}
	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].CreatedAt.After(reps[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(reps) {
		return []domain.KnowledgeItem{}, nil
	}
	reps = reps[offset:]
	if limit > 0 && len(reps) > limit {
		reps = reps[:limit]
	}

	items := make([]domain.KnowledgeItem, 0, len(reps))
	for _, e := range reps {
		items = append(items, itemFromEntry(e.DocID, e.Text, e.Category, e.Metadata, e.CreatedAt))
	}
	return items, nil
}

func (s *EmbeddedStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return s.persistLocked()
}

func (s *EmbeddedStore) Close() {}

func (s *EmbeddedStore) hasChunkLocked(chunkID string) bool {
	for _, e := range s.entries {
		if e.ChunkID == chunkID {
			return true
		}
	}
	return false
}

// persistLocked rewrites the snapshot via a temp file and rename so a
// crash mid-write never truncates the previous snapshot.
func (s *EmbeddedStore) persistLocked() error {
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.NewStoreError("failed to create store directory", err)
	}

	data, err := json.Marshal(s.entries)
	if err != nil {
		return domain.NewStoreError("failed to encode store snapshot", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domain.NewStoreError("failed to write store snapshot", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return domain.NewStoreError("failed to replace store snapshot", err)
	}
	return nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

func resultMetadata(metadata map[string]string, docID string, index int) map[string]string {
	out := cloneMetadata(metadata)
	if out == nil {
		out = make(map[string]string, 2)
	}
	out[metadataDocIDKey] = docID
	out[metadataChunkKey] = strconv.Itoa(index)
	return out
}

func cosineDistance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
