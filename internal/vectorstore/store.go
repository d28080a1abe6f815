// Package vectorstore persists chunk/vector/metadata triples and
// answers similarity queries. Two interchangeable backends implement
// the same contract: an embedded in-process store and a
// Postgres/pgvector ANN store.
package vectorstore

import (
	"context"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/domain"
)

// Store is the vector store contract shared by both backends.
//
// Re-adding a document whose id already exists is a no-op for every
// backend; callers can treat AddChunks as idempotent per docID.
type Store interface {
	// AddChunks stores one entry per chunk, keyed by ChunkID(docID, i).
	// A failure partway through can leave a document partially
	// indexed; there is no cross-chunk transaction.
	AddChunks(ctx context.Context, docID string, chunks []string, vectors [][]float32, metadata map[string]string) error

	// Query returns up to topK results nearest to vector, best first.
	// An empty categoryFilter matches all categories.
	Query(ctx context.Context, vector []float32, topK int, categoryFilter string) ([]domain.SearchResult, error)

	// DeleteByDocID removes every chunk of a document and reports how
	// many entries were removed. An unknown id removes zero.
	DeleteByDocID(ctx context.Context, docID string) (int, error)

	// CountDocuments counts documents, not chunks: only the
	// representative chunk (index 0) of each document is counted.
	CountDocuments(ctx context.Context) (int, error)

	// ListDocuments pages over documents, newest first. Each item is
	// reconstructed from the document's representative chunk, so its
	// Content is the first window of the original text.
	ListDocuments(ctx context.Context, limit, offset int) ([]domain.KnowledgeItem, error)

	// Clear drops all entries and leaves an empty, usable store.
	Clear(ctx context.Context) error

	Close()
}

// metadataCategoryKey is the reserved metadata key carrying the
// owning item's category into each stored entry.
const (
	metadataCategoryKey = "category"
	metadataDocIDKey    = "doc_id"
	metadataChunkKey    = "chunk_index"
)

// itemFromEntry rebuilds a KnowledgeItem from a stored representative
// chunk. Title and tags live in the chunk metadata; tags are stored
// comma-joined.
func itemFromEntry(docID, content, category string, metadata map[string]string, createdAt time.Time) domain.KnowledgeItem {
	item := domain.KnowledgeItem{
		ID:        docID,
		Content:   content,
		Category:  category,
		Title:     metadata["title"],
		Metadata:  metadata,
		CreatedAt: createdAt,
	}
	if raw := metadata["tags"]; raw != "" {
		item.Tags = strings.Split(raw, ",")
	}
	return item
}

// normalizeScore converts a backend's native distance into the [0,1]
// relevance score the rest of the system sees. Cosine distance and
// 1-Euclidean style distances are treated as interchangeable relevance
// signals by convention here, not by mathematical equivalence; both
// map through clamp(1-distance, 0, 1).
func normalizeScore(distance float32) float32 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
