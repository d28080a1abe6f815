package vectorstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parley-ai/parley/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore is the clustered backend: chunks live in a Postgres
// table with a pgvector HNSW index (see migrations/), queried by
// cosine distance. The pool is safe for concurrent use; index creation
// happens in migrations before the store ever takes a query, so there
// is no separate load/flush step to sequence.
type PgvectorStore struct {
	pool *pgxpool.Pool
}

func NewPgvectorStore(pool *pgxpool.Pool) *PgvectorStore {
	return &PgvectorStore{pool: pool}
}

func (s *PgvectorStore) AddChunks(ctx context.Context, docID string, chunks []string, vectors [][]float32, metadata map[string]string) error {
	if len(chunks) != len(vectors) {
		return domain.NewStoreError("chunk/vector length mismatch", nil)
	}

	// Same idempotency policy as the embedded store: a present
	// representative chunk means the document is already indexed.
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM knowledge_chunks WHERE chunk_id = $1)`,
		domain.ChunkID(docID, 0),
	).Scan(&exists)
	if err != nil {
		return domain.NewStoreError("failed to check existing document", err)
	}
	if exists {
		return nil
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return domain.NewStoreError("failed to encode chunk metadata", err)
	}

	for i, text := range chunks {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(chunk_id, doc_id, chunk_index, category, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (chunk_id) DO NOTHING`,
			domain.ChunkID(docID, i),
			docID,
			i,
			metadata[metadataCategoryKey],
			text,
			metaJSON,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return domain.NewStoreError("failed to insert chunk", err)
		}
	}

	return nil
}

func (s *PgvectorStore) Query(ctx context.Context, vector []float32, topK int, categoryFilter string) ([]domain.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content, category, metadata, doc_id, chunk_index,
		        embedding <=> $1 AS distance
		 FROM knowledge_chunks
		 WHERE ($2 = '' OR category = $2)
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector),
		categoryFilter,
		topK,
	)
	if err != nil {
		return nil, domain.NewStoreError("similarity query failed", err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, topK)
	for rows.Next() {
		var (
			content, category, docID string
			metaJSON                 []byte
			chunkIndex               int
			distance                 float64
		)
		if err := rows.Scan(&content, &category, &metaJSON, &docID, &chunkIndex, &distance); err != nil {
			return nil, domain.NewStoreError("failed to scan search result", err)
		}

		metadata, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		metadata[metadataDocIDKey] = docID
		metadata[metadataChunkKey] = strconv.Itoa(chunkIndex)

		results = append(results, domain.SearchResult{
			Content:  content,
			Category: category,
			Score:    normalizeScore(float32(distance)),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("similarity query failed", err)
	}
	return results, nil
}

func (s *PgvectorStore) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM knowledge_chunks WHERE doc_id = $1`, docID)
	if err != nil {
		return 0, domain.NewStoreError("failed to delete document chunks", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgvectorStore) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_chunks WHERE chunk_index = 0`,
	).Scan(&count)
	if err != nil {
		return 0, domain.NewStoreError("failed to count documents", err)
	}
	return count, nil
}

func (s *PgvectorStore) ListDocuments(ctx context.Context, limit, offset int) ([]domain.KnowledgeItem, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content, category, metadata, doc_id, created_at
		 FROM knowledge_chunks
		 WHERE chunk_index = 0
		 ORDER BY created_at DESC, doc_id
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, domain.NewStoreError("failed to list documents", err)
	}
	defer rows.Close()

	items := make([]domain.KnowledgeItem, 0, limit)
	for rows.Next() {
		var (
			content, category, docID string
			metaJSON                 []byte
			createdAt                time.Time
		)
		if err := rows.Scan(&content, &category, &metaJSON, &docID, &createdAt); err != nil {
			return nil, domain.NewStoreError("failed to scan document row", err)
		}

		metadata, err := decodeMetadata(metaJSON)
		if err != nil {
			return nil, err
		}

		items = append(items, itemFromEntry(docID, content, category, metadata, createdAt))
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("failed to list documents", err)
	}
	return items, nil
}

func (s *PgvectorStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE knowledge_chunks`); err != nil {
		return domain.NewStoreError("failed to clear store", err)
	}
	return nil
}

func (s *PgvectorStore) Close() {
	s.pool.Close()
}

func decodeMetadata(metaJSON []byte) (map[string]string, error) {
	metadata := make(map[string]string)
	if len(metaJSON) == 0 {
		return metadata, nil
	}
	if err := json.Unmarshal(metaJSON, &metadata); err != nil {
		return nil, domain.NewStoreError("failed to decode chunk metadata", err)
	}
	return metadata, nil
}
