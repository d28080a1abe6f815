package service

import (
	"context"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/telemetry"
	"github.com/parley-ai/parley/internal/vectorstore"
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// KnowledgeService manages the knowledge base: ingestion, search,
// listing and deletion. Documents are chunked, embedded and handed to
// the vector store; re-adding identical content is a no-op.
type KnowledgeService struct {
	store        vectorstore.Store
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

func NewKnowledgeService(store vectorstore.Store, embedder Embedder, chunkSize, chunkOverlap int) *KnowledgeService {
	return &KnowledgeService{
		store:        store,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// AddKnowledgeInput carries one document to ingest. Category, title
// and tags are optional labels stored alongside every chunk.
type AddKnowledgeInput struct {
	Content  string
	Category string
	Title    string
	Tags     []string
	Metadata map[string]string
}

// AddKnowledge ingests a document and returns its content-derived ID.
// Identical content maps to the same ID, so repeated adds do not
// duplicate chunks.
func (s *KnowledgeService) AddKnowledge(ctx context.Context, input AddKnowledgeInput) (string, error) {
	content := strings.TrimSpace(input.Content)
	item := &domain.KnowledgeItem{
		ID:       domain.NewDocID(input.Content),
		Content:  content,
		Category: input.Category,
		Title:    input.Title,
		Tags:     input.Tags,
	}
	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return "", err
	}

	docID := item.ID
	ctx, span := telemetry.StartSpan(ctx, "knowledge.add", telemetry.SpanAttributes{
		DocID:     docID,
		Category:  input.Category,
		Operation: "add",
	})
	defer span.End()

	chunks := SplitText(content, s.chunkSize, s.chunkOverlap)

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	// Caller metadata first; reserved keys always win.
	metadata := make(map[string]string, len(input.Metadata)+4)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	metadata["category"] = input.Category
	metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)
	if input.Title != "" {
		metadata["title"] = input.Title
	}
	if len(input.Tags) > 0 {
		metadata["tags"] = strings.Join(input.Tags, ",")
	}

	if err := s.store.AddChunks(ctx, docID, chunks, vectors, metadata); err != nil {
		span.SetError(err)
		return "", err
	}
	return docID, nil
}

// SearchKnowledge embeds the question and returns the topK nearest
// chunks, optionally restricted to one category. Results are ordered
// by similarity score descending.
func (s *KnowledgeService) SearchKnowledge(ctx context.Context, question string, topK int, category string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrBlankQuestion
	}
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}

	ctx, span := telemetry.StartSpan(ctx, "knowledge.search", telemetry.SpanAttributes{
		Category:  category,
		Operation: "search",
	})
	defer span.End()

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return s.store.Query(ctx, vector, topK, category)
}

// DeleteKnowledge removes every chunk of a document. It reports false
// when no chunks existed for the ID.
func (s *KnowledgeService) DeleteKnowledge(ctx context.Context, docID string) (bool, error) {
	removed, err := s.store.DeleteByDocID(ctx, docID)
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

// CountKnowledge returns the number of stored documents.
func (s *KnowledgeService) CountKnowledge(ctx context.Context) (int, error) {
	return s.store.CountDocuments(ctx)
}

// ListKnowledge returns stored documents, newest first.
func (s *KnowledgeService) ListKnowledge(ctx context.Context, limit, offset int) ([]domain.KnowledgeItem, error) {
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListDocuments(ctx, limit, offset)
}

// ClearKnowledge removes every document from the store.
func (s *KnowledgeService) ClearKnowledge(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// ImportRecord is one entry of a bulk import payload.
type ImportRecord struct {
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Title    string            `json:"title"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

// ImportResult reports the outcome for one imported record.
type ImportResult struct {
	DocID string `json:"doc_id,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportRecords ingests records one by one. A failing record does not
// abort the batch; its error is reported in the matching result slot.
func (s *KnowledgeService) ImportRecords(ctx context.Context, records []ImportRecord) []ImportResult {
	ctx, span := telemetry.StartSpan(ctx, "knowledge.import", telemetry.SpanAttributes{Operation: "import"})
	defer span.End()

	results := make([]ImportResult, len(records))
	for i, rec := range records {
		docID, err := s.AddKnowledge(ctx, AddKnowledgeInput{
			Content:  rec.Content,
			Category: rec.Category,
			Title:    rec.Title,
			Tags:     rec.Tags,
			Metadata: rec.Metadata,
		})
		if err != nil {
			results[i] = ImportResult{Error: err.Error()}
			continue
		}
		results[i] = ImportResult{DocID: docID}
	}
	return results
}
