package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Confidence is a heuristic reliability label for a generated answer.
// It is not a calibrated probability.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// KnowledgeItem is a single entry in the knowledge base. Its ID is
// content-addressed: identical content always maps to the same item,
// regardless of category, title, or tags.
type KnowledgeItem struct {
	ID        string
	Content   string
	Category  string
	Title     string
	Tags      []string
	Metadata  map[string]string
	CreatedAt time.Time
}

// SearchResult is one ranked hit from a similarity query. Score is
// always in [0,1], higher meaning more similar, independent of the
// backend's native distance metric.
type SearchResult struct {
	Content  string
	Category string
	Score    float32
	Metadata map[string]string
}

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// RetrievalDecision is the outcome of gating a query against the
// relevance threshold.
type RetrievalDecision struct {
	InScope  bool
	MaxScore float32
	Sources  []SearchResult
}

// NewDocID derives the stable document identifier from content.
// The hash covers trimmed content only, so the same text filed under
// two categories collides to a single document.
func NewDocID(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the storage key for a chunk. Re-deriving for the
// same document and index always yields the same id.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// IsValidRole checks if a Role is one of the known values.
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ValidateKnowledgeItem validates a KnowledgeItem before indexing.
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return ErrBlankContent
	}
	if strings.TrimSpace(k.Content) == "" {
		return ErrBlankContent
	}
	if k.ID == "" {
		return NewDomainError(ErrCodeValidation, "knowledge ID is required")
	}
	return nil
}
