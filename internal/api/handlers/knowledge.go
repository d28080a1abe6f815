package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/api"
	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/service"
)

type KnowledgeService interface {
	AddKnowledge(ctx context.Context, input service.AddKnowledgeInput) (string, error)
	SearchKnowledge(ctx context.Context, question string, topK int, category string) ([]domain.SearchResult, error)
	DeleteKnowledge(ctx context.Context, docID string) (bool, error)
	CountKnowledge(ctx context.Context) (int, error)
	ListKnowledge(ctx context.Context, limit, offset int) ([]domain.KnowledgeItem, error)
	ClearKnowledge(ctx context.Context) error
	ImportRecords(ctx context.Context, records []service.ImportRecord) []service.ImportResult
}

type KnowledgeHandler struct {
	svc  KnowledgeService
	topK int
}

func NewKnowledgeHandler(svc KnowledgeService, defaultTopK int) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, topK: defaultTopK}
}

type AddKnowledgeRequest struct {
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Title    string            `json:"title"`
	Tags     []string          `json:"tags"`
	Metadata map[string]string `json:"metadata"`
}

type AddKnowledgeResponse struct {
	DocID string `json:"doc_id"`
}

type SearchKnowledgeRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
}

type SearchResultResponse struct {
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type KnowledgeItemResponse struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at"`
}

type ImportRequest struct {
	Records []service.ImportRecord `json:"records"`
}

type ImportResponse struct {
	Imported int                    `json:"imported"`
	Failed   int                    `json:"failed"`
	Results  []service.ImportResult `json:"results"`
}

func (h *KnowledgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docID, err := h.svc.AddKnowledge(r.Context(), service.AddKnowledgeInput{
		Content:  req.Content,
		Category: req.Category,
		Title:    req.Title,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, AddKnowledgeResponse{DocID: docID})
}

func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topK := req.TopK
	if topK == 0 {
		topK = h.topK
	}

	results, err := h.svc.SearchKnowledge(r.Context(), req.Question, topK, req.Category)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]SearchResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, SearchResultResponse{
			Content:  res.Content,
			Category: res.Category,
			Score:    res.Score,
			Metadata: res.Metadata,
		})
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	items, err := h.svc.ListKnowledge(r.Context(), limit, offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]KnowledgeItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, knowledgeItemToResponse(item))
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CountKnowledge(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]int{"count": count})
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	if docID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	found, err := h.svc.DeleteKnowledge(r.Context(), docID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !found {
		api.Error(w, http.StatusNotFound, "document not found")
		return
	}
	api.Success(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *KnowledgeHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearKnowledge(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *KnowledgeHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) == 0 {
		api.Error(w, http.StatusBadRequest, "records are required")
		return
	}

	results := h.svc.ImportRecords(r.Context(), req.Records)

	resp := ImportResponse{Results: results}
	for _, res := range results {
		if res.Error != "" {
			resp.Failed++
		} else {
			resp.Imported++
		}
	}
	api.Success(w, http.StatusOK, resp)
}

func knowledgeItemToResponse(item domain.KnowledgeItem) KnowledgeItemResponse {
	resp := KnowledgeItemResponse{
		ID:        item.ID,
		Content:   item.Content,
		Category:  item.Category,
		Title:     item.Title,
		CreatedAt: item.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if len(item.Tags) > 0 {
		resp.Tags = item.Tags
	}
	return resp
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
