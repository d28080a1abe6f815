package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/parley-ai/parley/internal/api"
	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput) service.ChatOutput
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Question         string        `json:"question"`
	ImageURL         string        `json:"image_url"`
	ImageBase64      string        `json:"image_base64"`
	UseKnowledgeBase *bool         `json:"use_knowledge_base"`
	Category         string        `json:"category"`
	History          []ChatMessage `json:"history"`
}

type ChatResponse struct {
	Answer           string   `json:"answer"`
	Confidence       string   `json:"confidence"`
	KnowledgeSources []string `json:"knowledge_sources"`
	LLMModel         string   `json:"llm_model"`
	HasImage         bool     `json:"has_image"`
	OutOfScope       bool     `json:"out_of_scope"`
	RelevanceScore   float32  `json:"relevance_score"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history := make([]domain.Message, 0, len(req.History))
	for _, m := range req.History {
		if !domain.IsValidRole(domain.Role(m.Role)) {
			api.HandleError(w, domain.ErrInvalidRole)
			return
		}
		history = append(history, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}

	// The knowledge base is consulted unless the caller opts out.
	useKnowledge := true
	if req.UseKnowledgeBase != nil {
		useKnowledge = *req.UseKnowledgeBase
	}

	out := h.svc.Chat(r.Context(), service.ChatInput{
		Question:         req.Question,
		ImageURL:         req.ImageURL,
		ImageBase64:      req.ImageBase64,
		UseKnowledgeBase: useKnowledge,
		Category:         req.Category,
		History:          history,
	})

	sources := make([]string, 0, len(out.Sources))
	for _, s := range out.Sources {
		sources = append(sources, s.Content)
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Answer:           out.Answer,
		Confidence:       string(out.Confidence),
		KnowledgeSources: sources,
		LLMModel:         out.ModelUsed,
		HasImage:         out.HasImage,
		OutOfScope:       out.OutOfScope,
		RelevanceScore:   out.RelevanceScore,
	})
}
