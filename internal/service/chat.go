package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/telemetry"
)

// Generator runs chat completions.
type Generator interface {
	Complete(ctx context.Context, messages []domain.Message, model string, temperature float32, maxTokens int) (string, error)
	CompleteMultimodal(ctx context.Context, text, image, model string, temperature float32, maxTokens int) (string, error)
}

// ChatConfig tunes the generation side of the pipeline.
type ChatConfig struct {
	TextModel          string
	MultimodalModel    string
	MaxTokens          int
	Temperature        float32
	TopK               int
	RelevanceThreshold float32
}

// ChatService runs the retrieval-augmented answer pipeline: retrieve,
// gate, assemble, generate, rate. It never returns an error to the
// caller; every failure degrades into an apologetic low-confidence
// answer so the conversation can continue.
type ChatService struct {
	knowledge *KnowledgeService
	generator Generator
	estimator *ConfidenceEstimator
	cfg       ChatConfig
}

func NewChatService(knowledge *KnowledgeService, generator Generator, estimator *ConfidenceEstimator, cfg ChatConfig) *ChatService {
	return &ChatService{
		knowledge: knowledge,
		generator: generator,
		estimator: estimator,
		cfg:       cfg,
	}
}

// ChatInput is one conversational turn. At most one of ImageURL and
// ImageBase64 should be set; ImageBase64 wins when both are.
type ChatInput struct {
	Question         string
	ImageURL         string
	ImageBase64      string
	UseKnowledgeBase bool
	Category         string
	History          []domain.Message
}

// ChatOutput is the answer to one turn.
type ChatOutput struct {
	Answer         string
	Confidence     domain.Confidence
	Sources        []domain.SearchResult
	ModelUsed      string
	HasImage       bool
	OutOfScope     bool
	RelevanceScore float32
}

// Chat answers one turn of conversation.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) ChatOutput {
	ctx, span := telemetry.StartSpan(ctx, "chat.ask", telemetry.SpanAttributes{
		Category:  input.Category,
		Operation: "chat",
	})
	defer span.End()

	if strings.TrimSpace(input.Question) == "" {
		return s.degraded(ctx, domain.ErrBlankQuestion, input)
	}

	decision := domain.RetrievalDecision{}
	if input.UseKnowledgeBase {
		results, err := s.knowledge.SearchKnowledge(ctx, input.Question, s.cfg.TopK, input.Category)
		if err != nil {
			return s.degraded(ctx, err, input)
		}
		decision = DecideRetrieval(results, s.cfg.RelevanceThreshold)

		if !decision.InScope {
			return ChatOutput{
				Answer: fmt.Sprintf(
					"Sorry, this question falls outside the knowledge base (best relevance %.2f, threshold %.2f). Try rephrasing it or ask about a covered topic.",
					decision.MaxScore, s.cfg.RelevanceThreshold),
				Confidence:     domain.ConfidenceLow,
				ModelUsed:      s.cfg.TextModel,
				HasImage:       input.hasImage(),
				OutOfScope:     true,
				RelevanceScore: decision.MaxScore,
			}
		}
	}

	answer, model, err := s.generate(ctx, input, decision.Sources)
	if err != nil {
		return s.degraded(ctx, err, input)
	}

	return ChatOutput{
		Answer:         answer,
		Confidence:     s.estimator.Estimate(answer, decision.InScope),
		Sources:        decision.Sources,
		ModelUsed:      model,
		HasImage:       input.hasImage(),
		RelevanceScore: decision.MaxScore,
	}
}

// generate calls the model with retries. Only inference failures are
// retried; everything else aborts immediately.
func (s *ChatService) generate(ctx context.Context, input ChatInput, sources []domain.SearchResult) (string, string, error) {
	messages := AssemblePrompt(sources, input.Question, input.History)

	model := s.cfg.TextModel
	if input.hasImage() {
		model = s.cfg.MultimodalModel
	}

	// The vision API takes a single text part, so the system preamble
	// is folded into it ahead of the user sections.
	multimodalText := messages[0].Content + "\n\n" + messages[len(messages)-1].Content

	operation := func() (string, error) {
		var answer string
		var err error
		if input.hasImage() {
			answer, err = s.generator.CompleteMultimodal(ctx, multimodalText, input.imageRef(), model, s.cfg.Temperature, s.cfg.MaxTokens)
		} else {
			answer, err = s.generator.Complete(ctx, messages, model, s.cfg.Temperature, s.cfg.MaxTokens)
		}
		if err != nil {
			if domain.IsInferenceError(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		return answer, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 10 * time.Second

	answer, err := backoff.RetryWithData(operation, backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx))
	if err != nil {
		return "", model, err
	}
	return answer, model, nil
}

func (s *ChatService) degraded(ctx context.Context, err error, input ChatInput) ChatOutput {
	log.Printf("chat pipeline degraded: %v", err)
	telemetry.CaptureError(ctx, err)

	return ChatOutput{
		Answer:     fmt.Sprintf("Sorry, something went wrong while answering your question: %v. Please try again later.", err),
		Confidence: domain.ConfidenceLow,
		ModelUsed:  "error",
		HasImage:   input.hasImage(),
	}
}

func (in ChatInput) hasImage() bool {
	return in.ImageURL != "" || in.ImageBase64 != ""
}

// imageRef returns the image as something the vision API accepts,
// wrapping raw base64 payloads in a data URL.
func (in ChatInput) imageRef() string {
	if in.ImageBase64 != "" {
		return "data:image/jpeg;base64," + in.ImageBase64
	}
	return in.ImageURL
}
