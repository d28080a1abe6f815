package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/domain"
)

type fakeGenerator struct {
	answers   []string
	errs      []error
	calls     int
	lastModel string
	lastImage string
	lastText  string
}

func (f *fakeGenerator) next() (string, error) {
	i := f.calls
	f.calls++
	var answer string
	var err error
	if i < len(f.answers) {
		answer = f.answers[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return answer, err
}

func (f *fakeGenerator) Complete(_ context.Context, messages []domain.Message, model string, _ float32, _ int) (string, error) {
	f.lastModel = model
	f.lastText = messages[len(messages)-1].Content
	return f.next()
}

func (f *fakeGenerator) CompleteMultimodal(_ context.Context, text, image, model string, _ float32, _ int) (string, error) {
	f.lastModel = model
	f.lastImage = image
	f.lastText = text
	return f.next()
}

func chatConfig() ChatConfig {
	return ChatConfig{
		TextModel:          "gpt-4o-mini",
		MultimodalModel:    "gpt-4o",
		MaxTokens:          2000,
		Temperature:        0.7,
		TopK:               3,
		RelevanceThreshold: 0.6,
	}
}

func newChatService(store *fakeStore, gen *fakeGenerator) *ChatService {
	knowledge := NewKnowledgeService(store, &fakeEmbedder{}, 500, 50)
	return NewChatService(knowledge, gen, NewConfidenceEstimator(), chatConfig())
}

func TestChatGroundedAnswer(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{
		{Content: "产品支持七天无理由退货，需保留原包装。", Score: 0.88},
	}}
	gen := &fakeGenerator{answers: []string{"产品支持七天无理由退货，请保留原包装并联系售后渠道办理退货手续。"}}
	svc := newChatService(store, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "如何退货", UseKnowledgeBase: true})

	assert.False(t, out.OutOfScope)
	assert.Equal(t, domain.ConfidenceHigh, out.Confidence)
	assert.Equal(t, "gpt-4o-mini", out.ModelUsed)
	require.Len(t, out.Sources, 1)
	assert.InDelta(t, 0.88, out.RelevanceScore, 1e-6)
	assert.Contains(t, gen.lastText, "产品支持七天无理由退货")
}

func TestChatOutOfScopeDeclinesWithoutGeneration(t *testing.T) {
	store := &fakeStore{results: []domain.SearchResult{{Content: "unrelated", Score: 0.31}}}
	gen := &fakeGenerator{}
	svc := newChatService(store, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "天气怎么样", UseKnowledgeBase: true})

	assert.True(t, out.OutOfScope)
	assert.Equal(t, domain.ConfidenceLow, out.Confidence)
	assert.Zero(t, gen.calls)
	assert.Contains(t, out.Answer, "0.31")
	assert.Contains(t, out.Answer, "0.60")
	assert.Empty(t, out.Sources)
}

func TestChatWithoutKnowledgeBase(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Hello! How can I help you with the product today?"}}
	svc := newChatService(&fakeStore{}, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "hello"})

	assert.False(t, out.OutOfScope)
	// No retrieval means the answer cannot be rated above low.
	assert.Equal(t, domain.ConfidenceLow, out.Confidence)
	assert.Empty(t, out.Sources)
	assert.Equal(t, 1, gen.calls)
}

func TestChatBlankQuestionDegrades(t *testing.T) {
	gen := &fakeGenerator{}
	svc := newChatService(&fakeStore{}, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "  "})

	assert.Equal(t, "error", out.ModelUsed)
	assert.Equal(t, domain.ConfidenceLow, out.Confidence)
	assert.Contains(t, strings.ToLower(out.Answer), "sorry")
	assert.Zero(t, gen.calls)
}

func TestChatImageUsesMultimodalModel(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"The photo shows the device's charging port on the left side."}}
	svc := newChatService(&fakeStore{}, gen)

	out := svc.Chat(context.Background(), ChatInput{
		Question:    "这是什么接口",
		ImageBase64: "aGVsbG8=",
	})

	assert.True(t, out.HasImage)
	assert.Equal(t, "gpt-4o", out.ModelUsed)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", gen.lastImage)

	// The vision prompt must carry the full assembled prompt, persona
	// preamble included, not just the user sections.
	assert.True(t, strings.HasPrefix(gen.lastText, promptPreamble))
	assert.Contains(t, gen.lastText, "这是什么接口")
}

func TestChatNonInferenceErrorIsNotRetried(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("template broken"), nil}}
	svc := newChatService(&fakeStore{}, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "hello"})

	assert.Equal(t, "error", out.ModelUsed)
	assert.Equal(t, 1, gen.calls)
}

func TestChatRetriesInferenceErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff sleeps between attempts")
	}
	gen := &fakeGenerator{
		errs:    []error{domain.NewInferenceError("chat completion failed", errors.New("429")), nil},
		answers: []string{"", "The product ships within two business days from the regional warehouse."},
	}
	svc := newChatService(&fakeStore{}, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "when does it ship"})

	assert.NotEqual(t, "error", out.ModelUsed)
	assert.Equal(t, 2, gen.calls)
}

func TestChatSearchErrorDegrades(t *testing.T) {
	store := &fakeStore{queryErr: domain.NewStoreError("query failed", errors.New("connection reset"))}
	gen := &fakeGenerator{}
	svc := newChatService(store, gen)

	out := svc.Chat(context.Background(), ChatInput{Question: "如何退货", UseKnowledgeBase: true})

	assert.Equal(t, "error", out.ModelUsed)
	assert.Equal(t, domain.ConfidenceLow, out.Confidence)
	assert.Zero(t, gen.calls)
}
