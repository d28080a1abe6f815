package server

import (
	"context"

	"github.com/parley-ai/parley/internal/domain"
)

// staticEmbedder maps every text to the same vector so any stored
// document is a perfect match for any query.
type staticEmbedder struct{}

func (staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (staticEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type staticGenerator struct{}

func (staticGenerator) Complete(context.Context, []domain.Message, string, float32, int) (string, error) {
	return "根据知识库内容，产品支持7天无理由退货，请保留原包装。", nil
}

func (staticGenerator) CompleteMultimodal(context.Context, string, string, string, float32, int) (string, error) {
	return "图片展示的是产品的接口面板。", nil
}
