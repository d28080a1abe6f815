package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parley-ai/parley/internal/domain"
)

func TestEstimateNoKnowledgeIsLow(t *testing.T) {
	e := NewConfidenceEstimator()
	answer := strings.Repeat("a detailed answer ", 5)
	assert.Equal(t, domain.ConfidenceLow, e.Estimate(answer, false))
}

func TestEstimateShortAnswerIsLow(t *testing.T) {
	e := NewConfidenceEstimator()
	assert.Equal(t, domain.ConfidenceLow, e.Estimate("ok", true))
}

func TestEstimateShortMultibyteAnswerIsLow(t *testing.T) {
	e := NewConfidenceEstimator()
	// Nineteen runes even though the byte length is much larger.
	answer := strings.Repeat("货", 19)
	assert.Equal(t, domain.ConfidenceLow, e.Estimate(answer, true))
}

func TestEstimateHedgedAnswerIsMedium(t *testing.T) {
	e := NewConfidenceEstimator()
	assert.Equal(t, domain.ConfidenceMedium, e.Estimate("这个问题可能需要进一步确认，请联系客服获取准确信息。", true))
	assert.Equal(t, domain.ConfidenceMedium, e.Estimate("Perhaps the product supports this, but details vary by model.", true))
}

func TestEstimateGroundedAnswerIsHigh(t *testing.T) {
	e := NewConfidenceEstimator()
	assert.Equal(t, domain.ConfidenceHigh, e.Estimate("产品支持七天无理由退货，请保留原包装并联系售后渠道办理。", true))
}

func TestEstimateCustomMarkers(t *testing.T) {
	e := NewConfidenceEstimator("speculative")
	answer := "This is a speculative answer that is long enough to pass the length check."
	assert.Equal(t, domain.ConfidenceMedium, e.Estimate(answer, true))

	hedged := "Maybe this works, repeated enough times to be long enough for the check."
	assert.Equal(t, domain.ConfidenceHigh, e.Estimate(hedged, true))
}

func TestEstimateMarkerMatchIsCaseInsensitive(t *testing.T) {
	e := NewConfidenceEstimator()
	assert.Equal(t, domain.ConfidenceMedium, e.Estimate("I'm Not Sure this is the right setting for your device model.", true))
}
