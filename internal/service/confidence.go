package service

import (
	"strings"
	"unicode/utf8"

	"github.com/parley-ai/parley/internal/domain"
)

// minConfidentAnswerRunes is the shortest answer that can still be
// rated above low confidence.
const minConfidentAnswerRunes = 20

// defaultUncertaintyMarkers are hedging phrases that cap confidence at
// medium when they appear in an answer.
var defaultUncertaintyMarkers = []string{
	"可能", "也许", "大概", "不确定", "不太清楚",
	"maybe", "perhaps", "possibly", "not sure", "i'm not certain",
}

// ConfidenceEstimator rates generated answers by grounding and hedging
// signals. The zero value is not usable; use NewConfidenceEstimator.
type ConfidenceEstimator struct {
	markers []string
}

func NewConfidenceEstimator(markers ...string) *ConfidenceEstimator {
	if len(markers) == 0 {
		markers = defaultUncertaintyMarkers
	}
	return &ConfidenceEstimator{markers: markers}
}

// Estimate rates an answer. Answers without retrieved knowledge or too
// short to carry substance are low; hedged answers are medium;
// everything else is high.
func (e *ConfidenceEstimator) Estimate(answer string, knowledgeFound bool) domain.Confidence {
	if !knowledgeFound {
		return domain.ConfidenceLow
	}
	if utf8.RuneCountInString(answer) < minConfidentAnswerRunes {
		return domain.ConfidenceLow
	}

	lowered := strings.ToLower(answer)
	for _, marker := range e.markers {
		if strings.Contains(lowered, marker) {
			return domain.ConfidenceMedium
		}
	}
	return domain.ConfidenceHigh
}
