package service

import "github.com/parley-ai/parley/internal/domain"

// DecideRetrieval gates generation on retrieval quality. Results are
// assumed sorted by score descending; the top score is compared against
// the threshold inclusively. Below-threshold retrievals report the best
// score seen but carry no sources, so callers can explain the decline.
func DecideRetrieval(results []domain.SearchResult, threshold float32) domain.RetrievalDecision {
	if len(results) == 0 {
		return domain.RetrievalDecision{InScope: false, MaxScore: 0}
	}

	maxScore := results[0].Score
	for _, r := range results[1:] {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	if maxScore < threshold {
		return domain.RetrievalDecision{InScope: false, MaxScore: maxScore}
	}
	return domain.RetrievalDecision{
		InScope:  true,
		MaxScore: maxScore,
		Sources:  results,
	}
}
