package match

import (
	"sort"

	"github.com/booksflow/booksflow/internal/model"
)

// MaxRankedCandidates caps how many scored candidates a matching request
// returns.
const MaxRankedCandidates = 5

// Ranker scores a bounded candidate set and selects a best match.
type Ranker struct {
	scorer *Scorer
}

// NewRanker creates a ranker around the standard scorer.
func NewRanker(scorer *Scorer) *Ranker {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Ranker{scorer: scorer}
}

// Rank scores each candidate entry against the extracted document, sorts
// descending by score and returns the top candidates plus a best-match
// summary. The summary tier uses the matching confidence scale; a top score
// below the lowest matching threshold yields no best match.
func (r *Ranker) Rank(doc *model.ExtractedDocument, entries []model.LedgerEntry) model.RankedMatches {
	if doc == nil || len(entries) == 0 {
		return model.RankedMatches{}
	}

	candidates := make([]model.MatchCandidate, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, r.scorer.Score(doc, entry))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > MaxRankedCandidates {
		candidates = candidates[:MaxRankedCandidates]
	}

	result := model.RankedMatches{Candidates: candidates}

	top := candidates[0]
	tier := model.MatchTier(top.Score)
	if tier != model.TierNone {
		result.Best = &model.BestMatch{
			EntryID: top.Entry.ID,
			Tier:    tier,
			Score:   top.Score,
		}
	}
	return result
}
