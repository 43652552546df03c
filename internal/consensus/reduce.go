package consensus

import (
	"sort"

	"news-trading-bot/internal/types"
)

// Reduce collapses the respondent votes for one observation into a
// single consensus. The rule is deterministic:
//
//   - fewer respondents than quorum resolves to neutral with
//     low_confidence set, regardless of the individual scores;
//   - otherwise the resolved score is the mode of respondent scores,
//     ties broken toward the smaller magnitude, then the smaller score;
//   - agreement ratio is the mode count over respondents; below
//     minAgreement the result is forced to neutral with low_confidence;
//   - dissent counts every classifier that did not vote for the
//     resolved score: non-responders plus disagreeing respondents.
//
// total is the number of classifiers dispatched to.
func Reduce(obsID, contractID, outcomeID string, votes []types.Classification, total, quorum int, minAgreement float64) types.Consensus {
	cons := types.Consensus{
		ObservationID: obsID,
		ContractID:    contractID,
		OutcomeID:     outcomeID,
		Respondents:   len(votes),
	}

	if len(votes) < quorum {
		cons.ResolvedScore = types.ScoreNeutral
		cons.LowConfidence = true
		cons.DissentCount = total
		return cons
	}

	counts := map[int]int{}
	for _, v := range votes {
		counts[v.Score]++
	}

	scores := make([]int, 0, len(counts))
	for s := range counts {
		scores = append(scores, s)
	}
	sort.Ints(scores)

	resolved := scores[0]
	for _, s := range scores[1:] {
		if better(s, counts[s], resolved, counts[resolved]) {
			resolved = s
		}
	}

	agree := counts[resolved]
	cons.ResolvedScore = resolved
	cons.AgreementRatio = float64(agree) / float64(len(votes))
	cons.DissentCount = total - agree

	if cons.AgreementRatio < minAgreement {
		cons.ResolvedScore = types.ScoreNeutral
		cons.LowConfidence = true
	}
	return cons
}

// better reports whether candidate score s beats the current resolved
// score r: higher vote count wins; on equal counts the smaller
// magnitude wins; on equal magnitude the smaller score wins.
func better(s, sCount, r, rCount int) bool {
	if sCount != rCount {
		return sCount > rCount
	}
	sm, rm := abs(s), abs(r)
	if sm != rm {
		return sm < rm
	}
	return s < r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
