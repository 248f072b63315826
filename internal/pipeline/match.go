package pipeline

import (
	"strings"

	"spccvault/internal"
	"spccvault/internal/facility"
	"spccvault/internal/util"
)

// Matcher selects at most one facility per extraction result. Matching is
// pure: no I/O, deterministic for identical inputs, so it can be property
// tested without any backend.
//
// Two tiers by design: exact containment alone misses abbreviated or
// re-punctuated names, while fuzzy scoring alone auto-selects facilities it
// should not. Partial hits therefore carry the fragment that triggered them
// and always pass through human review before apply.
type Matcher struct {
	index     *facility.Index
	threshold float64
}

// NewMatcher builds the candidate index. Retired facilities are dropped here,
// before any matching runs, never filtered after the fact.
func NewMatcher(facilities []internal.Facility, partialThreshold float64) *Matcher {
	return &Matcher{
		index:     facility.BuildIndex(facilities),
		threshold: partialThreshold,
	}
}

// MatchAll produces exactly one row per extraction result, so
// matched + unmatched + error always equals the input count.
func (m *Matcher) MatchAll(results []internal.ExtractionResult) []internal.MatchRow {
	out := make([]internal.MatchRow, 0, len(results))
	for _, res := range results {
		out = append(out, m.matchOne(res))
	}
	return out
}

func (m *Matcher) matchOne(res internal.ExtractionResult) internal.MatchRow {
	row := internal.MatchRow{
		Doc:        res.Doc,
		Status:     internal.MatchUnmatched,
		Confidence: internal.ConfidenceNone,
	}
	if res.ExtractedDate != nil {
		row.PlanDateRaw = *res.ExtractedDate
	}

	if res.Status == internal.ExtractionError {
		row.Status = internal.MatchError
		row.ExtractErr = res.ErrDetail
		return row
	}

	norm := util.NormalizeText(res.Text)
	if norm == "" {
		return row
	}

	id, found, ambiguous := m.exactPass(norm)
	if ambiguous {
		// Two equally specific names both appear verbatim. Guessing here
		// would auto-apply against the wrong facility; leave it to review.
		return row
	}
	if found {
		f := m.index.FacilitiesByID[id]
		row.Status = internal.MatchMatched
		row.FacilityID = util.IntPtr(id)
		row.Confidence = internal.ConfidenceExact
		row.Fragment = f.Name
		return row
	}

	if id, fragment, ok := m.partialPass(res.Text); ok {
		row.Status = internal.MatchMatched
		row.FacilityID = util.IntPtr(id)
		row.Confidence = internal.ConfidencePartial
		row.Fragment = fragment
		return row
	}

	return row
}

// exactPass tests whether a candidate's normalized name appears verbatim in
// the normalized text. Candidate order is descending name length, so the
// first hit is the most specific; a same-length second hit is a true tie,
// which ends matching for the document entirely so the partial pass never
// gets a chance to guess between them.
func (m *Matcher) exactPass(norm string) (id int, found bool, ambiguous bool) {
	var hits []int
	for _, cid := range m.index.CandidateIDs {
		if strings.Contains(norm, m.index.NormalizedNameByID[cid]) {
			hits = append(hits, cid)
		}
	}

	switch len(hits) {
	case 0:
		return 0, false, false
	case 1:
		return hits[0], true, false
	}

	first := len(m.index.NormalizedNameByID[hits[0]])
	second := len(m.index.NormalizedNameByID[hits[1]])
	if first == second {
		return 0, false, true
	}
	return hits[0], true, false
}

// partialPass slides a window of candidate-name width over the document's
// tokens and scores each window as a blend of bigram similarity and token
// overlap. The highest-scoring candidate over the threshold wins; equal
// scores break toward the longer (more specific) name, then the lower ID.
func (m *Matcher) partialPass(text string) (int, string, bool) {
	rawTokens, normTokens := windowTokens(text)
	if len(rawTokens) == 0 {
		return 0, "", false
	}

	bestID := 0
	bestScore := 0.0
	bestFragment := ""

	for _, id := range m.index.CandidateIDs {
		candTokens := m.index.TokensByID[id]
		if len(candTokens) == 0 {
			continue
		}
		candNorm := m.index.NormalizedNameByID[id]

		score, fragment := bestWindow(rawTokens, normTokens, candTokens, candNorm)
		if score < m.threshold {
			continue
		}
		if score > bestScore ||
			(score == bestScore && bestID != 0 && len(candNorm) > len(m.index.NormalizedNameByID[bestID])) {
			bestID = id
			bestScore = score
			bestFragment = fragment
		}
	}

	if bestID == 0 {
		return 0, "", false
	}
	return bestID, bestFragment, true
}

func bestWindow(rawTokens, normTokens, candTokens []string, candNorm string) (float64, string) {
	width := len(candTokens)
	if width > len(rawTokens) {
		width = len(rawTokens)
	}

	bestScore := 0.0
	bestFragment := ""
	for start := 0; start+width <= len(rawTokens); start++ {
		window := normTokens[start : start+width]

		overlap := tokenOverlap(window, candTokens)
		if overlap == 0 {
			continue
		}
		tokenScore := float64(overlap) / float64(len(candTokens))
		dice := util.DiceCoefficient(strings.Join(window, " "), candNorm)
		score := 0.65*dice + 0.35*tokenScore

		if score > bestScore {
			bestScore = score
			bestFragment = strings.Join(rawTokens[start:start+width], " ")
		}
	}

	return bestScore, bestFragment
}

func tokenOverlap(window, candTokens []string) int {
	remaining := map[string]int{}
	for _, t := range candTokens {
		remaining[t]++
	}
	overlap := 0
	for _, t := range window {
		if remaining[t] > 0 {
			overlap++
			remaining[t]--
		}
	}
	return overlap
}

// windowTokens splits raw text on whitespace, keeping the original casing for
// fragment display alongside the normalized form used for comparison.
func windowTokens(text string) (raw []string, norm []string) {
	for _, token := range strings.Fields(text) {
		n := util.NormalizeText(token)
		if n == "" {
			continue
		}
		raw = append(raw, token)
		norm = append(norm, n)
	}
	return raw, norm
}
