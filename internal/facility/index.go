package facility

import (
	"sort"

	"spccvault/internal"
	"spccvault/internal/util"
)

// Index holds precomputed lookup structures over the candidate set. Retired
// facilities never enter the index; filtering happens here, before any
// matching runs.
type Index struct {
	FacilitiesByID     map[int]internal.Facility
	NormalizedNameByID map[int]string
	TokensByID         map[int][]string
	// CandidateIDs is ordered by descending normalized-name length so the
	// exact pass can prefer the most specific name without re-sorting.
	CandidateIDs []int
}

func BuildIndex(facilities []internal.Facility) *Index {
	idx := &Index{
		FacilitiesByID:     map[int]internal.Facility{},
		NormalizedNameByID: map[int]string{},
		TokensByID:         map[int][]string{},
	}

	for _, f := range facilities {
		if !f.IsCandidate() {
			continue
		}
		norm := util.NormalizeText(f.Name)
		if norm == "" {
			continue
		}
		idx.FacilitiesByID[f.ID] = f
		idx.NormalizedNameByID[f.ID] = norm
		idx.TokensByID[f.ID] = util.Tokenize(f.Name)
		idx.CandidateIDs = append(idx.CandidateIDs, f.ID)
	}

	sort.Slice(idx.CandidateIDs, func(i, j int) bool {
		a := idx.NormalizedNameByID[idx.CandidateIDs[i]]
		b := idx.NormalizedNameByID[idx.CandidateIDs[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return idx.CandidateIDs[i] < idx.CandidateIDs[j]
	})

	return idx
}
