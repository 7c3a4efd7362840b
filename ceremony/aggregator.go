package ceremony

import (
	"fmt"
	"sort"
	"time"

	"github.com/vocdoni/tally-z-sandbox/types"
)

// Aggregator turns stored partial decryptions into the final tally. The tally
// is all-or-nothing: a single entry that cannot be decrypted fails the whole
// run, so no partial counts ever leave this package.
type Aggregator struct {
	combiner PartialCombiner
}

// NewAggregator creates an Aggregator using the given combiner capability.
func NewAggregator(combiner PartialCombiner) *Aggregator {
	return &Aggregator{combiner: combiner}
}

// Tally decrypts every bound entry from its partial decryptions and
// aggregates the choices into per-candidate counts. Entries must carry at
// least requiredShares partials each; the quorum used per entry is
// deterministic, so re-running a tally over the same material yields the same
// result.
func (a *Aggregator) Tally(entries []*types.VoteEntry, partials map[string][]*types.PartialDecryption, requiredShares int) (*types.TallyResult, error) {
	counts := make(map[uint64]uint64)
	participating := make(map[int]bool)
	for _, entry := range entries {
		entryPartials := partials[string(entry.ID)]
		if len(entryPartials) < requiredShares {
			return nil, fmt.Errorf("entry %s has %d of %d required partials",
				entry.ID.String(), len(entryPartials), requiredShares)
		}
		quorum := selectQuorum(entryPartials, requiredShares)
		choice, err := a.combiner.CombinePartials(entry.ID, entry.EncryptedVote, quorum)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt entry %s: %w", entry.ID.String(), err)
		}
		counts[choice]++
		for _, partial := range quorum {
			participating[partial.TrusteeID] = true
		}
	}

	result := &types.TallyResult{
		TotalVotes:  uint64(len(entries)),
		CompletedAt: time.Now(),
	}
	candidates := make([]uint64, 0, len(counts))
	for id := range counts {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	for _, id := range candidates {
		result.Candidates = append(result.Candidates, types.CandidateTally{
			CandidateID: id,
			Votes:       counts[id],
		})
	}
	trustees := make([]int, 0, len(participating))
	for id := range participating {
		trustees = append(trustees, id)
	}
	sort.Ints(trustees)
	result.ParticipatingTrustees = trustees
	return result, nil
}

// selectQuorum picks the partials of the lowest requiredShares trustee IDs,
// which keeps the per-entry quorum stable across runs.
func selectQuorum(partials []*types.PartialDecryption, required int) []*types.PartialDecryption {
	sorted := make([]*types.PartialDecryption, len(partials))
	copy(sorted, partials)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TrusteeID < sorted[j].TrusteeID })
	return sorted[:required]
}
