// Package resolve decides, for each observed mention, whether it belongs to
// an existing canonical entity, warrants a brand-new one, or is genuinely
// ambiguous and must be escalated rather than silently merged.
package resolve

import (
	"github.com/caselight/caselight/entity/match"
	"github.com/caselight/caselight/entity/types"
)

// Outcome is the decision for one mention.
type Outcome string

const (
	// OutcomeMergeExact merges into the single entity matched by exact alias.
	OutcomeMergeExact Outcome = "merge_exact"
	// OutcomeMergeFingerprint merges into the single entity matched only by
	// fingerprint; weaker evidence, but unambiguous.
	OutcomeMergeFingerprint Outcome = "merge_fingerprint"
	// OutcomeNew creates a brand-new canonical entity.
	OutcomeNew Outcome = "new"
	// OutcomeAmbiguous creates an unresolved placeholder plus PENDING
	// candidate links for later adjudication.
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Decision is the pure result of applying the resolution policy to a
// candidate set. Target is set only for the merge outcomes; Candidates
// carries every originally-found candidate and feeds link creation for
// the ambiguous outcome.
type Decision struct {
	Outcome    Outcome
	Target     *match.Candidate
	Confidence float64
	Candidates []match.Candidate
}

// Decide applies the deterministic resolution policy:
//
//  1. A single exact-alias entity wins outright.
//  2. No exact match but a single fingerprint entity: merge on the weaker
//     evidence.
//  3. More than one exact entity, or no exact and more than one fingerprint
//     entity: ambiguous. Never guess between real-world identities.
//  4. Nothing matched: new entity.
//
// Pure function over the candidate list; storage writes implied by the
// decision are the engine's job.
func Decide(candidates []match.Candidate) Decision {
	exact, fingerprint := match.Partition(candidates)

	switch {
	case len(exact) == 1:
		return Decision{
			Outcome:    OutcomeMergeExact,
			Target:     &exact[0],
			Confidence: types.ScoreExactAlias,
			Candidates: candidates,
		}
	case len(exact) == 0 && len(fingerprint) == 1:
		return Decision{
			Outcome:    OutcomeMergeFingerprint,
			Target:     &fingerprint[0],
			Confidence: types.ScoreKeyFingerprint,
			Candidates: candidates,
		}
	case len(exact) > 1 || len(fingerprint) > 1:
		return Decision{
			Outcome:    OutcomeAmbiguous,
			Confidence: types.ScoreAmbiguous,
			Candidates: candidates,
		}
	default:
		return Decision{
			Outcome:    OutcomeNew,
			Confidence: types.ScoreExactAlias,
			Candidates: candidates,
		}
	}
}
