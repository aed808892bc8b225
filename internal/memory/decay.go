package memory

import "math"

// RankConfig holds the tunable constants of the retrieval ranking.
// The decay cutoff and the score weights have no principled derivation;
// they are configuration, and tests assert ordering properties only.
type RankConfig struct {
	HighImportanceCutoff float64 // base importance above this decays slowly
	SlowDecayRate        float64 // daily retention for high-importance records
	FastDecayRate        float64 // daily retention for everything else
	SimilarityFloor      float64 // hits below this similarity are discarded
	ImportanceWeight     float64 // weight of decayed importance in the score
	SimilarityWeight     float64 // weight of similarity in the score
	CandidateMultiplier  int     // fetch multiplier before filtering (3k for top-k)
}

// DefaultRankConfig returns the documented defaults.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		HighImportanceCutoff: 0.7,
		SlowDecayRate:        0.95,
		FastDecayRate:        0.90,
		SimilarityFloor:      0.25,
		ImportanceWeight:     0.4,
		SimilarityWeight:     0.6,
		CandidateMultiplier:  3,
	}
}

// DecayedImportance computes the effective importance of a record after
// daysAgo days. Non-increasing in daysAgo for a fixed base importance.
func (c RankConfig) DecayedImportance(importance, daysAgo float64) float64 {
	if daysAgo < 0 {
		daysAgo = 0
	}
	rate := c.FastDecayRate
	if importance > c.HighImportanceCutoff {
		rate = c.SlowDecayRate
	}
	return importance * math.Pow(rate, daysAgo)
}

// Score blends decayed importance and similarity into the final ranking score.
func (c RankConfig) Score(decayedImportance, similarity float64) float64 {
	return c.ImportanceWeight*decayedImportance + c.SimilarityWeight*similarity
}
