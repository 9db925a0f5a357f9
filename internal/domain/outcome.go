package domain

// ConsensusPath records how the final text of a scan was reached.
type ConsensusPath string

const (
	// PathAgreed means both initial passes returned identical text.
	PathAgreed ConsensusPath = "agreed"
	// PathArbitrated means the passes differed and an arbitration call chose the final text.
	PathArbitrated ConsensusPath = "arbitrated"
	// PathDegraded means the passes differed, arbitration failed, and the first candidate was kept.
	PathDegraded ConsensusPath = "degraded"
)

// ConsensusOutcome is the audit record of one reconciliation.
type ConsensusOutcome struct {
	Path             ConsensusPath `json:"path"`
	CandidateA       string        `json:"candidate_a"`
	CandidateB       string        `json:"candidate_b"`
	FinalText        string        `json:"final_text"`
	BackendCalls     int           `json:"backend_calls"`
	ArbitrationError string        `json:"arbitration_error,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
}

// Degraded reports whether the final text is a lower-confidence fallback.
func (o *ConsensusOutcome) Degraded() bool {
	return o.Path == PathDegraded
}

// ScoreReport compares a transcription against a reference text.
type ScoreReport struct {
	EditDistance      int     `json:"edit_distance"`
	SimilarityPercent float64 `json:"similarity_percent"`
	JaroWinkler       float64 `json:"jaro_winkler"`
}
