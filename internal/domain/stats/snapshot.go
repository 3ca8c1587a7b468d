// Package stats computes team agreement statistics from round/answer history.
//
// Everything in this package is pure: no locks, no caches, no clocks beyond
// the timestamps already present in the records. Callers decide when a
// computation is worth paying for.
package stats

import (
	"math"
	"time"

	"github.com/attunehq/attune/internal/domain/model"
)

// PairCell is one cell of the correlation matrix: agreement counts for an
// ordered item-label pair.
type PairCell struct {
	First      model.Item `json:"first"`
	Second     model.Item `json:"second"`
	Agreements int        `json:"agreements"`
	Total      int        `json:"total"`
}

// Coefficient derives the agreement correlation in [-1, 1].
// The second return is false when the cell has no samples; callers must not
// treat the zero value as a real coefficient.
func (c PairCell) Coefficient() (float64, bool) {
	if c.Total == 0 {
		return 0, false
	}
	return float64(2*c.Agreements-c.Total) / float64(c.Total), true
}

// standardError is the worst-case binomial standard error for the cell,
// 0.5/sqrt(n). Using the p=0.5 bound keeps the significance decision
// monotonic in sample count and free of 0/0 cases.
func (c PairCell) standardError() float64 {
	if c.Total == 0 {
		return 1
	}
	return 0.5 / math.Sqrt(float64(c.Total))
}

// CorrelationSnapshot is the correlation-mode statistic for one team.
type CorrelationSnapshot struct {
	Cells       []PairCell `json:"cells"`
	Rounds      int        `json:"rounds"`
	Significant bool       `json:"significant"`
}

// Cell looks up the matrix cell for an ordered item pair.
// Absent cells report ok=false: they are undefined, not zero.
func (s *CorrelationSnapshot) Cell(first, second model.Item) (PairCell, bool) {
	for _, c := range s.Cells {
		if c.First == first && c.Second == second {
			return c, true
		}
	}
	return PairCell{}, false
}

// Coefficient returns the correlation for an ordered item pair, or ok=false
// when the pair has no completed rounds.
func (s *CorrelationSnapshot) Coefficient(first, second model.Item) (float64, bool) {
	c, ok := s.Cell(first, second)
	if !ok {
		return 0, false
	}
	return c.Coefficient()
}

// SuccessSnapshot is the success-rate statistic for one team.
type SuccessSnapshot struct {
	Successes int `json:"successes"`
	Total     int `json:"total"`
	// Score is the normalized cumulative score: (+1 per success, -1 per
	// failure) / total. Zero when no rounds completed.
	Score float64 `json:"score"`
}

// Digest is the cheap per-team history fingerprint shown alongside the
// heavier statistics on the dashboard.
type Digest struct {
	Rounds          int       `json:"rounds"`
	CompletedRounds int       `json:"completed_rounds"`
	Answers         int       `json:"answers"`
	LastAnswerAt    time.Time `json:"last_answer_at,omitzero"`
}

// Snapshot is the unit stored in the cache and served to viewers. Exactly
// one of Correlation or Success is set, matching Mode at computation time.
type Snapshot struct {
	Mode        model.MetricMode     `json:"-"`
	ModeLabel   string               `json:"mode"`
	ComputedAt  time.Time            `json:"computed_at"`
	Correlation *CorrelationSnapshot `json:"correlation,omitempty"`
	Success     *SuccessSnapshot     `json:"success,omitempty"`
}

// CompletedRound pairs a round with both players' responses.
type CompletedRound struct {
	Round     model.RoundRecord
	Response1 bool // answer for Round.Player1Item
	Response2 bool // answer for Round.Player2Item
}
