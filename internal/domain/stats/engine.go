package stats

import (
	"sort"
	"time"

	"github.com/attunehq/attune/internal/domain/model"
)

// Default engine configuration constants.
const (
	// defaultSignificanceThreshold bounds the worst-case binomial standard
	// error per cell; 0.15 requires roughly a dozen samples per cell.
	defaultSignificanceThreshold = 0.15
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSignificanceThreshold sets the standard-error bound a team's matrix
// cells must all reach before the significance flag is raised.
func WithSignificanceThreshold(threshold float64) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.significanceThreshold = threshold
		}
	}
}

// WithClock overrides the time source stamped onto snapshots. Used in tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine maps a team's ordered round/answer history to a metric snapshot.
// It owns no state between calls.
type Engine struct {
	significanceThreshold float64
	clock                 func() time.Time
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		significanceThreshold: defaultSignificanceThreshold,
		clock:                 time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Compute produces the snapshot for the requested mode. Only the requested
// mode's statistic is computed. A team with no usable history yields a
// well-formed zero snapshot, never an error.
func (e *Engine) Compute(mode model.MetricMode, rounds []model.RoundRecord, answers []model.AnswerRecord) Snapshot {
	completed := CompleteRounds(rounds, answers)

	snap := Snapshot{
		Mode:       mode,
		ModeLabel:  mode.String(),
		ComputedAt: e.clock(),
	}
	switch mode {
	case model.ModeSuccessRate:
		snap.Success = successRate(completed)
	default:
		snap.Correlation = e.correlate(completed)
	}
	return snap
}

// Empty returns the well-formed zero snapshot for a mode. Served for teams
// with no history so callers never see an error or a nil snapshot.
func (e *Engine) Empty(mode model.MetricMode) Snapshot {
	return e.Compute(mode, nil, nil)
}

// correlate accumulates the per-pair agreement matrix.
func (e *Engine) correlate(completed []CompletedRound) *CorrelationSnapshot {
	type key struct{ first, second model.Item }
	cells := make(map[key]*PairCell)

	for _, cr := range completed {
		k := key{cr.Round.Player1Item, cr.Round.Player2Item}
		c := cells[k]
		if c == nil {
			c = &PairCell{First: k.first, Second: k.second}
			cells[k] = c
		}
		c.Total++
		if cr.Response1 == cr.Response2 {
			c.Agreements++
		}
	}

	out := &CorrelationSnapshot{
		Cells:  make([]PairCell, 0, len(cells)),
		Rounds: len(completed),
	}
	for _, c := range cells {
		out.Cells = append(out.Cells, *c)
	}
	sort.Slice(out.Cells, func(i, j int) bool {
		if out.Cells[i].First != out.Cells[j].First {
			return out.Cells[i].First < out.Cells[j].First
		}
		return out.Cells[i].Second < out.Cells[j].Second
	})

	out.Significant = len(out.Cells) > 0
	for _, c := range out.Cells {
		if c.standardError() >= e.significanceThreshold {
			out.Significant = false
			break
		}
	}
	return out
}

// successRate accumulates the success-rate statistic.
// The {B, Y} item combination succeeds when the answers differ; every other
// combination succeeds when the answers match.
func successRate(completed []CompletedRound) *SuccessSnapshot {
	out := &SuccessSnapshot{}
	for _, cr := range completed {
		out.Total++
		if roundSucceeded(cr) {
			out.Successes++
		}
	}
	if out.Total > 0 {
		failures := out.Total - out.Successes
		out.Score = float64(out.Successes-failures) / float64(out.Total)
	}
	return out
}

// roundSucceeded applies the fixed success rule for a completed round.
func roundSucceeded(cr CompletedRound) bool {
	if isMismatchPair(cr.Round.Player1Item, cr.Round.Player2Item) {
		return cr.Response1 != cr.Response2
	}
	return cr.Response1 == cr.Response2
}

// isMismatchPair reports whether the unordered item combination is {B, Y},
// the one pairing where players are supposed to answer differently.
func isMismatchPair(a, b model.Item) bool {
	return (a == "B" && b == "Y") || (a == "Y" && b == "B")
}

// CompleteRounds pairs rounds with both players' answers. Rounds with a
// missing, surplus, or mismatched answer set are excluded from aggregation
// rather than treated as errors.
func CompleteRounds(rounds []model.RoundRecord, answers []model.AnswerRecord) []CompletedRound {
	byRound := make(map[string][]model.AnswerRecord, len(rounds))
	for _, a := range answers {
		byRound[a.RoundID] = append(byRound[a.RoundID], a)
	}

	completed := make([]CompletedRound, 0, len(rounds))
	for _, r := range rounds {
		got := byRound[r.RoundID]
		if len(got) != 2 {
			continue
		}
		a1, a2, ok := orientAnswers(r, got[0], got[1])
		if !ok {
			continue
		}
		completed = append(completed, CompletedRound{
			Round:     r,
			Response1: a1,
			Response2: a2,
		})
	}
	return completed
}

// orientAnswers maps the two answers onto (Player1Item, Player2Item) order.
// Returns ok=false when the answers' assigned items do not match the round.
func orientAnswers(r model.RoundRecord, x, y model.AnswerRecord) (bool, bool, bool) {
	switch {
	case x.AssignedItem == r.Player1Item && y.AssignedItem == r.Player2Item:
		return x.Response, y.Response, true
	case y.AssignedItem == r.Player1Item && x.AssignedItem == r.Player2Item:
		return y.Response, x.Response, true
	}
	return false, false, false
}

// ComputeDigest summarizes a team's history without touching the statistics
// paths. Cheap enough to recompute freely, cached anyway so invalidation
// covers every key family uniformly.
func ComputeDigest(rounds []model.RoundRecord, answers []model.AnswerRecord) Digest {
	d := Digest{
		Rounds:          len(rounds),
		CompletedRounds: len(CompleteRounds(rounds, answers)),
		Answers:         len(answers),
	}
	for _, a := range answers {
		if a.AnsweredAt.After(d.LastAnswerAt) {
			d.LastAnswerAt = a.AnsweredAt
		}
	}
	return d
}
