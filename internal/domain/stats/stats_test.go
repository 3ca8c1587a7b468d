package stats_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/attunehq/attune/internal/domain/model"
	stats "github.com/attunehq/attune/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

func round(teamID, roundID string, n int, item1, item2 model.Item) model.RoundRecord {
	return model.RoundRecord{
		RoundID:     roundID,
		TeamID:      teamID,
		RoundNumber: n,
		Player1Item: item1,
		Player2Item: item2,
		InitiatedAt: time.Now(),
	}
}

func answer(teamID, roundID, session string, item model.Item, response bool) model.AnswerRecord {
	return model.AnswerRecord{
		TeamID:          teamID,
		RoundID:         roundID,
		PlayerSessionID: session,
		AssignedItem:    item,
		Response:        response,
		AnsweredAt:      time.Now(),
	}
}

func TestCorrelation(t *testing.T) {
	Convey("Given a correlation engine", t, func() {
		e := stats.New()

		Convey("When a team has one (A,A) round with matching answers", func() {
			rounds := []model.RoundRecord{round("t1", "r1", 1, "A", "A")}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", "A", true),
				answer("t1", "r1", "p2", "A", true),
			}
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the (A,A) cell resolves to +1", func() {
				So(snap.Correlation, ShouldNotBeNil)
				coeff, ok := snap.Correlation.Coefficient("A", "A")
				So(ok, ShouldBeTrue)
				So(coeff, ShouldEqual, 1.0)
			})
		})

		Convey("When a team has one (A,A) round with differing answers", func() {
			rounds := []model.RoundRecord{round("t1", "r1", 1, "A", "A")}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", "A", true),
				answer("t1", "r1", "p2", "A", false),
			}
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the (A,A) cell resolves to -1", func() {
				coeff, ok := snap.Correlation.Coefficient("A", "A")
				So(ok, ShouldBeTrue)
				So(coeff, ShouldEqual, -1.0)
			})
		})

		Convey("When a cell has zero completed rounds", func() {
			snap := e.Compute(model.ModeCorrelation, nil, nil)

			Convey("Then the cell reports undefined instead of NaN", func() {
				_, ok := snap.Correlation.Coefficient("A", "A")
				So(ok, ShouldBeFalse)
				So(snap.Correlation.Rounds, ShouldEqual, 0)
				So(snap.Correlation.Significant, ShouldBeFalse)
			})
		})

		Convey("When a round is missing one answer", func() {
			rounds := []model.RoundRecord{
				round("t1", "r1", 1, "A", "X"),
				round("t1", "r2", 2, "A", "X"),
			}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", "A", true),
				answer("t1", "r1", "p2", "X", true),
				answer("t1", "r2", "p1", "A", false), // r2 never completed
			}
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the incomplete round is excluded, not an error", func() {
				cell, ok := snap.Correlation.Cell("A", "X")
				So(ok, ShouldBeTrue)
				So(cell.Total, ShouldEqual, 1)
				So(snap.Correlation.Rounds, ShouldEqual, 1)
			})
		})

		Convey("When answers do not match the round's assigned items", func() {
			rounds := []model.RoundRecord{round("t1", "r1", 1, "A", "X")}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", "B", true),
				answer("t1", "r1", "p2", "Y", true),
			}
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the malformed round is excluded", func() {
				So(snap.Correlation.Rounds, ShouldEqual, 0)
			})
		})
	})
}

func TestSignificance(t *testing.T) {
	Convey("Given an engine with a loose significance threshold", t, func() {
		// 0.5/sqrt(n) < 0.3 requires n >= 3 samples per cell.
		e := stats.New(stats.WithSignificanceThreshold(0.3))

		buildHistory := func(n int) ([]model.RoundRecord, []model.AnswerRecord) {
			var rounds []model.RoundRecord
			var answers []model.AnswerRecord
			for i := 0; i < n; i++ {
				id := fmt.Sprintf("r%d", i)
				rounds = append(rounds, round("t1", id, i+1, "A", "X"))
				answers = append(answers,
					answer("t1", id, "p1", "A", true),
					answer("t1", id, "p2", "X", true),
				)
			}
			return rounds, answers
		}

		Convey("When a cell has too few samples", func() {
			rounds, answers := buildHistory(2)
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the team is not significant", func() {
				So(snap.Correlation.Significant, ShouldBeFalse)
			})
		})

		Convey("When every cell has enough samples", func() {
			rounds, answers := buildHistory(3)
			snap := e.Compute(model.ModeCorrelation, rounds, answers)

			Convey("Then the significance flag is raised", func() {
				So(snap.Correlation.Significant, ShouldBeTrue)
			})
		})
	})
}

func TestSuccessRate(t *testing.T) {
	Convey("Given a success-rate engine", t, func() {
		e := stats.New()

		complete := func(item1, item2 model.Item, resp1, resp2 bool) ([]model.RoundRecord, []model.AnswerRecord) {
			rounds := []model.RoundRecord{round("t1", "r1", 1, item1, item2)}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", item1, resp1),
				answer("t1", "r1", "p2", item2, resp2),
			}
			return rounds, answers
		}

		Convey("When the pair is (B,Y) and the answers differ", func() {
			rounds, answers := complete("B", "Y", true, false)
			snap := e.Compute(model.ModeSuccessRate, rounds, answers)

			Convey("Then the round counts as a success", func() {
				So(snap.Success, ShouldNotBeNil)
				So(snap.Success.Successes, ShouldEqual, 1)
				So(snap.Success.Total, ShouldEqual, 1)
				So(snap.Success.Score, ShouldEqual, 1.0)
			})
		})

		Convey("When the pair is (Y,B) and the answers differ", func() {
			rounds, answers := complete("Y", "B", false, true)
			snap := e.Compute(model.ModeSuccessRate, rounds, answers)

			Convey("Then the unordered rule still applies", func() {
				So(snap.Success.Successes, ShouldEqual, 1)
			})
		})

		Convey("When the pair is (B,Y) and the answers match", func() {
			rounds, answers := complete("B", "Y", true, true)
			snap := e.Compute(model.ModeSuccessRate, rounds, answers)

			Convey("Then the round counts as a failure", func() {
				So(snap.Success.Successes, ShouldEqual, 0)
				So(snap.Success.Score, ShouldEqual, -1.0)
			})
		})

		Convey("When the pair is (A,X) and the answers match", func() {
			rounds, answers := complete("A", "X", true, true)
			snap := e.Compute(model.ModeSuccessRate, rounds, answers)

			Convey("Then the round counts as a success", func() {
				So(snap.Success.Successes, ShouldEqual, 1)
			})
		})

		Convey("When the pair is (A,X) and the answers differ", func() {
			rounds, answers := complete("A", "X", true, false)
			snap := e.Compute(model.ModeSuccessRate, rounds, answers)

			Convey("Then the round counts as a failure", func() {
				So(snap.Success.Successes, ShouldEqual, 0)
			})
		})

		Convey("When the team has no rounds", func() {
			snap := e.Compute(model.ModeSuccessRate, nil, nil)

			Convey("Then the snapshot is well-formed and zero", func() {
				So(snap.Success, ShouldNotBeNil)
				So(snap.Success.Total, ShouldEqual, 0)
				So(snap.Success.Score, ShouldEqual, 0.0)
				So(snap.ModeLabel, ShouldEqual, "success_rate")
			})
		})
	})
}

func TestEmptyAndDigest(t *testing.T) {
	Convey("Given the engine helpers", t, func() {
		e := stats.New()

		Convey("When asking for an empty snapshot", func() {
			snap := e.Empty(model.ModeCorrelation)

			Convey("Then it is tagged and non-nil", func() {
				So(snap.Correlation, ShouldNotBeNil)
				So(snap.Mode, ShouldEqual, model.ModeCorrelation)
			})
		})

		Convey("When computing a digest", func() {
			now := time.Now()
			rounds := []model.RoundRecord{round("t1", "r1", 1, "A", "X")}
			answers := []model.AnswerRecord{
				answer("t1", "r1", "p1", "A", true),
				{TeamID: "t1", RoundID: "r1", PlayerSessionID: "p2", AssignedItem: "X", Response: true, AnsweredAt: now},
			}
			d := stats.ComputeDigest(rounds, answers)

			Convey("Then counts and recency are summarized", func() {
				So(d.Rounds, ShouldEqual, 1)
				So(d.CompletedRounds, ShouldEqual, 1)
				So(d.Answers, ShouldEqual, 2)
				So(d.LastAnswerAt.IsZero(), ShouldBeFalse)
			})
		})
	})
}
