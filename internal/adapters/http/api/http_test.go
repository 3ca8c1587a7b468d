package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/attunehq/attune/internal/adapters/http/api"
	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/internal/domain/stats"
	"github.com/attunehq/attune/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeDeps implements api.Dependencies with canned data.
type fakeDeps struct {
	rounds  []model.RoundRecord
	answers []model.AnswerRecord
	states  map[string]bool
	mode    model.MetricMode
	resets  int
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{states: make(map[string]bool)}
}

func (f *fakeDeps) RecordRound(ctx context.Context, r model.RoundRecord) error {
	f.rounds = append(f.rounds, r)
	return nil
}

func (f *fakeDeps) SubmitAnswer(ctx context.Context, a model.AnswerRecord) error {
	f.answers = append(f.answers, a)
	return nil
}

func (f *fakeDeps) SetTeamState(ctx context.Context, teamID string, active bool) error {
	f.states[teamID] = active
	return nil
}

func (f *fakeDeps) ToggleMode(ctx context.Context) (model.MetricMode, error) {
	f.mode = f.mode.Toggled()
	return f.mode, nil
}

func (f *fakeDeps) ResetGame(ctx context.Context) error {
	f.resets++
	return nil
}

func (f *fakeDeps) TeamSnapshot(ctx context.Context, teamID string) (stats.Snapshot, error) {
	return stats.Snapshot{
		Mode:       f.mode,
		ModeLabel:  f.mode.String(),
		ComputedAt: time.Now(),
		Correlation: &stats.CorrelationSnapshot{
			Cells:  []stats.PairCell{{First: "A", Second: "A", Agreements: 3, Total: 4}},
			Rounds: 4,
		},
	}, nil
}

func (f *fakeDeps) TeamDigest(ctx context.Context, teamID string) (stats.Digest, error) {
	return stats.Digest{Rounds: 4, CompletedRounds: 4, Answers: 8}, nil
}

func (f *fakeDeps) DashboardView(ctx context.Context) (api.Dashboard, error) {
	return api.Dashboard{Mode: f.mode.String(), GeneratedAt: time.Now()}, nil
}

func (f *fakeDeps) Mode() model.MetricMode { return f.mode }

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *fakeDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRoundEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps)

		Convey("When posting a valid round", func() {
			rec := do(mux, http.MethodPost, "/rounds",
				`{"round_id":"r1","team_id":"Team1","round_number":1,"player1_item":"A","player2_item":"X"}`)

			Convey("Then it is accepted and recorded", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.rounds, ShouldHaveLength, 1)
				So(deps.rounds[0].TeamID, ShouldEqual, "Team1")
			})
		})

		Convey("When posting a round without a team", func() {
			rec := do(mux, http.MethodPost, "/rounds",
				`{"round_id":"r1","player1_item":"A","player2_item":"X"}`)

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.rounds, ShouldBeEmpty)
			})
		})

		Convey("When posting malformed JSON", func() {
			rec := do(mux, http.MethodPost, "/rounds", `{`)

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When using the wrong method", func() {
			rec := do(mux, http.MethodGet, "/rounds", "")

			Convey("Then the route does not exist", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAnswerEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps)

		Convey("When posting a valid answer", func() {
			rec := do(mux, http.MethodPost, "/answers",
				`{"team_id":"Team1","round_id":"r1","player_session_id":"p1","assigned_item":"A","response":false}`)

			Convey("Then it is accepted even when the response is false", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.answers, ShouldHaveLength, 1)
				So(deps.answers[0].Response, ShouldBeFalse)
			})
		})

		Convey("When the response field is missing", func() {
			rec := do(mux, http.MethodPost, "/answers",
				`{"team_id":"Team1","round_id":"r1","player_session_id":"p1","assigned_item":"A"}`)

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.answers, ShouldBeEmpty)
			})
		})

		Convey("When the timestamp is malformed", func() {
			rec := do(mux, http.MethodPost, "/answers",
				`{"team_id":"Team1","round_id":"r1","player_session_id":"p1","assigned_item":"A","response":true,"ts":"yesterday"}`)

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps)

		Convey("When setting a team inactive", func() {
			rec := do(mux, http.MethodPost, "/teams/state", `{"team_id":"Team1","active":false}`)

			Convey("Then the state change lands", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.states["Team1"], ShouldBeFalse)
			})
		})

		Convey("When toggling the mode", func() {
			rec := do(mux, http.MethodPost, "/mode/toggle", "")

			Convey("Then the new mode is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp map[string]string
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["mode"], ShouldEqual, "success_rate")
			})
		})

		Convey("When resetting the game", func() {
			rec := do(mux, http.MethodPost, "/reset", "")

			Convey("Then the reset is acknowledged", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.resets, ShouldEqual, 1)
			})
		})
	})
}

func TestReadEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps)

		Convey("When fetching a team snapshot", func() {
			rec := do(mux, http.MethodGet, "/snapshot/Team1", "")

			Convey("Then the snapshot is returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var snap stats.Snapshot
				So(json.Unmarshal(rec.Body.Bytes(), &snap), ShouldBeNil)
				So(snap.ModeLabel, ShouldEqual, "correlation")
				So(snap.Correlation.Rounds, ShouldEqual, 4)
			})
		})

		Convey("When the snapshot path has no team", func() {
			rec := do(mux, http.MethodGet, "/snapshot/", "")

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching a team digest", func() {
			rec := do(mux, http.MethodGet, "/digest/Team1", "")

			Convey("Then the digest is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var d stats.Digest
				So(json.Unmarshal(rec.Body.Bytes(), &d), ShouldBeNil)
				So(d.Rounds, ShouldEqual, 4)
			})
		})

		Convey("When fetching the dashboard", func() {
			rec := do(mux, http.MethodGet, "/dashboard", "")

			Convey("Then the dashboard is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var d api.Dashboard
				So(json.Unmarshal(rec.Body.Bytes(), &d), ShouldBeNil)
				So(d.Mode, ShouldEqual, "correlation")
			})
		})

		Convey("When fetching stats", func() {
			rec := do(mux, http.MethodGet, "/stats", "")

			Convey("Then service statistics come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "started")
			})
		})
	})
}

func TestRateLimiting(t *testing.T) {
	Convey("Given a server with a tight write limit", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps, api.WithRateLimiter(api.NewRateLimiter(1, 2)))

		body := `{"team_id":"Team1","round_id":"r1","player_session_id":"p1","assigned_item":"A","response":true}`

		Convey("When a client bursts past the limit", func() {
			codes := make([]int, 0, 4)
			for i := 0; i < 4; i++ {
				codes = append(codes, do(mux, http.MethodPost, "/answers", body).Code)
			}

			Convey("Then later requests are throttled", func() {
				So(codes[0], ShouldEqual, http.StatusAccepted)
				So(codes[1], ShouldEqual, http.StatusAccepted)
				So(codes[2], ShouldEqual, http.StatusTooManyRequests)
				So(codes[3], ShouldEqual, http.StatusTooManyRequests)
			})

			Convey("Then read routes stay unthrottled", func() {
				So(do(mux, http.MethodGet, "/dashboard", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
