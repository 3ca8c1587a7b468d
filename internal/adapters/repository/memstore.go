package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/pkg/metrics"
)

// teamHistory is everything the store keeps per team. Rounds and answers
// stay in insertion order; the statistics engine depends on that.
type teamHistory struct {
	rounds  []model.RoundRecord
	answers []model.AnswerRecord
	active  bool
}

type shard struct {
	mu    sync.RWMutex
	teams map[string]*teamHistory
}

// MemStore is a sharded in-memory Store. Team identifiers are hashed onto
// a fixed set of shards so that hot teams do not serialize the whole game.
type MemStore struct {
	shardCount int
	shards     []*shard
}

// compile-time interface check
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty sharded store.
func NewMemStore(opts ...Option) *MemStore {
	m := &MemStore{
		shardCount: defaultShardCount,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.shards = make([]*shard, m.shardCount)
	for i := range m.shards {
		m.shards[i] = &shard{teams: make(map[string]*teamHistory)}
	}

	return m
}

func (m *MemStore) shardFor(teamID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(teamID))
	return m.shards[h.Sum32()%uint32(m.shardCount)]
}

// AppendRound records a round for a team, registering the team as active
// on first sight.
func (m *MemStore) AppendRound(ctx context.Context, r model.RoundRecord) error {
	if r.TeamID == "" {
		return ErrEmptyTeamID
	}
	if r.RoundID == "" {
		return ErrEmptyRoundID
	}

	s := m.shardFor(r.TeamID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.teams[r.TeamID]
	if !ok {
		h = &teamHistory{active: true}
		s.teams[r.TeamID] = h
	}
	h.rounds = append(h.rounds, r)

	return nil
}

// AppendAnswer records a player's answer. The store does not validate the
// answer against its round; incomplete or mismatched pairs are the
// statistics engine's concern.
func (m *MemStore) AppendAnswer(ctx context.Context, a model.AnswerRecord) error {
	if a.TeamID == "" {
		return ErrEmptyTeamID
	}
	if a.RoundID == "" {
		return ErrEmptyRoundID
	}

	s := m.shardFor(a.TeamID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.teams[a.TeamID]
	if !ok {
		h = &teamHistory{active: true}
		s.teams[a.TeamID] = h
	}
	h.answers = append(h.answers, a)

	return nil
}

// History returns copies of the team's rounds and answers so callers can
// read them without holding any store lock.
func (m *MemStore) History(ctx context.Context, teamID string) ([]model.RoundRecord, []model.AnswerRecord) {
	s := m.shardFor(teamID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.teams[teamID]
	if !ok {
		return nil, nil
	}

	rounds := make([]model.RoundRecord, len(h.rounds))
	copy(rounds, h.rounds)
	answers := make([]model.AnswerRecord, len(h.answers))
	copy(answers, h.answers)

	return rounds, answers
}

// SetTeamActive flips a team's dashboard visibility, registering the team
// if it is unknown.
func (m *MemStore) SetTeamActive(ctx context.Context, teamID string, active bool) {
	if teamID == "" {
		return
	}

	s := m.shardFor(teamID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.teams[teamID]
	if !ok {
		h = &teamHistory{}
		s.teams[teamID] = h
	}
	h.active = active
}

// ActiveTeams returns the sorted identifiers of currently active teams.
func (m *MemStore) ActiveTeams(ctx context.Context) []string {
	var teams []string
	for _, s := range m.shards {
		s.mu.RLock()
		for id, h := range s.teams {
			if h.active {
				teams = append(teams, id)
			}
		}
		s.mu.RUnlock()
	}

	sort.Strings(teams)
	return teams
}

// Counts returns the total number of known teams, rounds, and answers.
func (m *MemStore) Counts(ctx context.Context) (teams, rounds, answers int) {
	active := 0
	for _, s := range m.shards {
		s.mu.RLock()
		teams += len(s.teams)
		for _, h := range s.teams {
			rounds += len(h.rounds)
			answers += len(h.answers)
			if h.active {
				active++
			}
		}
		s.mu.RUnlock()
	}

	metrics.UpdateTotalTeams(teams)
	metrics.UpdateActiveTeams(active)

	return teams, rounds, answers
}

// Clear drops every team and its history.
func (m *MemStore) Clear(ctx context.Context) {
	for _, s := range m.shards {
		s.mu.Lock()
		s.teams = make(map[string]*teamHistory)
		s.mu.Unlock()
	}

	metrics.UpdateTotalTeams(0)
	metrics.UpdateActiveTeams(0)
}
