package cache

import "strings"

// Key families used by the snapshot cache. One family per memoized
// statistic, all keyed by team identity.
const (
	FamilyCorrelation = "correlation"
	FamilySuccess     = "success"
	FamilyDigest      = "digest"
)

// keySeparator joins key components in the map-index form. The unit
// separator cannot appear in team identifiers coming off the wire.
const keySeparator = "\x1f"

// Key is a structured cache fingerprint. Scoped invalidation compares the
// TeamID component exactly; it never substring-matches the joined form, so
// "Team1" can never shadow "Team11" or "MyTeam1", and a team that happens
// to be named after a family token only ever stales its own entries.
type Key struct {
	Family string
	TeamID string
	Extra  []string
}

// NewKey builds a key from a family, a team identifier, and optional extra
// discriminators (e.g. the metric mode at computation time).
func NewKey(family, teamID string, extra ...string) Key {
	return Key{Family: family, TeamID: teamID, Extra: extra}
}

// index returns the joined form used purely as the map index.
func (k Key) index() string {
	parts := make([]string, 0, 2+len(k.Extra))
	parts = append(parts, k.Family, k.TeamID)
	parts = append(parts, k.Extra...)
	return strings.Join(parts, keySeparator)
}

// String implements fmt.Stringer for logs.
func (k Key) String() string {
	return strings.ReplaceAll(k.index(), keySeparator, "/")
}

// matchesTeam reports whether the key belongs to the given team. Scoped
// invalidation is always by team, so only the TeamID component is compared;
// family tokens and extra discriminators are never eligible matches even
// when a team identifier collides with one of them.
func (k Key) matchesTeam(teamID string) bool {
	return k.TeamID == teamID
}
