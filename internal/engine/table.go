package engine

import (
	"maps"
	"slices"
)

// Table is one session's worth of store rows: the game state, the players in
// join order, and the votes cast so far.
type Table struct {
	State   GameState
	Players []Player
	Votes   []Vote
}

func NewTable(sessionID string) Table {
	return Table{
		State: GameState{
			ID:           sessionID,
			Phase:        PhaseLobby,
			PendingKills: []string{},
		},
		Players: []Player{},
		Votes:   []Vote{},
	}
}

func NewPlayer(id string, profile Profile) Player {
	return Player{
		ID:              id,
		Name:            profile.Name,
		Avatar:          profile.Avatar,
		Background:      profile.Background,
		Alive:           true,
		KnownIdentities: map[string]Role{},
	}
}

func (t *Table) Player(id string) *Player {
	if id == "" {
		return nil
	}
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i]
		}
	}
	return nil
}

func (t *Table) removePlayer(id string) {
	t.Players = slices.DeleteFunc(t.Players, func(p Player) bool { return p.ID == id })
}

// upsertVote replaces the voter's vote for the current round.
func (t *Table) upsertVote(v Vote) {
	for i := range t.Votes {
		if t.Votes[i].VoterID == v.VoterID && t.Votes[i].Round == v.Round {
			t.Votes[i] = v
			return
		}
	}
	t.Votes = append(t.Votes, v)
}

func (t Table) Clone() Table {
	return Table{
		State:   t.State.Clone(),
		Players: ClonePlayers(t.Players),
		Votes:   slices.Clone(t.Votes),
	}
}

func (s GameState) Clone() GameState {
	s.PendingKills = slices.Clone(s.PendingKills)
	return s
}

func (p Player) Clone() Player {
	p.KnownIdentities = maps.Clone(p.KnownIdentities)
	return p
}

func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	for i, p := range players {
		out[i] = p.Clone()
	}
	return out
}

func addPending(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removePending(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(x string) bool { return x == id })
}
