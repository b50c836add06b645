package types

import (
	"time"

	"github.com/DoyleJ11/gondi/internal/engine"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

func NewGameStateSnapshot(s engine.GameState) ServerUpdate {
	s = s.Clone()
	return ServerUpdate{Type: wire.GameStateSnapshot, State: &s}
}

func NewPlayersSnapshot(players []engine.Player) ServerUpdate {
	return ServerUpdate{Type: wire.PlayersSnapshot, Players: players}
}

func NewVotesSnapshot(votes []engine.Vote) ServerUpdate {
	return ServerUpdate{Type: wire.VotesSnapshot, Votes: votes}
}

func NewAnnouncement(msg string) ServerUpdate {
	return ServerUpdate{Type: wire.Announcement, Message: msg}
}

func NewLastPing(now time.Time) ServerUpdate {
	return ServerUpdate{Type: wire.LastPing, TimestampMillis: now.UnixMilli()}
}

func NewError(msg string) ServerUpdate {
	return ServerUpdate{Type: wire.Error, Message: msg}
}

func NewForbidden(msg string) ServerUpdate {
	return ServerUpdate{Type: wire.Forbidden, Message: msg}
}
