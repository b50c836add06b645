package connector

import (
	"time"

	"github.com/DoyleJ11/gondi/internal/engine"
	"github.com/DoyleJ11/gondi/internal/types"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusLoading      Status = "loading"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

const maxLog = 100

// Notice is an Error or Forbidden reply from the server.
type Notice struct {
	Kind    wire.ServerUpdateType
	Message string
	At      time.Time
}

// LocalState is what the player's device knows about the session.
type LocalState struct {
	Status        Status
	Session       wire.GameSession
	Game          engine.GameState
	HasGame       bool
	Players       []engine.Player
	Votes         []engine.Vote
	Announcements []string // the most recent ones
	Notices       []Notice
	Announced     int           // total announcements received
	Noticed       int           // total notices received
	LastPing      time.Time     // server clock at the last LastPing
	RoundTrip     time.Duration // measured from our last Ping
	LastError     string
}

// Player returns the player with id as this device sees them.
func (s LocalState) Player(id string) (engine.Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return engine.Player{}, false
}

func (s LocalState) clone() LocalState {
	out := s
	out.Game = s.Game.Clone()
	out.Players = engine.ClonePlayers(s.Players)
	out.Votes = append([]engine.Vote(nil), s.Votes...)
	out.Announcements = append([]string(nil), s.Announcements...)
	out.Notices = append([]Notice(nil), s.Notices...)
	return out
}

// apply folds one server update into the local state.
func (s *LocalState) apply(u types.ServerUpdate, now, pingSent time.Time) {
	switch u.Type {
	case wire.GameStateSnapshot:
		if u.State != nil {
			s.Game = u.State.Clone()
			s.HasGame = true
		}
	case wire.PlayersSnapshot:
		s.Players = engine.ClonePlayers(u.Players)
	case wire.VotesSnapshot:
		s.Votes = append([]engine.Vote(nil), u.Votes...)
	case wire.Announcement:
		s.Announcements = appendCapped(s.Announcements, u.Message)
		s.Announced++
	case wire.Error, wire.Forbidden:
		s.Notices = appendCapped(s.Notices, Notice{Kind: u.Type, Message: u.Message, At: now})
		s.Noticed++
	case wire.LastPing:
		s.LastPing = time.UnixMilli(u.TimestampMillis)
		if !pingSent.IsZero() {
			s.RoundTrip = now.Sub(pingSent)
		}
	}
}

func appendCapped[T any](log []T, v T) []T {
	log = append(log, v)
	if len(log) > maxLog {
		log = log[len(log)-maxLog:]
	}
	return log
}
