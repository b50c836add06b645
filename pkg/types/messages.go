// Package types holds the public vocabulary of the Gondi wire protocol: the
// message type names and the session identity that LAN discovery publishes.
package types

// ClientUpdateType names a client to server message.
//
// PlayerIntentMsg carries intent: { type, player_id, round, target_id?,
// guilty?, profile? }. GetGameState and Ping carry no payload.
type ClientUpdateType string

const (
	PlayerIntentMsg ClientUpdateType = "PlayerIntentMsg"
	GetGameState    ClientUpdateType = "GetGameState"
	Ping            ClientUpdateType = "Ping"
)

// ServerUpdateType names a server to client message.
//
// GameStateSnapshot carries state: { id, phase, round, pending_kills,
// last_saved_player_id?, accused_player_id?, reveal, winner? }.
//
// PlayersSnapshot carries players: [{ id, name, role?, avatar?, background?,
// alive, last_action?, last_target?, known_identities? }]. Roles and known
// identities are redacted per recipient.
//
// VotesSnapshot carries votes: [{ voter_id, target_id, guilty, round }].
//
// Announcement, Error and Forbidden carry message: string. LastPing carries
// timestamp_millis: number.
type ServerUpdateType string

const (
	GameStateSnapshot ServerUpdateType = "GameStateSnapshot"
	PlayersSnapshot   ServerUpdateType = "PlayersSnapshot"
	VotesSnapshot     ServerUpdateType = "VotesSnapshot"
	Announcement      ServerUpdateType = "Announcement"
	LastPing          ServerUpdateType = "LastPing"
	Error             ServerUpdateType = "Error"
	Forbidden         ServerUpdateType = "Forbidden"
)

func (t ClientUpdateType) Valid() bool {
	switch t {
	case PlayerIntentMsg, GetGameState, Ping:
		return true
	}
	return false
}

func (t ServerUpdateType) Valid() bool {
	switch t {
	case GameStateSnapshot, PlayersSnapshot, VotesSnapshot, Announcement, LastPing, Error, Forbidden:
		return true
	}
	return false
}
