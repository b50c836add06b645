package engine

import (
	"errors"
)

var ErrNoSession = errors.New("session not found")

// Rule violations. These are reported to the sender as Forbidden and never
// mutate state.
var (
	ErrWrongPhase         = errors.New("action not allowed in this phase")
	ErrNotAlive           = errors.New("player is not alive")
	ErrWrongRole          = errors.New("role cannot perform this action")
	ErrStaleRound         = errors.New("intent is for a different round")
	ErrInvalidTarget      = errors.New("invalid target")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrAlreadyAccused     = errors.New("an accusation is already pending")
	ErrNotAccused         = errors.New("target is not the accused player")
	ErrAccusedCannotAct   = errors.New("the accused player cannot do this")
	ErrGameOver           = errors.New("game is over")
	ErrUnsupportedIntent  = errors.New("unsupported intent")
	ErrIllegalTransition  = errors.New("illegal phase transition")
	ErrRoleAssigned       = errors.New("role already assigned")
	ErrUnknownRole        = errors.New("unknown role")
	ErrRolesUnassigned    = errors.New("every player needs a role before the game starts")
	ErrUnknownFaction     = errors.New("unknown faction")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

var ruleViolations = []error{
	ErrWrongPhase, ErrNotAlive, ErrWrongRole, ErrStaleRound, ErrInvalidTarget,
	ErrUnknownPlayer, ErrAlreadyAccused, ErrNotAccused, ErrAccusedCannotAct,
	ErrGameOver, ErrUnsupportedIntent, ErrIllegalTransition, ErrRoleAssigned,
	ErrUnknownRole, ErrRolesUnassigned, ErrUnknownFaction, ErrUnsupportedCommand,
}

// IsRuleViolation reports whether err was produced by a game rule rather
// than by the store.
func IsRuleViolation(err error) bool {
	for _, target := range ruleViolations {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseSleep    Phase = "SLEEP"
	PhaseTownHall Phase = "TOWN_HALL"
	PhaseCourt    Phase = "COURT"
	PhaseGameOver Phase = "GAME_OVER"
)

type Faction string

const (
	FactionMafia   Faction = "MAFIA"
	FactionCitizen Faction = "CITIZEN"
	FactionNeutral Faction = "NEUTRAL"
)

func (f Faction) Valid() bool {
	switch f {
	case FactionMafia, FactionCitizen, FactionNeutral:
		return true
	}
	return false
}

type GameState struct {
	ID                string   `json:"id"`
	Phase             Phase    `json:"phase"`
	Round             int      `json:"round"`
	PendingKills      []string `json:"pending_kills"`
	LastSavedPlayerID string   `json:"last_saved_player_id,omitempty"`
	AccusedPlayerID   string   `json:"accused_player_id,omitempty"`
	Reveal            bool     `json:"reveal"`
	Winner            Faction  `json:"winner,omitempty"`
}

type Player struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Role            Role            `json:"role,omitempty"`
	Avatar          string          `json:"avatar,omitempty"`
	Background      string          `json:"background,omitempty"`
	Alive           bool            `json:"alive"`
	LastAction      IntentType      `json:"last_action,omitempty"`
	LastTarget      string          `json:"last_target,omitempty"`
	KnownIdentities map[string]Role `json:"known_identities,omitempty"` // player id -> role
}

type Vote struct {
	VoterID  string `json:"voter_id"`
	TargetID string `json:"target_id"`
	Guilty   bool   `json:"guilty"`
	Round    int    `json:"round"`
}

// Profile is the display identity a player joins with.
type Profile struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	Background string `json:"background,omitempty"`
}
