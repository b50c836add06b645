package engine

type CommandType string

const (
	CmdCreateGame      CommandType = "CreateGame"
	CmdAdvancePhase    CommandType = "AdvancePhase"
	CmdRevealDeaths    CommandType = "RevealDeaths"
	CmdRemovePlayer    CommandType = "RemovePlayer"
	CmdAssignRole      CommandType = "AssignRole"
	CmdAssignRoleBatch CommandType = "AssignRoleBatch"
	CmdDeclareWinner   CommandType = "DeclareWinner"
	CmdStartGame       CommandType = "StartGame"
	CmdResetGame       CommandType = "ResetGame"
	CmdResolveCourt    CommandType = "ResolveCourt"
)

/*
	CmdCreateGame      SessionID, State (optional), Host (optional)
	CmdAdvancePhase    Phase
	CmdRevealDeaths    PlayerIDs
	CmdRemovePlayer    PlayerID
	CmdAssignRole      PlayerID, Role
	CmdAssignRoleBatch Roles
	CmdDeclareWinner   Faction
	CmdStartGame       -
	CmdResetGame       SessionID
	CmdResolveCourt    -   tallies the votes on the accused
*/

// Command is a moderator-originated action. Commands are authoritative and
// skip the intent validator, but still refuse impossible transitions.
type Command struct {
	Type      CommandType     `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	State     *GameState      `json:"state,omitempty"`
	Host      *Player         `json:"host,omitempty"`
	Phase     Phase           `json:"phase,omitempty"`
	PlayerIDs []string        `json:"player_ids,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	Role      Role            `json:"role,omitempty"`
	Roles     map[string]Role `json:"roles,omitempty"`
	Faction   Faction         `json:"faction,omitempty"`
}
