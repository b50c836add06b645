package engine

type IntentType string

const (
	IntentJoin        IntentType = "Join"
	IntentLeave       IntentType = "Leave"
	IntentKill        IntentType = "Kill"
	IntentSave        IntentType = "Save"
	IntentInvestigate IntentType = "Investigate"
	IntentAccuse      IntentType = "Accuse"
	IntentSecond      IntentType = "Second"
	IntentVote        IntentType = "Vote"
)

// Intent is a player-originated request. PlayerID is the sender and Round is
// the round the sender believed was current, so late intents can be dropped.
type Intent struct {
	Type     IntentType `json:"type"`
	PlayerID string     `json:"player_id"`
	Round    int        `json:"round"`
	TargetID string     `json:"target_id,omitempty"`
	Guilty   bool       `json:"guilty,omitempty"`
	Profile  *Profile   `json:"profile,omitempty"`
}

func JoinIntent(playerID string, profile Profile) Intent {
	return Intent{Type: IntentJoin, PlayerID: playerID, Profile: &profile}
}

func LeaveIntent(playerID string) Intent {
	return Intent{Type: IntentLeave, PlayerID: playerID}
}

// TargetIntent builds Kill, Save, Investigate, Accuse and Second intents.
func TargetIntent(t IntentType, playerID string, round int, targetID string) Intent {
	return Intent{Type: t, PlayerID: playerID, Round: round, TargetID: targetID}
}

func VoteIntent(playerID string, round int, targetID string, guilty bool) Intent {
	return Intent{Type: IntentVote, PlayerID: playerID, Round: round, TargetID: targetID, Guilty: guilty}
}
