package engine

type Role string

const (
	RoleNone       Role = ""
	RoleModerator  Role = "MODERATOR"
	RoleMafia      Role = "MAFIA"
	RoleAccomplice Role = "ACCOMPLICE"
	RoleDoctor     Role = "DOCTOR"
	RoleDetective  Role = "DETECTIVE"
	RoleCitizen    Role = "CITIZEN"
)

// RoleInfo describes what a role may do. NightAction is empty for roles that
// sleep through the SLEEP phase.
type RoleInfo struct {
	Faction     Faction
	NightAction IntentType
	CanVote     bool
}

var roleTable = map[Role]RoleInfo{
	RoleModerator:  {Faction: FactionNeutral},
	RoleMafia:      {Faction: FactionMafia, NightAction: IntentKill, CanVote: true},
	RoleAccomplice: {Faction: FactionMafia, CanVote: true},
	RoleDoctor:     {Faction: FactionCitizen, NightAction: IntentSave, CanVote: true},
	RoleDetective:  {Faction: FactionCitizen, NightAction: IntentInvestigate, CanVote: true},
	RoleCitizen:    {Faction: FactionCitizen, CanVote: true},
}

func (r Role) Info() (RoleInfo, bool) {
	info, ok := roleTable[r]
	return info, ok
}

func (r Role) Valid() bool {
	_, ok := roleTable[r]
	return ok
}

func (r Role) Faction() Faction {
	return roleTable[r].Faction
}

func (r Role) CanActAtNight() bool {
	return roleTable[r].NightAction != ""
}

func (r Role) CanVote() bool {
	return roleTable[r].CanVote
}

// CheckWinner evaluates the win condition over the living, role-holding
// players. The second result is false while the game should continue.
func CheckWinner(players []Player) (Faction, bool) {
	var mafia, citizens int
	var lastMafia Role
	for _, p := range players {
		if !p.Alive || p.Role == RoleNone {
			continue
		}
		switch p.Role.Faction() {
		case FactionMafia:
			mafia++
			lastMafia = p.Role
		case FactionCitizen:
			citizens++
		}
	}

	switch {
	case mafia == 0 && citizens > 0:
		return FactionCitizen, true
	case citizens == 0 && mafia > 0:
		return FactionMafia, true
	case mafia == 1 && lastMafia == RoleAccomplice:
		// A lone accomplice cannot kill, so the town has won.
		return FactionCitizen, true
	}
	return "", false
}
