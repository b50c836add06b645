package engine

// VisibleTo returns the players as viewerID may see them. A viewer always
// sees their own role and the roles they have investigated. Roles of dead
// players become public once deaths are revealed, and every role is public
// when the game is over. The moderator sees everything.
func VisibleTo(state GameState, players []Player, viewerID string) []Player {
	var viewer *Player
	for i := range players {
		if players[i].ID == viewerID {
			viewer = &players[i]
			break
		}
	}
	if state.Phase == PhaseGameOver || (viewer != nil && viewer.Role == RoleModerator) {
		return ClonePlayers(players)
	}

	out := make([]Player, 0, len(players))
	for _, p := range players {
		if p.ID == viewerID {
			out = append(out, p.Clone())
			continue
		}
		q := p.Clone()
		q.KnownIdentities = nil
		if !roleVisible(state, viewer, p) {
			q.Role = RoleNone
		}
		out = append(out, q)
	}
	return out
}

func roleVisible(state GameState, viewer *Player, p Player) bool {
	if p.Role == RoleModerator {
		return true
	}
	if state.Reveal && !p.Alive {
		return true
	}
	if viewer == nil {
		return false
	}
	_, known := viewer.KnownIdentities[p.ID]
	return known
}
