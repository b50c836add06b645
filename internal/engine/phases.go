package engine

// PhaseOrder lists the phases in play order.
var PhaseOrder = []Phase{
	PhaseLobby,
	PhaseSleep,
	PhaseTownHall,
	PhaseCourt,
	PhaseGameOver,
}

// transitions holds the moderator-driven phase moves. GAME_OVER is reachable
// from anywhere and is left only through ResetGame.
var transitions = map[Phase][]Phase{
	PhaseLobby:    {PhaseSleep},
	PhaseSleep:    {PhaseTownHall},
	PhaseTownHall: {PhaseCourt, PhaseSleep},
	PhaseCourt:    {PhaseSleep, PhaseTownHall},
}

func (p Phase) Valid() bool {
	for _, q := range PhaseOrder {
		if p == q {
			return true
		}
	}
	return false
}

func CanAdvance(from, to Phase) bool {
	if from == PhaseGameOver {
		return false
	}
	if to == PhaseGameOver {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
