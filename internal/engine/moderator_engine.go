package engine

import (
	"context"
	"fmt"
)

// ModeratorEngine applies moderator commands to the store.
type ModeratorEngine struct {
	store Store
}

func NewModeratorEngine(store Store) *ModeratorEngine {
	return &ModeratorEngine{store: store}
}

// Handle applies cmd to sessionID. CreateGame and ResetGame use
// cmd.SessionID when it is set.
func (e *ModeratorEngine) Handle(ctx context.Context, sessionID string, cmd Command) error {
	if cmd.SessionID != "" && (cmd.Type == CmdCreateGame || cmd.Type == CmdResetGame) {
		sessionID = cmd.SessionID
	}

	switch cmd.Type {
	case CmdCreateGame:
		return e.store.Create(ctx, NewGame(sessionID, cmd.State, cmd.Host))
	case CmdResetGame:
		return e.store.Reset(ctx, sessionID)
	default:
		return e.store.Update(ctx, sessionID, func(t *Table) error {
			return ApplyCommand(t, cmd)
		})
	}
}

// NewGame builds the rows of a freshly created session. The host joins as
// the moderator.
func NewGame(sessionID string, initial *GameState, host *Player) Table {
	t := NewTable(sessionID)
	if initial != nil {
		t.State = initial.Clone()
		t.State.ID = sessionID
		if t.State.Phase == "" {
			t.State.Phase = PhaseLobby
		}
		if t.State.PendingKills == nil {
			t.State.PendingKills = []string{}
		}
	}
	if host != nil {
		h := host.Clone()
		h.Role = RoleModerator
		h.Alive = true
		if h.KnownIdentities == nil {
			h.KnownIdentities = map[string]Role{}
		}
		t.Players = append(t.Players, h)
	}
	return t
}

// ApplyCommand is the pure command reducer for everything except CreateGame
// and ResetGame, which replace whole sessions.
func ApplyCommand(t *Table, cmd Command) error {
	switch cmd.Type {
	case CmdAdvancePhase:
		if !cmd.Phase.Valid() || !CanAdvance(t.State.Phase, cmd.Phase) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.State.Phase, cmd.Phase)
		}
		t.advance(cmd.Phase)
		return nil

	case CmdStartGame:
		if t.State.Phase != PhaseLobby {
			return fmt.Errorf("%w: game already started", ErrIllegalTransition)
		}
		for _, p := range t.Players {
			if p.Role == RoleNone {
				return fmt.Errorf("%w: %s", ErrRolesUnassigned, p.Name)
			}
		}
		t.advance(PhaseSleep)
		return nil

	case CmdRevealDeaths:
		for _, id := range cmd.PlayerIDs {
			if t.Player(id) == nil {
				return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
			}
		}
		for _, id := range cmd.PlayerIDs {
			t.Player(id).Alive = false
			t.State.PendingKills = removePending(t.State.PendingKills, id)
		}
		t.State.Reveal = true
		t.settleWinner()
		return nil

	case CmdRemovePlayer:
		p := t.Player(cmd.PlayerID)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, cmd.PlayerID)
		}
		p.Alive = false
		t.settleWinner()
		return nil

	case CmdAssignRole:
		return t.assignRoles(map[string]Role{cmd.PlayerID: cmd.Role})

	case CmdAssignRoleBatch:
		return t.assignRoles(cmd.Roles)

	case CmdDeclareWinner:
		if !cmd.Faction.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownFaction, cmd.Faction)
		}
		t.finish(cmd.Faction)
		return nil

	case CmdResolveCourt:
		if t.State.Phase != PhaseCourt || t.State.AccusedPlayerID == "" {
			return fmt.Errorf("%w: no court in session", ErrWrongPhase)
		}
		if Tally(t.Votes, t.State.AccusedPlayerID, t.State.Round).Convicted() {
			t.Player(t.State.AccusedPlayerID).Alive = false
			t.settleWinner()
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)
	}
}

// assignRoles is all-or-nothing; a role never changes once assigned.
func (t *Table) assignRoles(roles map[string]Role) error {
	for id, role := range roles {
		p := t.Player(id)
		if p == nil {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
		if !role.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
		if p.Role != RoleNone {
			return fmt.Errorf("%w: %s is %s", ErrRoleAssigned, p.Name, p.Role)
		}
	}
	for id, role := range roles {
		t.Player(id).Role = role
	}
	return nil
}

func (t *Table) advance(to Phase) {
	from := t.State.Phase
	if from == PhaseSleep {
		t.State.PendingKills = []string{}
	}
	if from == PhaseCourt || (from == PhaseTownHall && to != PhaseCourt) {
		t.State.AccusedPlayerID = ""
	}
	if from == PhaseCourt {
		t.Votes = []Vote{}
	}
	if to == PhaseSleep {
		t.State.Reveal = false
	}
	t.State.Phase = to
	t.State.Round++

	if from == PhaseSleep {
		t.settleWinner()
	}
}

// settleWinner re-runs the win check after an elimination and ends the game
// when a faction has won.
func (t *Table) settleWinner() {
	if t.State.Phase == PhaseLobby || t.State.Phase == PhaseGameOver {
		return
	}
	if f, ok := CheckWinner(t.Players); ok {
		t.finish(f)
	}
}

func (t *Table) finish(f Faction) {
	t.State.Phase = PhaseGameOver
	t.State.Round = 0
	t.State.Winner = f
	t.State.PendingKills = []string{}
	t.State.AccusedPlayerID = ""
}

type Verdict struct {
	Guilty   int
	Innocent int
}

func (v Verdict) Convicted() bool { return v.Guilty > v.Innocent }

// Tally counts the votes cast on targetID in round.
func Tally(votes []Vote, targetID string, round int) Verdict {
	var v Verdict
	for _, vote := range votes {
		if vote.TargetID != targetID || vote.Round != round {
			continue
		}
		if vote.Guilty {
			v.Guilty++
		} else {
			v.Innocent++
		}
	}
	return v
}
