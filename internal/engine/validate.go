package engine

import (
	"context"
	"fmt"
	"slices"
)

// Validate is the authorization gate for player intents. It loads the acting
// player and the current state from db and returns nil only when every rule
// for the intent holds. It never mutates db.
func Validate(ctx context.Context, db Store, sessionID string, in Intent) error {
	state, err := db.State(ctx, sessionID)
	if err != nil {
		return err
	}
	players, err := db.Players(ctx, sessionID)
	if err != nil {
		return err
	}
	t := Table{State: state, Players: players}
	return CheckIntent(&t, in)
}

func ValidateIntent(ctx context.Context, db Store, sessionID string, in Intent) bool {
	return Validate(ctx, db, sessionID, in) == nil
}

// CheckRejoin decides whether playerID may take its seat back on a new
// connection once the game has left the lobby. A rejoin changes nothing in
// the game, so it is checked here rather than reduced.
func CheckRejoin(t *Table, playerID string) error {
	if t.State.Phase == PhaseLobby {
		return fmt.Errorf("%w: join the lobby instead", ErrWrongPhase)
	}
	if t.Player(playerID) == nil {
		return fmt.Errorf("%w: joining is only possible in the lobby", ErrWrongPhase)
	}
	return nil
}

// CheckIntent applies the intent rules to an already loaded table.
func CheckIntent(t *Table, in Intent) error {
	s := t.State
	actor := t.Player(in.PlayerID)

	if s.Phase == PhaseGameOver && in.Type != IntentLeave {
		return ErrGameOver
	}

	switch in.Type {
	case IntentJoin:
		if in.PlayerID == "" {
			return fmt.Errorf("%w: missing player id", ErrUnknownPlayer)
		}
		if s.Phase != PhaseLobby {
			return fmt.Errorf("%w: joining is only possible in the lobby", ErrWrongPhase)
		}
		return nil

	case IntentLeave:
		if actor == nil {
			return ErrUnknownPlayer
		}
		return nil
	}

	if actor == nil {
		return ErrUnknownPlayer
	}
	if in.Round != s.Round {
		return fmt.Errorf("%w: got %d, current %d", ErrStaleRound, in.Round, s.Round)
	}

	switch in.Type {
	case IntentKill, IntentSave, IntentInvestigate:
		if s.Phase != PhaseSleep {
			return fmt.Errorf("%w: %s requires %s", ErrWrongPhase, in.Type, PhaseSleep)
		}
		if !actor.Alive {
			return ErrNotAlive
		}
		if info, ok := actor.Role.Info(); !ok || info.NightAction != in.Type {
			return fmt.Errorf("%w: %s cannot %s", ErrWrongRole, actor.Role, in.Type)
		}
		target := t.Player(in.TargetID)
		if target == nil {
			return ErrInvalidTarget
		}
		if in.Type == IntentKill && (!target.Alive || target.ID == actor.ID) {
			return fmt.Errorf("%w: cannot kill %s", ErrInvalidTarget, target.ID)
		}
		if in.Type == IntentSave && !target.Alive && !slices.Contains(s.PendingKills, target.ID) {
			return fmt.Errorf("%w: %s died in an earlier round", ErrInvalidTarget, target.ID)
		}
		if in.Type == IntentInvestigate && target.ID == actor.ID {
			return fmt.Errorf("%w: cannot investigate yourself", ErrInvalidTarget)
		}
		return nil

	case IntentAccuse, IntentSecond:
		if s.Phase != PhaseTownHall {
			return fmt.Errorf("%w: %s requires %s", ErrWrongPhase, in.Type, PhaseTownHall)
		}
		if !actor.Alive {
			return ErrNotAlive
		}
		if !actor.Role.CanVote() {
			return fmt.Errorf("%w: %s cannot %s", ErrWrongRole, actor.Role, in.Type)
		}
		target := t.Player(in.TargetID)
		if target == nil || !target.Alive || target.ID == actor.ID {
			return ErrInvalidTarget
		}
		if in.Type == IntentAccuse {
			if s.AccusedPlayerID != "" {
				return ErrAlreadyAccused
			}
			return nil
		}
		if actor.ID == s.AccusedPlayerID {
			return ErrAccusedCannotAct
		}
		if s.AccusedPlayerID == "" || target.ID != s.AccusedPlayerID {
			return ErrNotAccused
		}
		return nil

	case IntentVote:
		if s.Phase != PhaseCourt {
			return fmt.Errorf("%w: %s requires %s", ErrWrongPhase, in.Type, PhaseCourt)
		}
		if !actor.Alive {
			return ErrNotAlive
		}
		if !actor.Role.CanVote() {
			return fmt.Errorf("%w: %s cannot vote", ErrWrongRole, actor.Role)
		}
		if actor.ID == s.AccusedPlayerID {
			return ErrAccusedCannotAct
		}
		if s.AccusedPlayerID == "" || in.TargetID != s.AccusedPlayerID {
			return ErrNotAccused
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedIntent, in.Type)
	}
}
