package engine

import (
	"context"
	"fmt"
	"slices"
)

// GameEngine applies validated player intents to the store.
type GameEngine struct {
	store Store
}

func NewGameEngine(store Store) *GameEngine {
	return &GameEngine{store: store}
}

// Reduce applies in to the session. Callers run Validate first; Reduce only
// refuses intents it cannot apply at all.
func (e *GameEngine) Reduce(ctx context.Context, sessionID string, in Intent) error {
	return e.store.Update(ctx, sessionID, func(t *Table) error {
		return ApplyIntent(t, in)
	})
}

// Submit validates and applies in within a single store write, so no other
// change can slip in between the check and the mutation.
func (e *GameEngine) Submit(ctx context.Context, sessionID string, in Intent) error {
	return e.store.Update(ctx, sessionID, func(t *Table) error {
		if err := CheckIntent(t, in); err != nil {
			return err
		}
		return ApplyIntent(t, in)
	})
}

// ApplyIntent is the pure intent reducer.
func ApplyIntent(t *Table, in Intent) error {
	if in.Type == IntentJoin {
		p := t.Player(in.PlayerID)
		if p == nil {
			t.Players = append(t.Players, NewPlayer(in.PlayerID, Profile{}))
			p = &t.Players[len(t.Players)-1]
		}
		if in.Profile != nil {
			p.Name = in.Profile.Name
			p.Avatar = in.Profile.Avatar
			p.Background = in.Profile.Background
		}
		p.LastAction, p.LastTarget = IntentJoin, ""
		return nil
	}

	actor := t.Player(in.PlayerID)
	if actor == nil {
		return ErrUnknownPlayer
	}

	switch in.Type {
	case IntentLeave:
		if t.State.Phase == PhaseLobby {
			t.removePlayer(actor.ID)
			return nil
		}
		actor.LastAction, actor.LastTarget = IntentLeave, ""
		return nil

	case IntentKill:
		target := t.Player(in.TargetID)
		if target == nil {
			return ErrInvalidTarget
		}
		// Night kills stay provisional until the phase leaves SLEEP, so a
		// later Save can still undo them.
		target.Alive = false
		t.State.PendingKills = addPending(t.State.PendingKills, target.ID)

	case IntentSave:
		target := t.Player(in.TargetID)
		if target == nil {
			return ErrInvalidTarget
		}
		if slices.Contains(t.State.PendingKills, target.ID) {
			target.Alive = true
		}
		t.State.LastSavedPlayerID = target.ID
		t.State.PendingKills = removePending(t.State.PendingKills, target.ID)

	case IntentInvestigate:
		target := t.Player(in.TargetID)
		if target == nil {
			return ErrInvalidTarget
		}
		if actor.KnownIdentities == nil {
			actor.KnownIdentities = map[string]Role{}
		}
		actor.KnownIdentities[target.ID] = target.Role

	case IntentAccuse:
		t.State.AccusedPlayerID = in.TargetID

	case IntentSecond:

	case IntentVote:
		t.upsertVote(Vote{
			VoterID:  actor.ID,
			TargetID: in.TargetID,
			Guilty:   in.Guilty,
			Round:    t.State.Round,
		})

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedIntent, in.Type)
	}

	actor.LastAction, actor.LastTarget = in.Type, in.TargetID
	return nil
}
