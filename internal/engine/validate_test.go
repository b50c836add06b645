package engine

import (
	"context"
	"errors"
	"testing"
)

func TestCheckIntent(t *testing.T) {
	lobby := NewTable("s1")
	lobby.Players = []Player{player("p1", RoleNone)}

	night := nightTable()

	nightDeadMafia := nightTable()
	nightDeadMafia.Players[1] = dead(nightDeadMafia.Players[1])

	townHall := nightTable()
	townHall.State.Phase = PhaseTownHall
	townHall.State.Round = 2

	accused := townHall.Clone()
	accused.State.AccusedPlayerID = "mafia"

	court := nightTable()
	court.State.Phase = PhaseCourt
	court.State.Round = 3
	court.State.AccusedPlayerID = "mafia"

	over := nightTable()
	over.State.Phase = PhaseGameOver

	cases := []struct {
		name    string
		setup   Table
		intent  Intent
		wantErr error
	}{
		{name: "join in lobby", setup: lobby, intent: JoinIntent("p2", Profile{Name: "b"})},
		{name: "join after start", setup: night, intent: JoinIntent("stranger", Profile{Name: "s"}), wantErr: ErrWrongPhase},
		{name: "known player joins after start", setup: night, intent: JoinIntent("citizen", Profile{Name: "c"}), wantErr: ErrWrongPhase},
		{name: "join without id", setup: lobby, intent: JoinIntent("", Profile{}), wantErr: ErrUnknownPlayer},
		{name: "leave unknown", setup: lobby, intent: LeaveIntent("nobody"), wantErr: ErrUnknownPlayer},
		{name: "leave known", setup: night, intent: LeaveIntent("citizen")},

		{name: "mafia kills at night", setup: night, intent: TargetIntent(IntentKill, "mafia", 1, "citizen")},
		{name: "stale round", setup: night, intent: TargetIntent(IntentKill, "mafia", 0, "citizen"), wantErr: ErrStaleRound},
		{name: "citizen cannot kill", setup: night, intent: TargetIntent(IntentKill, "citizen", 1, "doctor"), wantErr: ErrWrongRole},
		{name: "accomplice has no night action", setup: night, intent: TargetIntent(IntentKill, "accomplice", 1, "doctor"), wantErr: ErrWrongRole},
		{name: "dead mafia cannot kill", setup: nightDeadMafia, intent: TargetIntent(IntentKill, "mafia", 1, "citizen"), wantErr: ErrNotAlive},
		{name: "mafia cannot kill self", setup: night, intent: TargetIntent(IntentKill, "mafia", 1, "mafia"), wantErr: ErrInvalidTarget},
		{name: "kill unknown target", setup: night, intent: TargetIntent(IntentKill, "mafia", 1, "ghost"), wantErr: ErrInvalidTarget},
		{name: "kill outside sleep", setup: townHall, intent: TargetIntent(IntentKill, "mafia", 2, "citizen"), wantErr: ErrWrongPhase},
		{name: "doctor saves self", setup: night, intent: TargetIntent(IntentSave, "doctor", 1, "doctor")},
		{name: "mafia cannot save", setup: night, intent: TargetIntent(IntentSave, "mafia", 1, "doctor"), wantErr: ErrWrongRole},
		{name: "detective investigates", setup: night, intent: TargetIntent(IntentInvestigate, "detective", 1, "accomplice")},
		{name: "detective cannot investigate self", setup: night, intent: TargetIntent(IntentInvestigate, "detective", 1, "detective"), wantErr: ErrInvalidTarget},

		{name: "accuse in town hall", setup: townHall, intent: TargetIntent(IntentAccuse, "citizen", 2, "mafia")},
		{name: "moderator cannot accuse", setup: townHall, intent: TargetIntent(IntentAccuse, "mod", 2, "mafia"), wantErr: ErrWrongRole},
		{name: "accuse self", setup: townHall, intent: TargetIntent(IntentAccuse, "citizen", 2, "citizen"), wantErr: ErrInvalidTarget},
		{name: "second accusation pending", setup: accused, intent: TargetIntent(IntentAccuse, "doctor", 2, "citizen"), wantErr: ErrAlreadyAccused},
		{name: "accuse at night", setup: night, intent: TargetIntent(IntentAccuse, "citizen", 1, "mafia"), wantErr: ErrWrongPhase},
		{name: "second the accused", setup: accused, intent: TargetIntent(IntentSecond, "doctor", 2, "mafia")},
		{name: "accused cannot second", setup: accused, intent: TargetIntent(IntentSecond, "mafia", 2, "citizen"), wantErr: ErrAccusedCannotAct},
		{name: "second someone else", setup: accused, intent: TargetIntent(IntentSecond, "doctor", 2, "citizen"), wantErr: ErrNotAccused},
		{name: "second without accusation", setup: townHall, intent: TargetIntent(IntentSecond, "doctor", 2, "mafia"), wantErr: ErrNotAccused},

		{name: "vote guilty in court", setup: court, intent: VoteIntent("citizen", 3, "mafia", true)},
		{name: "accused cannot vote", setup: court, intent: VoteIntent("mafia", 3, "mafia", false), wantErr: ErrAccusedCannotAct},
		{name: "vote on wrong target", setup: court, intent: VoteIntent("citizen", 3, "doctor", true), wantErr: ErrNotAccused},
		{name: "moderator cannot vote", setup: court, intent: VoteIntent("mod", 3, "mafia", true), wantErr: ErrWrongRole},
		{name: "vote in town hall", setup: townHall, intent: VoteIntent("citizen", 2, "mafia", true), wantErr: ErrWrongPhase},

		{name: "nothing after game over", setup: over, intent: TargetIntent(IntentKill, "mafia", 1, "citizen"), wantErr: ErrGameOver},
		{name: "unknown intent", setup: night, intent: Intent{Type: "Dance", PlayerID: "citizen", Round: 1}, wantErr: ErrUnsupportedIntent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tb := tc.setup.Clone()
			err := CheckIntent(&tb, tc.intent)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateIntent_NoPartialMutation(t *testing.T) {
	ctx := context.Background()
	db := newTableStore(nightTable())
	before, _ := db.get("s1")

	if ValidateIntent(ctx, db, "s1", TargetIntent(IntentKill, "citizen", 1, "doctor")) {
		t.Fatalf("citizen kill should be refused")
	}
	if !ValidateIntent(ctx, db, "s1", TargetIntent(IntentKill, "mafia", 1, "doctor")) {
		t.Fatalf("mafia kill should be allowed")
	}

	after, _ := db.get("s1")
	for i := range before.Players {
		if before.Players[i].Alive != after.Players[i].Alive {
			t.Fatalf("validate mutated player %s", before.Players[i].ID)
		}
	}
}

func TestValidate_MissingSession(t *testing.T) {
	err := Validate(context.Background(), newTableStore(), "nope", LeaveIntent("p1"))
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
	if IsRuleViolation(err) {
		t.Fatalf("missing session is not a rule violation")
	}
}

func TestCheckIntent_SaveOnlyUndoesTonightsKills(t *testing.T) {
	tb := nightTable()
	tb.Players[5] = dead(tb.Players[5]) // citizen died last round

	err := CheckIntent(&tb, TargetIntent(IntentSave, "doctor", 1, "citizen"))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("want ErrInvalidTarget, got %v", err)
	}

	if err := ApplyIntent(&tb, TargetIntent(IntentKill, "mafia", 1, "detective")); err != nil {
		t.Fatal(err)
	}
	if err := CheckIntent(&tb, TargetIntent(IntentSave, "doctor", 1, "detective")); err != nil {
		t.Fatalf("saving tonight's victim: %v", err)
	}
}

func TestValidateIntent_JoinOnlyInLobby(t *testing.T) {
	db := newTableStore(nightTable())
	if ValidateIntent(context.Background(), db, "s1", JoinIntent("mafia", Profile{Name: "eve"})) {
		t.Fatalf("join of a seated player should be refused at night")
	}
}

func TestCheckRejoin(t *testing.T) {
	lobby := NewTable("s1")
	lobby.Players = []Player{player("p1", RoleNone)}

	over := nightTable()
	over.State.Phase = PhaseGameOver

	cases := []struct {
		name     string
		setup    Table
		playerID string
		wantErr  error
	}{
		{name: "seated player at night", setup: nightTable(), playerID: "mafia"},
		{name: "dead player", setup: func() Table { tb := nightTable(); tb.Players[1] = dead(tb.Players[1]); return tb }(), playerID: "mafia"},
		{name: "after game over", setup: over, playerID: "citizen"},
		{name: "stranger at night", setup: nightTable(), playerID: "stranger", wantErr: ErrWrongPhase},
		{name: "in the lobby", setup: lobby, playerID: "p1", wantErr: ErrWrongPhase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tb := tc.setup.Clone()
			err := CheckRejoin(&tb, tc.playerID)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}
