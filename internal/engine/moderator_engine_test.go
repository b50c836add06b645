package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lobbyWithPlayers(ids ...string) Table {
	t := NewGame("s1", nil, &Player{ID: "mod", Name: "Host"})
	for _, id := range ids {
		t.Players = append(t.Players, player(id, RoleNone))
	}
	return t
}

func TestModeratorEngine_CreateAndReset(t *testing.T) {
	ctx := context.Background()
	db := newTableStore()
	mod := NewModeratorEngine(db)

	require.NoError(t, mod.Handle(ctx, "s1", Command{
		Type: CmdCreateGame,
		Host: &Player{ID: "mod", Name: "Host"},
	}))

	st, err := db.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseLobby, st.Phase)
	assert.Equal(t, 0, st.Round)

	players, err := db.Players(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, RoleModerator, players[0].Role)

	require.NoError(t, mod.Handle(ctx, "s1", Command{Type: CmdResetGame}))
	require.NoError(t, mod.Handle(ctx, "s1", Command{Type: CmdResetGame}), "reset is idempotent")

	_, err = db.State(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestModeratorEngine_CreateUsesCommandSessionID(t *testing.T) {
	ctx := context.Background()
	db := newTableStore()
	mod := NewModeratorEngine(db)

	require.NoError(t, mod.Handle(ctx, "ignored", Command{Type: CmdCreateGame, SessionID: "s2"}))
	_, err := db.State(ctx, "s2")
	assert.NoError(t, err)
	_, err = db.State(ctx, "ignored")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestApplyCommand_AssignRoles(t *testing.T) {
	tb := lobbyWithPlayers("a", "b")

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAssignRole, PlayerID: "a", Role: RoleMafia}))
	assert.Equal(t, RoleMafia, tb.Player("a").Role)

	err := ApplyCommand(&tb, Command{Type: CmdAssignRole, PlayerID: "a", Role: RoleCitizen})
	assert.ErrorIs(t, err, ErrRoleAssigned)
	assert.Equal(t, RoleMafia, tb.Player("a").Role, "roles are immutable")

	// A batch with one bad entry changes nothing.
	err = ApplyCommand(&tb, Command{Type: CmdAssignRoleBatch, Roles: map[string]Role{"b": RoleDoctor, "ghost": RoleCitizen}})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Equal(t, RoleNone, tb.Player("b").Role)

	err = ApplyCommand(&tb, Command{Type: CmdAssignRole, PlayerID: "b", Role: "Jester"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestApplyCommand_StartGameNeedsRoles(t *testing.T) {
	tb := lobbyWithPlayers("a", "b")

	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: CmdStartGame}), ErrRolesUnassigned)

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAssignRoleBatch, Roles: map[string]Role{"a": RoleMafia, "b": RoleCitizen}}))
	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdStartGame}))
	assert.Equal(t, PhaseSleep, tb.State.Phase)
	assert.Equal(t, 1, tb.State.Round)

	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: CmdStartGame}), ErrIllegalTransition)
}

func TestApplyCommand_AdvancePhase(t *testing.T) {
	tb := nightTable()
	require.NoError(t, ApplyIntent(&tb, TargetIntent(IntentKill, "mafia", 1, "citizen")))
	tb.State.Reveal = true

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: PhaseTownHall}))
	assert.Equal(t, PhaseTownHall, tb.State.Phase)
	assert.Equal(t, 2, tb.State.Round)
	assert.Empty(t, tb.State.PendingKills, "pending kills settle when the night ends")
	assert.False(t, tb.Player("citizen").Alive)

	tb.State.AccusedPlayerID = "mafia"
	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: PhaseCourt}))
	assert.Equal(t, "mafia", tb.State.AccusedPlayerID, "the accusation carries into court")

	tb.Votes = []Vote{{VoterID: "doctor", TargetID: "mafia", Guilty: true, Round: 3}}
	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: PhaseSleep}))
	assert.Empty(t, tb.State.AccusedPlayerID)
	assert.Empty(t, tb.Votes)
	assert.False(t, tb.State.Reveal)
	assert.Equal(t, 4, tb.State.Round)

	err := ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: PhaseCourt})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	err = ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: "DAWN"})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestApplyCommand_NightKillEndsGame(t *testing.T) {
	tb := NewTable("s1")
	tb.State.Phase = PhaseSleep
	tb.State.Round = 5
	tb.Players = []Player{player("m", RoleMafia), player("c", RoleCitizen)}

	require.NoError(t, ApplyIntent(&tb, TargetIntent(IntentKill, "m", 5, "c")))
	assert.Equal(t, PhaseSleep, tb.State.Phase, "still night, the doctor may save")

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdAdvancePhase, Phase: PhaseTownHall}))
	assert.Equal(t, PhaseGameOver, tb.State.Phase)
	assert.Equal(t, FactionMafia, tb.State.Winner)
	assert.Equal(t, 0, tb.State.Round)
}

func TestApplyCommand_RevealDeaths(t *testing.T) {
	tb := nightTable()
	tb.State.Phase = PhaseTownHall

	err := ApplyCommand(&tb, Command{Type: CmdRevealDeaths, PlayerIDs: []string{"citizen", "ghost"}})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.True(t, tb.Player("citizen").Alive)

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdRevealDeaths, PlayerIDs: []string{"citizen"}}))
	assert.False(t, tb.Player("citizen").Alive)
	assert.True(t, tb.State.Reveal)
	assert.Equal(t, PhaseTownHall, tb.State.Phase)
}

func TestApplyCommand_RemovePlayerSettlesWinner(t *testing.T) {
	tb := nightTable()
	tb.State.Phase = PhaseTownHall

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdRemovePlayer, PlayerID: "mafia"}))
	// Only the accomplice is left on the mafia side.
	assert.Equal(t, PhaseGameOver, tb.State.Phase)
	assert.Equal(t, FactionCitizen, tb.State.Winner)

	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: CmdRemovePlayer, PlayerID: "ghost"}), ErrUnknownPlayer)
}

func TestApplyCommand_DeclareWinner(t *testing.T) {
	tb := nightTable()
	tb.State.Round = 7

	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: CmdDeclareWinner, Faction: "Jesters"}), ErrUnknownFaction)

	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdDeclareWinner, Faction: FactionCitizen}))
	assert.Equal(t, PhaseGameOver, tb.State.Phase)
	assert.Equal(t, 0, tb.State.Round)
	assert.Equal(t, FactionCitizen, tb.State.Winner)
}

func TestApplyCommand_ResolveCourt(t *testing.T) {
	court := func() Table {
		tb := nightTable()
		tb.State.Phase = PhaseCourt
		tb.State.Round = 3
		tb.State.AccusedPlayerID = "detective"
		return tb
	}

	tb := court()
	tb.Votes = []Vote{
		{VoterID: "mafia", TargetID: "detective", Guilty: true, Round: 3},
		{VoterID: "accomplice", TargetID: "detective", Guilty: true, Round: 3},
		{VoterID: "citizen", TargetID: "detective", Guilty: false, Round: 3},
	}
	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdResolveCourt}))
	assert.False(t, tb.Player("detective").Alive)

	tb = court()
	tb.Votes = []Vote{
		{VoterID: "mafia", TargetID: "detective", Guilty: true, Round: 3},
		{VoterID: "citizen", TargetID: "detective", Guilty: false, Round: 3},
	}
	require.NoError(t, ApplyCommand(&tb, Command{Type: CmdResolveCourt}))
	assert.True(t, tb.Player("detective").Alive, "a tie acquits")

	tb = nightTable()
	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: CmdResolveCourt}), ErrWrongPhase)
}

func TestApplyCommand_Unsupported(t *testing.T) {
	tb := nightTable()
	assert.ErrorIs(t, ApplyCommand(&tb, Command{Type: "Shuffle"}), ErrUnsupportedCommand)
}

func TestTally(t *testing.T) {
	votes := []Vote{
		{VoterID: "a", TargetID: "x", Guilty: true, Round: 1},
		{VoterID: "b", TargetID: "x", Guilty: false, Round: 1},
		{VoterID: "c", TargetID: "x", Guilty: true, Round: 2},
		{VoterID: "d", TargetID: "y", Guilty: true, Round: 1},
	}
	assert.Equal(t, Verdict{Guilty: 1, Innocent: 1}, Tally(votes, "x", 1))
	assert.False(t, Tally(votes, "x", 1).Convicted())
	assert.True(t, Tally(votes, "x", 2).Convicted())
}
