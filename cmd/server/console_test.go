package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/gondi/internal/engine"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want engine.Command
	}{
		{"assign bob mafia", engine.Command{Type: engine.CmdAssignRole, PlayerID: "bob", Role: engine.RoleMafia}},
		{"start", engine.Command{Type: engine.CmdStartGame}},
		{"advance town_hall", engine.Command{Type: engine.CmdAdvancePhase, Phase: engine.PhaseTownHall}},
		{"reveal a b", engine.Command{Type: engine.CmdRevealDeaths, PlayerIDs: []string{"a", "b"}}},
		{"remove a", engine.Command{Type: engine.CmdRemovePlayer, PlayerID: "a"}},
		{"court", engine.Command{Type: engine.CmdResolveCourt}},
		{"winner citizen", engine.Command{Type: engine.CmdDeclareWinner, Faction: engine.FactionCitizen}},
		{"reset", engine.Command{Type: engine.CmdResetGame}},
		{"new", engine.Command{Type: engine.CmdCreateGame}},
		{"new s2", engine.Command{Type: engine.CmdCreateGame, SessionID: "s2"}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseCommand(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommand_Usage(t *testing.T) {
	for _, line := range []string{"", "assign bob", "advance", "reveal", "remove", "winner", "dance"} {
		_, err := parseCommand(line)
		assert.ErrorIs(t, err, errUsage, line)
	}
}
