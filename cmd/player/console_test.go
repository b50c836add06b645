package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/gondi/internal/connector"
	"github.com/DoyleJ11/gondi/internal/engine"
)

func TestParseIntent(t *testing.T) {
	cases := []struct {
		line string
		want engine.Intent
	}{
		{"kill bob", engine.Intent{Type: engine.IntentKill, TargetID: "bob"}},
		{"Save bob", engine.Intent{Type: engine.IntentSave, TargetID: "bob"}},
		{"investigate bob", engine.Intent{Type: engine.IntentInvestigate, TargetID: "bob"}},
		{"accuse bob", engine.Intent{Type: engine.IntentAccuse, TargetID: "bob"}},
		{"second bob", engine.Intent{Type: engine.IntentSecond, TargetID: "bob"}},
		{"vote bob guilty", engine.Intent{Type: engine.IntentVote, TargetID: "bob", Guilty: true}},
		{"vote bob innocent", engine.Intent{Type: engine.IntentVote, TargetID: "bob"}},
		{"leave", engine.Intent{Type: engine.IntentLeave}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := parseIntent(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseIntent_Usage(t *testing.T) {
	for _, line := range []string{"", "kill", "kill a b", "vote bob", "vote bob maybe", "dance"} {
		_, err := parseIntent(line)
		assert.ErrorIs(t, err, errUsage, line)
	}
}

func TestTail(t *testing.T) {
	seen := 0
	assert.Equal(t, []string{"a", "b"}, tail([]string{"a", "b"}, 2, &seen))
	assert.Empty(t, tail([]string{"a", "b"}, 2, &seen))
	assert.Equal(t, []string{"c"}, tail([]string{"a", "b", "c"}, 3, &seen))

	// The log only keeps the newest entries once it is full.
	assert.Equal(t, []string{"d", "e"}, tail([]string{"b", "c", "d", "e"}, 5, &seen))
	assert.Equal(t, []string{"x", "y"}, tail([]string{"x", "y"}, 50, &seen), "missed entries are skipped")

	// A reset connector starts counting again.
	assert.Equal(t, []string{"z"}, tail([]string{"z"}, 1, &seen))
}

func TestSummaryMarksSelfAndHiddenRoles(t *testing.T) {
	st := connector.LocalState{
		Game: engine.GameState{Phase: engine.PhaseTownHall, Round: 2, AccusedPlayerID: "bob"},
		Players: []engine.Player{
			{ID: "alice", Name: "Alice", Role: engine.RoleDoctor, Alive: true},
			{ID: "bob", Name: "Bob", Alive: false},
		},
	}
	out := summary(st, "alice")
	assert.Contains(t, out, "TOWN_HALL round 2  accused bob")
	assert.Contains(t, out, "> alice")
	assert.Contains(t, out, "DOCTOR")
	assert.Contains(t, out, "  bob          ?          dead")
}
