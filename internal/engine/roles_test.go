package engine

import "testing"

func TestCheckWinner(t *testing.T) {
	cases := []struct {
		name    string
		players []Player
		want    Faction
		wantWon bool
	}{
		{
			name:    "no mafia left",
			players: []Player{dead(player("m", RoleMafia)), player("c", RoleCitizen)},
			want:    FactionCitizen,
			wantWon: true,
		},
		{
			name:    "no citizens left",
			players: []Player{player("m", RoleMafia), dead(player("c", RoleCitizen)), dead(player("d", RoleDoctor))},
			want:    FactionMafia,
			wantWon: true,
		},
		{
			name:    "lone accomplice",
			players: []Player{dead(player("m", RoleMafia)), player("a", RoleAccomplice), player("c", RoleCitizen)},
			want:    FactionCitizen,
			wantWon: true,
		},
		{
			name:    "game continues",
			players: []Player{player("m", RoleMafia), player("c", RoleCitizen), player("d", RoleDetective)},
		},
		{
			name:    "lone mafia with citizens",
			players: []Player{player("m", RoleMafia), dead(player("a", RoleAccomplice)), player("c", RoleCitizen)},
		},
		{
			name:    "moderator does not count",
			players: []Player{player("mod", RoleModerator), player("m", RoleMafia), player("c", RoleCitizen)},
		},
		{
			name:    "no roles yet",
			players: []Player{player("p1", RoleNone), player("p2", RoleNone)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, won := CheckWinner(tc.players)
			if won != tc.wantWon || got != tc.want {
				t.Fatalf("CheckWinner: got (%q, %v), want (%q, %v)", got, won, tc.want, tc.wantWon)
			}
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	cases := []struct {
		role      Role
		faction   Faction
		night     bool
		canVote   bool
		validRole bool
	}{
		{RoleModerator, FactionNeutral, false, false, true},
		{RoleMafia, FactionMafia, true, true, true},
		{RoleAccomplice, FactionMafia, false, true, true},
		{RoleDoctor, FactionCitizen, true, true, true},
		{RoleDetective, FactionCitizen, true, true, true},
		{RoleCitizen, FactionCitizen, false, true, true},
		{RoleNone, "", false, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			if tc.role.Faction() != tc.faction || tc.role.CanActAtNight() != tc.night ||
				tc.role.CanVote() != tc.canVote || tc.role.Valid() != tc.validRole {
				t.Fatalf("unexpected capabilities for %q", tc.role)
			}
		})
	}
}

func TestCanAdvance(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseLobby, PhaseSleep, true},
		{PhaseLobby, PhaseTownHall, false},
		{PhaseSleep, PhaseTownHall, true},
		{PhaseSleep, PhaseCourt, false},
		{PhaseTownHall, PhaseCourt, true},
		{PhaseTownHall, PhaseSleep, true},
		{PhaseCourt, PhaseSleep, true},
		{PhaseCourt, PhaseLobby, false},
		{PhaseLobby, PhaseGameOver, true},
		{PhaseGameOver, PhaseLobby, false},
		{PhaseGameOver, PhaseGameOver, false},
	}
	for _, tc := range cases {
		if got := CanAdvance(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanAdvance(%s, %s): got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
