package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableStore is a minimal Store for exercising the engines without the
// store package.
type tableStore struct {
	mu     sync.Mutex
	tables map[string]Table
}

func newTableStore(tables ...Table) *tableStore {
	s := &tableStore{tables: map[string]Table{}}
	for _, t := range tables {
		s.tables[t.State.ID] = t.Clone()
	}
	return s
}

func (s *tableStore) get(id string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return Table{}, ErrNoSession
	}
	return t.Clone(), nil
}

func (s *tableStore) State(_ context.Context, id string) (GameState, error) {
	t, err := s.get(id)
	return t.State, err
}

func (s *tableStore) Players(_ context.Context, id string) ([]Player, error) {
	t, err := s.get(id)
	return t.Players, err
}

func (s *tableStore) Votes(_ context.Context, id string) ([]Vote, error) {
	t, err := s.get(id)
	return t.Votes, err
}

func (s *tableStore) Create(_ context.Context, t Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.State.ID] = t.Clone()
	return nil
}

func (s *tableStore) Update(_ context.Context, id string, fn func(*Table) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return ErrNoSession
	}
	next := t.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.tables[id] = next
	return nil
}

func (s *tableStore) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, id)
	return nil
}

func (s *tableStore) Watch(ctx context.Context, _ string) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func player(id string, role Role) Player {
	p := NewPlayer(id, Profile{Name: id})
	p.Role = role
	return p
}

func dead(p Player) Player {
	p.Alive = false
	return p
}

// nightTable is a started game in its first SLEEP round.
func nightTable() Table {
	t := NewTable("s1")
	t.State.Phase = PhaseSleep
	t.State.Round = 1
	t.Players = []Player{
		player("mod", RoleModerator),
		player("mafia", RoleMafia),
		player("accomplice", RoleAccomplice),
		player("doctor", RoleDoctor),
		player("detective", RoleDetective),
		player("citizen", RoleCitizen),
	}
	return t
}

func TestApplyIntent_JoinAddsThenUpdatesPlayer(t *testing.T) {
	tb := NewTable("s1")

	require.NoError(t, ApplyIntent(&tb, JoinIntent("p1", Profile{Name: "Ava", Avatar: "fox"})))
	require.Len(t, tb.Players, 1)
	assert.Equal(t, "Ava", tb.Players[0].Name)
	assert.True(t, tb.Players[0].Alive)
	assert.Equal(t, RoleNone, tb.Players[0].Role)

	require.NoError(t, ApplyIntent(&tb, JoinIntent("p1", Profile{Name: "Ava B"})))
	require.Len(t, tb.Players, 1)
	assert.Equal(t, "Ava B", tb.Players[0].Name)
}

func TestApplyIntent_LeaveRemovesOnlyInLobby(t *testing.T) {
	tb := NewTable("s1")
	tb.Players = []Player{player("p1", RoleNone)}
	require.NoError(t, ApplyIntent(&tb, LeaveIntent("p1")))
	assert.Empty(t, tb.Players)

	tb = nightTable()
	require.NoError(t, ApplyIntent(&tb, LeaveIntent("citizen")))
	require.NotNil(t, tb.Player("citizen"))
	assert.Equal(t, IntentLeave, tb.Player("citizen").LastAction)
}

func TestApplyIntent_KillThenSave(t *testing.T) {
	tb := nightTable()

	require.NoError(t, ApplyIntent(&tb, TargetIntent(IntentKill, "mafia", 1, "citizen")))
	assert.False(t, tb.Player("citizen").Alive)
	assert.Equal(t, []string{"citizen"}, tb.State.PendingKills)
	assert.Equal(t, IntentKill, tb.Player("mafia").LastAction)
	assert.Equal(t, "citizen", tb.Player("mafia").LastTarget)

	require.NoError(t, ApplyIntent(&tb, TargetIntent(IntentSave, "doctor", 1, "citizen")))
	assert.True(t, tb.Player("citizen").Alive)
	assert.Empty(t, tb.State.PendingKills)
	assert.Equal(t, "citizen", tb.State.LastSavedPlayerID)
}

func TestApplyIntent_InvestigateOnlyTeachesInvestigator(t *testing.T) {
	tb := nightTable()

	require.NoError(t, ApplyIntent(&tb, TargetIntent(IntentInvestigate, "detective", 1, "mafia")))
	assert.Equal(t, map[string]Role{"mafia": RoleMafia}, tb.Player("detective").KnownIdentities)
	assert.Empty(t, tb.Player("mafia").KnownIdentities)
}

func TestApplyIntent_VoteUpsertsPerRound(t *testing.T) {
	tb := nightTable()
	tb.State.Phase = PhaseCourt
	tb.State.AccusedPlayerID = "mafia"

	require.NoError(t, ApplyIntent(&tb, VoteIntent("citizen", 1, "mafia", true)))
	require.NoError(t, ApplyIntent(&tb, VoteIntent("citizen", 1, "mafia", false)))
	require.NoError(t, ApplyIntent(&tb, VoteIntent("doctor", 1, "mafia", true)))

	require.Len(t, tb.Votes, 2)
	assert.Equal(t, Vote{VoterID: "citizen", TargetID: "mafia", Guilty: false, Round: 1}, tb.Votes[0])
}

func TestApplyIntent_UnsupportedIntent(t *testing.T) {
	tb := nightTable()
	err := ApplyIntent(&tb, Intent{Type: "Dance", PlayerID: "citizen"})
	if err == nil || !errors.Is(err, ErrUnsupportedIntent) {
		t.Fatalf("want ErrUnsupportedIntent, got %v", err)
	}
}

func TestGameEngine_KillDuringSleep_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := newTableStore(nightTable())
	games := NewGameEngine(db)

	kill := TargetIntent(IntentKill, "mafia", 1, "citizen")
	require.NoError(t, Validate(ctx, db, "s1", kill))
	require.NoError(t, games.Reduce(ctx, "s1", kill))

	players, err := db.Players(ctx, "s1")
	require.NoError(t, err)
	for _, p := range players {
		if p.ID == "citizen" {
			assert.False(t, p.Alive)
		}
	}

	// mafia+accomplice vs doctor+detective: the game goes on.
	_, won := CheckWinner(players)
	assert.False(t, won)

	// A second kill of the same target is refused.
	assert.ErrorIs(t, Validate(ctx, db, "s1", kill), ErrInvalidTarget)
}

func TestGameEngine_ReduceUnknownSession(t *testing.T) {
	games := NewGameEngine(newTableStore())
	err := games.Reduce(context.Background(), "missing", JoinIntent("p1", Profile{Name: "x"}))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestIsRuleViolation(t *testing.T) {
	assert.True(t, IsRuleViolation(ErrWrongPhase))
	assert.True(t, IsRuleViolation(errors.Join(errors.New("ctx"), ErrStaleRound)))
	assert.False(t, IsRuleViolation(ErrNoSession))
	assert.False(t, IsRuleViolation(errors.New("disk full")))
}

func TestGameEngine_SubmitRejectsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	db := newTableStore(nightTable())
	games := NewGameEngine(db)

	err := games.Submit(ctx, "s1", TargetIntent(IntentKill, "citizen", 1, "doctor"))
	assert.ErrorIs(t, err, ErrWrongRole)
	players, _ := db.Players(ctx, "s1")
	for _, p := range players {
		assert.True(t, p.Alive, p.ID)
	}

	require.NoError(t, games.Submit(ctx, "s1", TargetIntent(IntentKill, "mafia", 1, "doctor")))
	st, _ := db.State(ctx, "s1")
	assert.Equal(t, []string{"doctor"}, st.PendingKills)
}
