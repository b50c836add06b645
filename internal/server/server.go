// Package server hosts one game session on the LAN. The moderator's device
// runs it: players connect over WebSocket, their intents are validated and
// reduced into the store, and every committed change is broadcast back as
// personalized snapshots.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/gondi/internal/engine"
	"github.com/DoyleJ11/gondi/internal/events"
	"github.com/DoyleJ11/gondi/internal/httpapi"
	"github.com/DoyleJ11/gondi/internal/hub"
	"github.com/DoyleJ11/gondi/internal/lobby"
	"github.com/DoyleJ11/gondi/internal/types"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

var (
	ErrAlreadyStarted = errors.New("server already started")
	ErrNotStarted     = errors.New("server not started")
)

// Advertiser publishes the hosted session on the network.
type Advertiser interface {
	Advertise(s wire.GameSession) error
	Stop()
}

type nopAdvertiser struct{}

func (nopAdvertiser) Advertise(wire.GameSession) error { return nil }
func (nopAdvertiser) Stop()                            {}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option { return func(s *Server) { s.log = log } }

func WithAdvertiser(a Advertiser) Option { return func(s *Server) { s.adv = a } }

// WithPublisher mirrors session activity to p. Stop closes p.
func WithPublisher(p events.Publisher) Option { return func(s *Server) { s.pub = p } }

// WithListenAddr sets the bind address and port. Port 0 picks a free port.
func WithListenAddr(host string, port int) Option {
	return func(s *Server) {
		s.bindHost = host
		s.bindPort = port
	}
}

// WithAdvertisedHost overrides the address announced to players.
func WithAdvertisedHost(host string) Option { return func(s *Server) { s.advertisedHost = host } }

// Identity describes the session being hosted and the moderator hosting it.
type Identity struct {
	SessionID  string // generated when empty
	Name       string
	HostID     string
	HostName   string
	HostAvatar string
}

type Server struct {
	store engine.Store
	games *engine.GameEngine
	mods  *engine.ModeratorEngine
	adv   Advertiser
	pub   events.Publisher
	log   *zap.Logger

	bindHost       string
	bindPort       int
	advertisedHost string

	mu       sync.RWMutex
	started  bool
	session  wire.GameSession
	identity Identity
	hub      *hub.Hub
	http     *http.Server
	cancel   context.CancelFunc
	watch    context.CancelFunc // stops the observer of the current session
	group    *errgroup.Group
	runCtx   context.Context
}

func New(store engine.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		games: engine.NewGameEngine(store),
		mods:  engine.NewModeratorEngine(store),
		adv:   nopAdvertiser{},
		pub:   events.Nop{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens, creates the game if the store does not have it yet,
// advertises the session and begins broadcasting changes. The server runs
// until Stop is called or ctx is cancelled.
func (s *Server) Start(ctx context.Context, id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if id.SessionID == "" {
		id.SessionID = uuid.NewString()
	}
	if id.Name == "" {
		id.Name = id.HostName
	}

	if err := s.ensureGame(ctx, id); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.bindHost, fmt.Sprint(s.bindPort)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	host := s.advertisedHost
	if host == "" {
		host = advertiseHost(s.bindHost)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	h := hub.NewHub(gctx)

	s.started = true
	s.identity = id
	s.hub = h
	s.cancel = cancel
	s.group = g
	s.runCtx = gctx
	s.session = wire.GameSession{
		ID:          id.SessionID,
		Name:        id.Name,
		Host:        host,
		Port:        ln.Addr().(*net.TCPAddr).Port,
		HostName:    id.HostName,
		HostAvatar:  id.HostAvatar,
		ServiceType: wire.ServiceType,
	}
	s.http = &http.Server{
		Handler:           httpapi.SetupRoutes(h, s, s, s.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.Create(id.SessionID, greeting(id))
	s.watchLocked(id.SessionID)

	srv := s.http
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	if err := s.adv.Advertise(s.session); err != nil {
		// Players can still join by address or QR code.
		s.log.Warn("advertise session", zap.Error(err))
	}

	s.log.Info("session hosted",
		zap.String("session", id.SessionID),
		zap.String("code", s.session.ShortCode()),
		zap.String("address", s.session.Address()),
	)
	return nil
}

// Session implements httpapi.SessionSource.
func (s *Server) Session() (wire.GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.started
}

// Addr is the address the server listens on, useful when started on port 0.
func (s *Server) Addr() string {
	sess, _ := s.Session()
	return sess.Address()
}

// Stop withdraws the advertisement, disconnects every client and shuts the
// HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	srv, h, g, cancel := s.http, s.hub, s.group, s.cancel
	s.mu.Unlock()

	s.adv.Stop()
	h.Shutdown()

	var err error
	err = multierr.Append(err, srv.Shutdown(ctx))
	cancel()
	err = multierr.Append(err, g.Wait())
	err = multierr.Append(err, s.pub.Close())
	if err != nil {
		s.log.Warn("shutdown", zap.Error(err))
	}
	return err
}

// HandleModeratorCommand applies cmd to the hosted session. Creating a game
// under a new session id moves hosting to it: the old lobby is closed and
// the new session is advertised. Resetting the hosted session reopens an
// empty lobby with the moderator in it.
func (s *Server) HandleModeratorCommand(ctx context.Context, cmd engine.Command) error {
	s.mu.RLock()
	current, started, id := s.session.ID, s.started, s.identity
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if cmd.Type == engine.CmdCreateGame && cmd.Host == nil {
		cmd.Host = hostPlayer(id)
	}
	if err := s.mods.Handle(ctx, current, cmd); err != nil {
		s.log.Debug("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		return err
	}

	target := current
	if cmd.SessionID != "" && (cmd.Type == engine.CmdCreateGame || cmd.Type == engine.CmdResetGame) {
		target = cmd.SessionID
	}
	s.publish(ctx, events.Event{SessionID: target, Kind: events.KindCommand, Command: &cmd})

	switch {
	case cmd.Type == engine.CmdCreateGame && target != current:
		s.rehost(ctx, target)
	case cmd.Type == engine.CmdResetGame && target == current:
		return s.reopen(ctx, id)
	}
	return nil
}

// reopen recreates the hosted session as a fresh lobby after a reset.
// Connected clients keep their bindings and may join again.
func (s *Server) reopen(ctx context.Context, id Identity) error {
	create := engine.Command{Type: engine.CmdCreateGame, Host: hostPlayer(id)}
	if err := s.mods.Handle(ctx, id.SessionID, create); err != nil {
		return fmt.Errorf("reopen lobby: %w", err)
	}
	if lb := s.lobby(id.SessionID); lb != nil {
		lb.Post(lobby.Broadcast{Render: lobby.Static(types.NewAnnouncement("the game was reset"))})
	}
	s.publish(ctx, events.Event{SessionID: id.SessionID, Kind: events.KindReset})
	return nil
}

func (s *Server) rehost(ctx context.Context, sessionID string) {
	s.mu.Lock()
	old := s.session.ID
	s.identity.SessionID = sessionID
	s.session.ID = sessionID
	sess, h := s.session, s.hub
	h.Create(sessionID, greeting(s.identity))
	s.watchLocked(sessionID)
	s.mu.Unlock()

	h.Remove(old)
	if err := s.store.Reset(ctx, old); err != nil {
		s.log.Warn("drop old session", zap.String("session", old), zap.Error(err))
	}
	if err := s.adv.Advertise(sess); err != nil {
		s.log.Warn("advertise session", zap.Error(err))
	}
	s.log.Info("session moved", zap.String("from", old), zap.String("to", sessionID))
}

// HandleClientMessage implements ws.Dispatcher.
func (s *Server) HandleClientMessage(ctx context.Context, sessionID, clientID string, raw []byte) {
	lb := s.lobby(sessionID)
	if lb == nil {
		return
	}
	reply := func(u types.ServerUpdate) {
		lb.Post(lobby.Send{ClientID: clientID, Render: lobby.Static(u)})
	}

	u, err := types.DecodeClientUpdate(raw)
	if err != nil {
		reply(types.NewError(err.Error()))
		return
	}

	switch u.Type {
	case wire.Ping:
		reply(types.NewLastPing(time.Now()))

	case wire.GetGameState:
		snap, err := s.read(ctx, sessionID)
		if err != nil {
			reply(types.NewError(err.Error()))
			return
		}
		lb.Post(lobby.Send{ClientID: clientID, Render: snap.render})

	case wire.PlayerIntentMsg:
		s.handleIntent(ctx, lb, sessionID, clientID, *u.Intent)
	}
}

func (s *Server) handleIntent(ctx context.Context, lb *lobby.Lobby, sessionID, clientID string, in engine.Intent) {
	log := s.log.With(zap.String("session", sessionID), zap.String("client", clientID), zap.String("intent", string(in.Type)))
	reply := func(u types.ServerUpdate) {
		lb.Post(lobby.Send{ClientID: clientID, Render: lobby.Static(u)})
	}

	bound := lb.Lookup(clientID).PlayerID
	switch {
	case in.Type == engine.IntentJoin:
		s.handleJoin(ctx, lb, sessionID, clientID, bound, in, log)
		return
	case bound == "":
		reply(types.NewForbidden("join before sending " + string(in.Type)))
		return
	case in.PlayerID != bound:
		reply(types.NewForbidden("cannot act for another player"))
		return
	}

	if err := s.games.Submit(ctx, sessionID, in); err != nil {
		log.Debug("intent rejected", zap.Error(err))
		reply(refusal(err))
		return
	}

	if in.Type == engine.IntentLeave {
		lb.Post(lobby.Bind{ClientID: clientID})
	}
	s.accepted(ctx, lb, sessionID, clientID, in)
	log.Debug("intent applied", zap.String("player", in.PlayerID))
}

// handleJoin seats the client as in.PlayerID. In the lobby the Join is
// reduced like any intent. Later only a player already at the table can
// come back, and only while no other connection speaks for them.
func (s *Server) handleJoin(ctx context.Context, lb *lobby.Lobby, sessionID, clientID, bound string, in engine.Intent, log *zap.Logger) {
	reply := func(u types.ServerUpdate) {
		lb.Post(lobby.Send{ClientID: clientID, Render: lobby.Static(u)})
	}
	if bound != "" && bound != in.PlayerID {
		reply(types.NewForbidden("connection already joined as " + bound))
		return
	}

	// Claim ahead of the write so the broadcast it triggers already renders
	// for the new player.
	if bound == "" && in.PlayerID != "" && !lb.Claim(clientID, in.PlayerID) {
		reply(types.NewForbidden(in.PlayerID + " is already connected"))
		return
	}
	release := func() {
		if bound == "" {
			lb.Post(lobby.Bind{ClientID: clientID})
		}
	}

	snap, err := s.read(ctx, sessionID)
	if err != nil {
		release()
		reply(refusal(err))
		return
	}

	if snap.state.Phase != engine.PhaseLobby {
		t := engine.Table{State: snap.state, Players: snap.players}
		if err := engine.CheckRejoin(&t, in.PlayerID); err != nil {
			release()
			log.Debug("rejoin refused", zap.Error(err))
			reply(refusal(err))
			return
		}
		lb.Post(lobby.Send{ClientID: clientID, Render: snap.render})
		reply(types.NewAnnouncement(string(in.Type) + " accepted"))
		log.Info("player reconnected", zap.String("player", in.PlayerID))
		return
	}

	if err := s.games.Submit(ctx, sessionID, in); err != nil {
		release()
		log.Debug("intent rejected", zap.Error(err))
		reply(refusal(err))
		return
	}
	s.accepted(ctx, lb, sessionID, clientID, in)
	log.Debug("intent applied", zap.String("player", in.PlayerID))
}

func (s *Server) accepted(ctx context.Context, lb *lobby.Lobby, sessionID, clientID string, in engine.Intent) {
	lb.Post(lobby.Send{ClientID: clientID, Render: lobby.Static(types.NewAnnouncement(string(in.Type) + " accepted"))})
	s.publish(ctx, events.Event{SessionID: sessionID, Kind: events.KindIntent, Round: in.Round, Intent: &in})
}

// refusal maps a rejected intent to the reply the client sees.
func refusal(err error) types.ServerUpdate {
	if engine.IsRuleViolation(err) {
		return types.NewForbidden(err.Error())
	}
	return types.NewError(err.Error())
}

func (s *Server) lobby(sessionID string) *lobby.Lobby {
	s.mu.RLock()
	h := s.hub
	s.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h.Get(sessionID)
}

type snapshot struct {
	state   engine.GameState
	players []engine.Player
	votes   []engine.Vote
}

func (s *Server) read(ctx context.Context, sessionID string) (snapshot, error) {
	var snap snapshot
	var err error
	if snap.state, err = s.store.State(ctx, sessionID); err != nil {
		return snap, err
	}
	if snap.players, err = s.store.Players(ctx, sessionID); err != nil {
		return snap, err
	}
	if snap.votes, err = s.store.Votes(ctx, sessionID); err != nil {
		return snap, err
	}
	return snap, nil
}

// render gives everyone the same state and votes, with roles redacted per
// viewer.
func (snap snapshot) render(playerID string) []types.ServerUpdate {
	return []types.ServerUpdate{
		types.NewGameStateSnapshot(snap.state),
		types.NewPlayersSnapshot(engine.VisibleTo(snap.state, snap.players, playerID)),
		types.NewVotesSnapshot(snap.votes),
	}
}

// watchLocked replaces the observer with one for sessionID. s.mu must be held.
func (s *Server) watchLocked(sessionID string) {
	if s.watch != nil {
		s.watch()
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	s.watch = cancel
	s.group.Go(func() error {
		s.observe(ctx, sessionID)
		return nil
	})
}

var errLobbyGone = errors.New("lobby closed")

// observe broadcasts a fresh snapshot after every committed change to
// sessionID, plus an announcement when the phase moves or the game ends.
func (s *Server) observe(ctx context.Context, sessionID string) {
	changes := s.store.Watch(ctx, sessionID)
	// Writes that landed before the subscription were not notified.
	last, _ := s.broadcast(ctx, sessionID)

	for range changes {
		state, err := s.broadcast(ctx, sessionID)
		switch {
		case errors.Is(err, errLobbyGone):
			return
		case errors.Is(err, engine.ErrNoSession):
			last = engine.GameState{}
			continue
		case err != nil:
			if ctx.Err() == nil {
				s.log.Warn("read session", zap.String("session", sessionID), zap.Error(err))
			}
			continue
		}

		lb := s.lobby(sessionID)
		if lb == nil {
			return
		}
		for _, msg := range announcements(last, state) {
			lb.Post(lobby.Broadcast{Render: lobby.Static(types.NewAnnouncement(msg))})
			s.publish(ctx, events.Event{SessionID: sessionID, Kind: events.KindAnnouncement, Phase: state.Phase, Round: state.Round, Message: msg})
		}
		s.publish(ctx, events.Event{SessionID: sessionID, Kind: events.KindState, Phase: state.Phase, Round: state.Round})
		last = state
	}
}

// broadcast sends every client of sessionID its view of the stored game.
func (s *Server) broadcast(ctx context.Context, sessionID string) (engine.GameState, error) {
	lb := s.lobby(sessionID)
	if lb == nil {
		return engine.GameState{}, errLobbyGone
	}
	snap, err := s.read(ctx, sessionID)
	if err != nil {
		return engine.GameState{}, err
	}
	lb.Post(lobby.Broadcast{Render: snap.render})
	return snap.state, nil
}

func announcements(prev, next engine.GameState) []string {
	var out []string
	if next.Phase != prev.Phase && prev.Phase != "" {
		switch next.Phase {
		case engine.PhaseSleep:
			out = append(out, fmt.Sprintf("night falls, round %d", next.Round))
		case engine.PhaseTownHall:
			out = append(out, "the town wakes up")
		case engine.PhaseCourt:
			out = append(out, fmt.Sprintf("%s is on trial", next.AccusedPlayerID))
		}
	}
	if next.Winner != "" && next.Winner != prev.Winner {
		out = append(out, fmt.Sprintf("%s wins", next.Winner))
	}
	return out
}

func (s *Server) ensureGame(ctx context.Context, id Identity) error {
	_, err := s.store.State(ctx, id.SessionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, engine.ErrNoSession) {
		return err
	}

	return s.mods.Handle(ctx, id.SessionID, engine.Command{Type: engine.CmdCreateGame, Host: hostPlayer(id)})
}

// hostPlayer is the moderator's row in a new game, nil without a host id.
func hostPlayer(id Identity) *engine.Player {
	if id.HostID == "" {
		return nil
	}
	p := engine.NewPlayer(id.HostID, engine.Profile{Name: id.HostName, Avatar: id.HostAvatar})
	return &p
}

func (s *Server) publish(ctx context.Context, ev events.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Debug("publish event", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func greeting(id Identity) string {
	return fmt.Sprintf("welcome to %s (code %s)", id.Name, wire.ShortCode(id.SessionID))
}
