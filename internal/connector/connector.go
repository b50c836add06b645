// Package connector keeps one player device connected to a session server.
// It dials with bounded retry, proves liveness with pings, drops the socket
// when the server goes quiet and folds every broadcast into LocalState.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/gondi/internal/engine"
	"github.com/DoyleJ11/gondi/internal/profile"
	"github.com/DoyleJ11/gondi/internal/types"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrWatchdog     = errors.New("server went quiet")
)

// ConnectError is returned once every attempt to reach a server failed.
type ConnectError struct {
	Address  string
	Attempts int
	Err      error // last failure
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: gave up after %d attempts: %v", e.Address, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

type options struct {
	maxAttempts      int
	backoffStep      time.Duration
	maxBackoff       time.Duration
	pingInterval     time.Duration
	watchdogInterval time.Duration
	watchdogTimeout  time.Duration
	leaveTimeout     time.Duration
	dialer           Dialer
	log              *zap.Logger
	onStatus         func(Status)
}

type Option func(*options)

func WithMaxAttempts(n int) Option { return func(o *options) { o.maxAttempts = n } }

// WithBackoff sets the retry delay: attempt n waits min(n*step, max).
func WithBackoff(step, max time.Duration) Option {
	return func(o *options) {
		o.backoffStep = step
		o.maxBackoff = max
	}
}

func WithPingInterval(d time.Duration) Option { return func(o *options) { o.pingInterval = d } }

// WithWatchdog closes the socket when nothing arrived for timeout, checked
// every interval.
func WithWatchdog(interval, timeout time.Duration) Option {
	return func(o *options) {
		o.watchdogInterval = interval
		o.watchdogTimeout = timeout
	}
}

func WithDialer(d Dialer) Option { return func(o *options) { o.dialer = d } }

func WithLogger(log *zap.Logger) Option { return func(o *options) { o.log = log } }

// WithStatusHook is called on every status change, including repeated
// Loading while retrying.
func WithStatusHook(fn func(Status)) Option { return func(o *options) { o.onStatus = fn } }

type Connector struct {
	opts    options
	profile profile.Provider
	log     *zap.Logger

	mu       sync.Mutex
	state    LocalState
	conn     Conn
	playerID string
	gen      uint64
	stop     context.CancelFunc
	group    *errgroup.Group
	pingSent time.Time

	writeMu  sync.Mutex
	lastSeen atomic.Int64 // unix nanos of the last inbound frame
	changes  chan struct{}
}

func New(p profile.Provider, opts ...Option) *Connector {
	o := options{
		maxAttempts:      5,
		backoffStep:      2 * time.Second,
		maxBackoff:       10 * time.Second,
		pingInterval:     10 * time.Second,
		watchdogInterval: 15 * time.Second,
		watchdogTimeout:  20 * time.Second,
		leaveTimeout:     2 * time.Second,
		dialer:           WebSocketDialer{},
		log:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Connector{
		opts:    o,
		profile: p,
		log:     o.log,
		state:   LocalState{Status: StatusIdle},
		changes: make(chan struct{}, 1),
	}
}

// State returns a copy of the local view of the session.
func (c *Connector) State() LocalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Changes signals after every local state change. Signals coalesce, so a
// reader should call State after each one.
func (c *Connector) Changes() <-chan struct{} { return c.changes }

func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status
}

func (c *Connector) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Connector) setStatus(s Status, reason string) {
	c.mu.Lock()
	c.state.Status = s
	if reason != "" {
		c.state.LastError = reason
	}
	c.mu.Unlock()

	if c.opts.onStatus != nil {
		c.opts.onStatus(s)
	}
	c.notify()
}

func (c *Connector) backoff(attempt int) time.Duration {
	return min(time.Duration(attempt)*c.opts.backoffStep, c.opts.maxBackoff)
}

// Connect replaces any current connection with one to session. It asks for
// the full game state and then joins with the local profile. When every
// attempt fails the status becomes Error and a *ConnectError is returned.
func (c *Connector) Connect(ctx context.Context, session wire.GameSession) error {
	c.closeCurrent()

	me, err := c.profile.Current(ctx)
	if err != nil {
		c.setStatus(StatusError, err.Error())
		return fmt.Errorf("load profile: %w", err)
	}

	url := session.WebSocketURL()
	log := c.log.With(zap.String("session", session.ID), zap.String("address", session.Address()))

	for attempt := 1; ; attempt++ {
		c.setStatus(StatusLoading, "")

		conn, err := c.opts.dialer.Dial(ctx, url)
		if err == nil {
			if err = c.handshake(ctx, conn, me); err == nil {
				c.setStatus(StatusSuccess, "")
				c.run(conn, session, me.PlayerID)
				log.Info("connected", zap.Int("attempt", attempt))
				return nil
			}
			conn.Close()
		}
		log.Debug("connect attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt >= c.opts.maxAttempts {
			return c.giveUp(session, attempt, err)
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return c.giveUp(session, attempt, ctx.Err())
		}
	}
}

func (c *Connector) giveUp(session wire.GameSession, attempts int, err error) error {
	c.setStatus(StatusError, err.Error())
	c.log.Warn("connect failed", zap.String("address", session.Address()), zap.Int("attempts", attempts), zap.Error(err))
	return &ConnectError{Address: session.Address(), Attempts: attempts, Err: err}
}

func (c *Connector) handshake(ctx context.Context, conn Conn, me profile.Profile) error {
	if err := c.write(ctx, conn, types.GetGameState()); err != nil {
		return err
	}
	return c.write(ctx, conn, types.IntentUpdate(engine.JoinIntent(me.PlayerID, me.Engine())))
}

// run starts the receive, ping and watchdog loops for conn. All three stop
// together when any of them fails or the connection is closed.
func (c *Connector) run(conn Conn, session wire.GameSession, playerID string) {
	ctx, stop := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	c.lastSeen.Store(time.Now().UnixNano())

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.conn = conn
	c.playerID = playerID
	c.stop = stop
	c.group = g
	c.state.Session = session
	c.mu.Unlock()

	g.Go(func() error { return c.receiveLoop(gctx, conn) })
	g.Go(func() error { return c.pingLoop(gctx, conn) })
	g.Go(func() error { return c.watchdogLoop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})

	go func() {
		err := g.Wait()
		c.mu.Lock()
		current := c.gen == gen
		if current {
			c.conn = nil
			c.stop = nil
			c.group = nil
		}
		c.mu.Unlock()
		stop()

		if current {
			c.log.Info("disconnected", zap.Error(err))
			reason := ""
			if err != nil {
				reason = err.Error()
			}
			c.setStatus(StatusDisconnected, reason)
		}
	}()
}

func (c *Connector) receiveLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.lastSeen.Store(time.Now().UnixNano())

		u, err := types.DecodeServerUpdate(data)
		if err != nil {
			c.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		c.handleServerUpdate(u)
	}
}

func (c *Connector) handleServerUpdate(u types.ServerUpdate) {
	c.mu.Lock()
	c.state.apply(u, time.Now(), c.pingSent)
	c.mu.Unlock()

	switch u.Type {
	case wire.Error, wire.Forbidden:
		c.log.Info("server refused", zap.String("type", string(u.Type)), zap.String("message", u.Message))
	case wire.Announcement:
		c.log.Debug("announcement", zap.String("message", u.Message))
	}
	c.notify()
}

func (c *Connector) pingLoop(ctx context.Context, conn Conn) error {
	t := time.NewTicker(c.opts.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			c.mu.Lock()
			c.pingSent = now
			c.mu.Unlock()
			if err := c.write(ctx, conn, types.Ping()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (c *Connector) watchdogLoop(ctx context.Context) error {
	t := time.NewTicker(c.opts.watchdogInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			quiet := now.Sub(time.Unix(0, c.lastSeen.Load()))
			if quiet > c.opts.watchdogTimeout {
				c.log.Warn("watchdog tripped", zap.Duration("quiet", quiet))
				return fmt.Errorf("%w for %s", ErrWatchdog, quiet.Round(time.Millisecond))
			}
		}
	}
}

func (c *Connector) write(ctx context.Context, conn Conn, u types.ClientUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(ctx, data)
}

// Intent sends in on behalf of the local player. PlayerID and Round are
// filled in from the local state.
func (c *Connector) Intent(ctx context.Context, in engine.Intent) error {
	c.mu.Lock()
	conn := c.conn
	in.PlayerID = c.playerID
	in.Round = c.state.Game.Round
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	return c.write(ctx, conn, types.IntentUpdate(in))
}

// Rejoin sends Join again with the current profile, for example after the
// moderator reset the game back to the lobby or the player left.
func (c *Connector) Rejoin(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	me, err := c.profile.Current(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	c.mu.Lock()
	c.playerID = me.PlayerID
	c.mu.Unlock()
	return c.write(ctx, conn, types.IntentUpdate(engine.JoinIntent(me.PlayerID, me.Engine())))
}

// closeCurrent stops the loops and closes the socket without leaving the
// game, so a reconnect keeps the player's seat.
func (c *Connector) closeCurrent() {
	c.mu.Lock()
	stop, g := c.stop, c.group
	c.conn, c.stop, c.group = nil, nil, nil
	c.gen++
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	if g != nil {
		_ = g.Wait()
	}
}

// Dispose leaves the game, closes the connection and forgets the local
// state. The Leave is sent even when ctx is already cancelled. Disposing
// with no live connection is fine.
func (c *Connector) Dispose(ctx context.Context) {
	c.mu.Lock()
	conn, playerID := c.conn, c.playerID
	c.mu.Unlock()

	if conn != nil && playerID != "" {
		leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.leaveTimeout)
		err := c.write(leaveCtx, conn, types.IntentUpdate(engine.LeaveIntent(playerID)))
		cancel()
		if err != nil {
			c.log.Debug("leave not delivered", zap.Error(err))
		}
	}

	c.closeCurrent()

	c.mu.Lock()
	c.state = LocalState{Status: StatusIdle}
	c.playerID = ""
	c.pingSent = time.Time{}
	c.mu.Unlock()

	if c.opts.onStatus != nil {
		c.opts.onStatus(StatusIdle)
	}
	c.notify()
}
