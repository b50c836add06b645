// Package lobby is the client registry of one game session. A single
// goroutine owns the set of connected clients; joins, leaves and broadcasts
// are messages on its inbox, so fan-out never races with registration.
package lobby

import (
	"context"

	"github.com/DoyleJ11/gondi/internal/types"
)

type Msg interface{ isLobbyMsg() }

type Join struct {
	ClientID string
	Outbox   chan types.ServerUpdate // where this client wants to receive updates
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// Bind records which player a client speaks for.
type Bind struct {
	ClientID string
	PlayerID string
}

func (Bind) isLobbyMsg() {}

// Claim binds ClientID to PlayerID unless another client already speaks for
// that player. Reply receives the outcome.
type Claim struct {
	ClientID string
	PlayerID string
	Reply    chan bool
}

func (Claim) isLobbyMsg() {}

// Send delivers updates to one client only.
type Send struct {
	ClientID string
	Render   Render
}

func (Send) isLobbyMsg() {}

// Broadcast delivers updates to every connected client. Render is called
// once per recipient with the recipient's bound player id ("" if unbound).
type Broadcast struct {
	Render Render
}

func (Broadcast) isLobbyMsg() {}

type Lookup struct {
	ClientID string
	Reply    chan Binding
}

func (Lookup) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Render func(playerID string) []types.ServerUpdate

// Static renders the same updates for everyone.
func Static(updates ...types.ServerUpdate) Render {
	return func(string) []types.ServerUpdate { return updates }
}

type Binding struct {
	PlayerID  string
	Connected bool
}

type View struct {
	NumClients int
	Players    map[string]string // client id -> player id
}

type client struct {
	outbox   chan types.ServerUpdate
	playerID string
}

type Lobby struct {
	inbox    chan Msg
	greeting string
	clients  map[string]*client
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewLobby starts the registry. Every joining client first receives an
// Announcement carrying greeting.
func NewLobby(parent context.Context, greeting string) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:    make(chan Msg, 64),
		greeting: greeting,
		clients:  make(map[string]*client),
		ctx:      ctx,
		cancel:   cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				if old := l.clients[msg.ClientID]; old != nil {
					close(old.outbox)
				}
				c := &client{outbox: msg.Outbox}
				l.clients[msg.ClientID] = c
				l.deliver(msg.ClientID, c, []types.ServerUpdate{types.NewAnnouncement(l.greeting)})

			case Leave:
				if c := l.clients[msg.ClientID]; c != nil {
					close(c.outbox)
					delete(l.clients, msg.ClientID)
				}

			case Bind:
				if c := l.clients[msg.ClientID]; c != nil {
					c.playerID = msg.PlayerID
				}

			case Claim:
				msg.Reply <- l.claim(msg.ClientID, msg.PlayerID)

			case Send:
				if c := l.clients[msg.ClientID]; c != nil {
					l.deliver(msg.ClientID, c, msg.Render(c.playerID))
				}

			case Broadcast:
				for id, c := range l.clients {
					l.deliver(id, c, msg.Render(c.playerID))
				}

			case Lookup:
				c := l.clients[msg.ClientID]
				if c == nil {
					msg.Reply <- Binding{}
					break
				}
				msg.Reply <- Binding{PlayerID: c.playerID, Connected: true}

			case GetState:
				players := make(map[string]string, len(l.clients))
				for id, c := range l.clients {
					players[id] = c.playerID
				}
				msg.Reply <- View{NumClients: len(l.clients), Players: players}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) claim(clientID, playerID string) bool {
	c := l.clients[clientID]
	if c == nil {
		return false
	}
	for id, other := range l.clients {
		if id != clientID && other.playerID == playerID {
			return false
		}
	}
	c.playerID = playerID
	return true
}

// deliver never blocks. A client whose outbox is full is dropped; closing
// its outbox tells the connection to go away.
func (l *Lobby) deliver(id string, c *client, updates []types.ServerUpdate) {
	for _, u := range updates {
		select {
		case c.outbox <- u:
		default:
			close(c.outbox)
			delete(l.clients, id)
			return
		}
	}
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox) // Tell client no more updates
		delete(l.clients, id)
	}
	l.cancel()
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Post hands msg to the lobby unless it has shut down.
func (l *Lobby) Post(msg Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- msg:
		return true
	case <-l.ctx.Done():
		return false
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Lookup asks the lobby which player clientID is bound to.
func (l *Lobby) Lookup(clientID string) Binding {
	reply := make(chan Binding, 1)
	if !l.Post(Lookup{ClientID: clientID, Reply: reply}) {
		return Binding{}
	}
	select {
	case b := <-reply:
		return b
	case <-l.ctx.Done():
		return Binding{}
	}
}

// Claim binds clientID to playerID if no other connected client holds it.
func (l *Lobby) Claim(clientID, playerID string) bool {
	reply := make(chan bool, 1)
	if !l.Post(Claim{ClientID: clientID, PlayerID: playerID, Reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-l.ctx.Done():
		return false
	}
}
