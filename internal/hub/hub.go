// Package hub indexes the live session lobbies of this host by session id.
package hub

import (
	"context"

	"github.com/DoyleJ11/gondi/internal/lobby"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby returns the session's lobby, starting one if needed.
type CreateLobby struct {
	SessionID string
	Greeting  string // only used if creation happens
	Reply     chan *lobby.Lobby
}

type GetLobby struct {
	SessionID string
	Reply     chan *lobby.Lobby
}

// RemoveLobby shuts the session's lobby down, closing every client outbox.
type RemoveLobby struct {
	SessionID string
}

type ListLobbies struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.SessionID]; lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Greeting)
				h.lobbies[msg.SessionID] = lb
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.SessionID] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.SessionID]; lb != nil {
					lb.Post(lobby.Shutdown{})
					delete(h.lobbies, msg.SessionID)
				}

			case ListLobbies:
				ids := make([]string, 0, len(h.lobbies))
				for id := range h.lobbies {
					ids = append(ids, id)
				}
				msg.Reply <- ids

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Post(lobby.Shutdown{})
	}
	clear(h.lobbies)
	h.cancel()
}

// Get is a blocking GetLobby. It returns nil once the hub has shut down.
func (h *Hub) Get(sessionID string) *lobby.Lobby {
	return h.ask(func(reply chan *lobby.Lobby) HubMsg {
		return GetLobby{SessionID: sessionID, Reply: reply}
	})
}

// Create is a blocking CreateLobby.
func (h *Hub) Create(sessionID, greeting string) *lobby.Lobby {
	return h.ask(func(reply chan *lobby.Lobby) HubMsg {
		return CreateLobby{SessionID: sessionID, Greeting: greeting, Reply: reply}
	})
}

func (h *Hub) Remove(sessionID string) {
	select {
	case h.inbox <- RemoveLobby{SessionID: sessionID}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) ask(build func(chan *lobby.Lobby) HubMsg) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- build(reply):
	case <-h.ctx.Done():
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.ctx.Done():
		return nil
	}
}
