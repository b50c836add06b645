package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/gondi/internal/hub"
	"github.com/DoyleJ11/gondi/internal/lobby"
	"github.com/DoyleJ11/gondi/internal/types"
)

const (
	outboxSize   = 32
	readTimeout  = 30 * time.Second
	writeTimeout = 3 * time.Second
)

// Dispatcher handles one inbound frame from clientID. Replies travel through
// the session lobby, never through the return value.
type Dispatcher interface {
	HandleClientMessage(ctx context.Context, sessionID, clientID string, raw []byte)
}

func Handler(h *hub.Hub, d Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		lb := h.Get(sessionID)
		if lb == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Players dial from native clients on the LAN, which send no Origin.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		out := make(chan types.ServerUpdate, outboxSize)
		clientID := uuid.NewString()
		log := log.With(zap.String("session", sessionID), zap.String("client", clientID))

		if !lb.Post(lobby.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer lb.Post(lobby.Leave{ClientID: clientID})
		log.Info("client connected", zap.String("remote", r.RemoteAddr))

		// Writer goroutine. The lobby closes out when the client leaves, is
		// dropped for being slow, or the session shuts down.
		go func() {
			for u := range out {
				payload, err := json.Marshal(u)
				if err != nil {
					log.Error("encode update", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					conn.CloseNow()
				}
			}
			conn.Close(websocket.StatusGoingAway, "bye")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Info("client connection lost", zap.Error(err))
				}
				return
			}

			d.HandleClientMessage(r.Context(), sessionID, clientID, data)
		}
	}
}
