package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/skip2/go-qrcode"

	wire "github.com/DoyleJ11/gondi/pkg/types"
)

// SessionSource reports the session this host is currently serving.
type SessionSource interface {
	Session() (wire.GameSession, bool)
}

type sessionInfo struct {
	wire.GameSession
	Code         string `json:"code"`
	WebSocketURL string `json:"ws_url"`
}

func Session(src SessionSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := src.Session()
		if !ok {
			http.Error(w, "no session hosted", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sessionInfo{
			GameSession:  s,
			Code:         s.ShortCode(),
			WebSocketURL: s.WebSocketURL(),
		})
	}
}

// SessionQR renders the session's websocket URL as a PNG QR code, so a
// player can join by scanning the moderator's screen.
func SessionQR(src SessionSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := src.Session()
		if !ok {
			http.Error(w, "no session hosted", http.StatusNotFound)
			return
		}

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(s.WebSocketURL(), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
