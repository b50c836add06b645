package types

import (
	"crypto/sha256"
	"net"
	"net/url"
	"strconv"

	"github.com/mr-tron/base58"
)

const (
	ServiceType     = "_gondi._tcp"
	ServiceDomain   = "local."
	ProtocolVersion = "1"
	WebSocketPath   = "/ws"
)

// GameSession identifies a hosted game on the LAN.
type GameSession struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	HostName    string `json:"host_name"`
	HostAvatar  string `json:"host_avatar,omitempty"`
	ServiceType string `json:"service_type"`
}

func (s GameSession) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// WebSocketURL is where players connect, e.g.
// ws://192.168.1.20:7420/ws?session=<id>.
func (s GameSession) WebSocketURL() string {
	u := url.URL{
		Scheme:   "ws",
		Host:     s.Address(),
		Path:     WebSocketPath,
		RawQuery: url.Values{"session": {s.ID}}.Encode(),
	}
	return u.String()
}

func (s GameSession) ShortCode() string { return ShortCode(s.ID) }

// ShortCode derives a short, human-typable join code from a session id.
func ShortCode(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return base58.Encode(sum[:5])
}
