// Package discovery advertises and finds game sessions on the LAN over
// mDNS/DNS-SD. Discovery is best-effort: failures are logged and show up as
// "no games found", never as a crash.
package discovery

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	wire "github.com/DoyleJ11/gondi/pkg/types"
)

const (
	txtSession = "session"
	txtCode    = "code"
	txtHost    = "host"
	txtAvatar  = "avatar"
	txtVersion = "v"
)

type shutdowner interface{ Shutdown() }

type registerFunc func(instance, service, domain string, port int, text []string) (shutdowner, error)

func zeroconfRegister(instance, service, domain string, port int, text []string) (shutdowner, error) {
	return zeroconf.Register(instance, service, domain, port, text, nil)
}

type Advertiser struct {
	mu       sync.Mutex
	server   shutdowner
	register registerFunc
	log      *zap.Logger
}

func NewAdvertiser(log *zap.Logger) *Advertiser {
	return &Advertiser{register: zeroconfRegister, log: log}
}

// Advertise publishes s on the LAN, replacing any earlier advertisement.
func (a *Advertiser) Advertise(s wire.GameSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	service := s.ServiceType
	if service == "" {
		service = wire.ServiceType
	}
	srv, err := a.register(s.Name, service, wire.ServiceDomain, s.Port, TXT(s))
	if err != nil {
		a.log.Warn("advertise failed", zap.String("session", s.ID), zap.Error(err))
		return fmt.Errorf("advertise %q: %w", s.Name, err)
	}
	a.server = srv
	a.log.Info("advertising session",
		zap.String("session", s.ID),
		zap.String("name", s.Name),
		zap.Int("port", s.Port))
	return nil
}

// Stop withdraws the advertisement. Safe to call when never started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Advertiser) stopLocked() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// TXT encodes the session identity as DNS-SD text records.
func TXT(s wire.GameSession) []string {
	return []string{
		txtSession + "=" + s.ID,
		txtCode + "=" + s.ShortCode(),
		txtHost + "=" + s.HostName,
		txtAvatar + "=" + s.HostAvatar,
		txtVersion + "=" + wire.ProtocolVersion,
	}
}

func portString(p int) string { return strconv.Itoa(p) }
