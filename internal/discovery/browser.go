package discovery

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	wire "github.com/DoyleJ11/gondi/pkg/types"
)

// Service is a resolved session advertisement.
type Service struct {
	Name      string
	Host      string
	Port      int
	SessionID string
	Code      string
	HostName  string
	Avatar    string
	Version   string
}

func (s Service) Address() string { return net.JoinHostPort(s.Host, portString(s.Port)) }

// key tells instances apart. Two hosts may pick the same display name.
func (s Service) key() string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.Name + "@" + s.Address()
}

func (s Service) Session() wire.GameSession {
	return wire.GameSession{
		ID:          s.SessionID,
		Name:        s.Name,
		Host:        s.Host,
		Port:        s.Port,
		HostName:    s.HostName,
		HostAvatar:  s.Avatar,
		ServiceType: wire.ServiceType,
	}
}

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r, err := zeroconf.NewResolver()
	if err != nil {
		return err
	}
	return r.Browse(ctx, service, domain, entries)
}

type Browser struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	browse browseFunc
	log    *zap.Logger
}

func NewBrowser(log *zap.Logger) *Browser {
	return &Browser{browse: zeroconfBrowse, log: log}
}

// Discover browses for serviceType until ctx is done or Stop is called.
// onFound runs once per resolved instance, from a single goroutine.
func (b *Browser) Discover(ctx context.Context, serviceType string, onFound func(Service)) {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	go func() {
		if err := b.browse(ctx, serviceType, wire.ServiceDomain, entries); err != nil {
			b.log.Warn("browse failed", zap.String("service", serviceType), zap.Error(err))
		}
	}()

	go func() {
		seen := make(map[string]bool)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-entries:
				if !ok {
					return
				}
				svc, ok := fromEntry(e)
				if !ok {
					continue
				}
				if seen[svc.key()] {
					continue
				}
				seen[svc.key()] = true
				onFound(svc)
			}
		}
	}()
}

// Stop ends the current browse. Safe to call when never started.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// Lookup browses for the default service type for up to timeout and
// returns what it found, in discovery order.
func (b *Browser) Lookup(ctx context.Context, timeout time.Duration) []Service {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found []Service
	)
	b.Discover(ctx, wire.ServiceType, func(s Service) {
		mu.Lock()
		found = append(found, s)
		mu.Unlock()
	})
	<-ctx.Done()
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	return found
}

func fromEntry(e *zeroconf.ServiceEntry) (Service, bool) {
	if e == nil || e.Port == 0 {
		return Service{}, false
	}
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	case e.HostName != "":
		host = strings.TrimSuffix(e.HostName, ".")
	default:
		return Service{}, false
	}

	svc := Service{Name: e.Instance, Host: host, Port: e.Port}
	for _, kv := range e.Text {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case txtSession:
			svc.SessionID = v
		case txtCode:
			svc.Code = v
		case txtHost:
			svc.HostName = v
		case txtAvatar:
			svc.Avatar = v
		case txtVersion:
			svc.Version = v
		}
	}
	return svc, true
}
