// Package events mirrors session activity to an external bus. Mirroring is
// optional: the game never depends on it.
package events

import (
	"context"
	"time"

	"github.com/DoyleJ11/gondi/internal/engine"
)

type Kind string

const (
	KindIntent       Kind = "intent"
	KindCommand      Kind = "command"
	KindState        Kind = "state"
	KindAnnouncement Kind = "announcement"
	KindReset        Kind = "reset"
)

type Event struct {
	SessionID string          `json:"session_id"`
	Kind      Kind            `json:"kind"`
	Phase     engine.Phase    `json:"phase,omitempty"`
	Round     int             `json:"round,omitempty"`
	Intent    *engine.Intent  `json:"intent,omitempty"`
	Command   *engine.Command `json:"command,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
