// Package types defines the frames exchanged over a session websocket. One
// JSON object per text frame, discriminated by "type".
package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/gondi/internal/engine"
	wire "github.com/DoyleJ11/gondi/pkg/types"
)

type ClientUpdate struct {
	Type   wire.ClientUpdateType `json:"type"`
	Intent *engine.Intent        `json:"intent,omitempty"`
}

type ServerUpdate struct {
	Type            wire.ServerUpdateType `json:"type"`
	State           *engine.GameState     `json:"state,omitempty"`
	Players         []engine.Player       `json:"players,omitempty"`
	Votes           []engine.Vote         `json:"votes,omitempty"`
	Message         string                `json:"message,omitempty"`
	TimestampMillis int64                 `json:"timestamp_millis,omitempty"`
}

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrMissingIntent  = errors.New("PlayerIntentMsg without intent")
)

func DecodeClientUpdate(data []byte) (ClientUpdate, error) {
	var u ClientUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return ClientUpdate{}, fmt.Errorf("bad json: %w", err)
	}
	if !u.Type.Valid() {
		return ClientUpdate{}, fmt.Errorf("%w: %q", ErrUnknownMessage, u.Type)
	}
	if u.Type == wire.PlayerIntentMsg && u.Intent == nil {
		return ClientUpdate{}, ErrMissingIntent
	}
	return u, nil
}

func DecodeServerUpdate(data []byte) (ServerUpdate, error) {
	var u ServerUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return ServerUpdate{}, fmt.Errorf("bad json: %w", err)
	}
	if !u.Type.Valid() {
		return ServerUpdate{}, fmt.Errorf("%w: %q", ErrUnknownMessage, u.Type)
	}
	return u, nil
}

func IntentUpdate(in engine.Intent) ClientUpdate {
	return ClientUpdate{Type: wire.PlayerIntentMsg, Intent: &in}
}

func GetGameState() ClientUpdate { return ClientUpdate{Type: wire.GetGameState} }

func Ping() ClientUpdate { return ClientUpdate{Type: wire.Ping} }
