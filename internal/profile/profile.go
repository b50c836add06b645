// Package profile supplies the local player's identity. Real devices sync it
// from an account service; the binaries here take it from configuration.
package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/DoyleJ11/gondi/internal/engine"
)

var ErrNoProfile = errors.New("no local profile")

type Profile struct {
	PlayerID   string
	Name       string
	Avatar     string
	Background string
}

func (p Profile) Engine() engine.Profile {
	return engine.Profile{Name: p.Name, Avatar: p.Avatar, Background: p.Background}
}

type Provider interface {
	Current(ctx context.Context) (Profile, error)
}

// Static always returns the same profile.
type Static Profile

// NewStatic fills in a random player id when id is empty.
func NewStatic(id, name, avatar, background string) Static {
	if id == "" {
		id = uuid.NewString()
	}
	return Static{PlayerID: id, Name: name, Avatar: avatar, Background: background}
}

func (s Static) Current(context.Context) (Profile, error) {
	if s.PlayerID == "" || s.Name == "" {
		return Profile{}, ErrNoProfile
	}
	return Profile(s), nil
}
