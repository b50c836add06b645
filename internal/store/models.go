package store

import (
	"time"

	"gorm.io/datatypes"

	"github.com/DoyleJ11/gondi/internal/engine"
)

type gameStateRow struct {
	ID                string                       `gorm:"primaryKey;size:64"`
	Phase             string                       `gorm:"size:16;not null"`
	Round             int                          `gorm:"not null"`
	PendingKills      datatypes.JSONType[[]string] `gorm:"not null"`
	LastSavedPlayerID string                       `gorm:"size:64"`
	AccusedPlayerID   string                       `gorm:"size:64"`
	Reveal            bool                         `gorm:"not null"`
	Winner            string                       `gorm:"size:16"`
	UpdatedAt         time.Time
}

func (gameStateRow) TableName() string { return "game_states" }

type playerRow struct {
	SessionID       string                                     `gorm:"primaryKey;size:64"`
	ID              string                                     `gorm:"primaryKey;size:64"`
	Seq             int                                        `gorm:"not null"` // join order
	Name            string                                     `gorm:"size:64;not null"`
	Role            string                                     `gorm:"size:16"`
	Avatar          string                                     `gorm:"size:128"`
	Background      string                                     `gorm:"size:128"`
	Alive           bool                                       `gorm:"not null"`
	LastAction      string                                     `gorm:"size:16"`
	LastTarget      string                                     `gorm:"size:64"`
	KnownIdentities datatypes.JSONType[map[string]engine.Role] `gorm:"not null"`
}

func (playerRow) TableName() string { return "players" }

type voteRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:64;index;not null"`
	VoterID   string `gorm:"size:64;not null"`
	TargetID  string `gorm:"size:64;not null"`
	Guilty    bool   `gorm:"not null"`
	Round     int    `gorm:"not null"`
}

func (voteRow) TableName() string { return "votes" }

func stateRow(s engine.GameState) gameStateRow {
	kills := s.PendingKills
	if kills == nil {
		kills = []string{}
	}
	return gameStateRow{
		ID:                s.ID,
		Phase:             string(s.Phase),
		Round:             s.Round,
		PendingKills:      datatypes.NewJSONType(kills),
		LastSavedPlayerID: s.LastSavedPlayerID,
		AccusedPlayerID:   s.AccusedPlayerID,
		Reveal:            s.Reveal,
		Winner:            string(s.Winner),
	}
}

func (r gameStateRow) toEngine() engine.GameState {
	kills := r.PendingKills.Data()
	if kills == nil {
		kills = []string{}
	}
	return engine.GameState{
		ID:                r.ID,
		Phase:             engine.Phase(r.Phase),
		Round:             r.Round,
		PendingKills:      kills,
		LastSavedPlayerID: r.LastSavedPlayerID,
		AccusedPlayerID:   r.AccusedPlayerID,
		Reveal:            r.Reveal,
		Winner:            engine.Faction(r.Winner),
	}
}

func playerRows(sessionID string, players []engine.Player) []playerRow {
	rows := make([]playerRow, len(players))
	for i, p := range players {
		known := p.KnownIdentities
		if known == nil {
			known = map[string]engine.Role{}
		}
		rows[i] = playerRow{
			SessionID:       sessionID,
			ID:              p.ID,
			Seq:             i,
			Name:            p.Name,
			Role:            string(p.Role),
			Avatar:          p.Avatar,
			Background:      p.Background,
			Alive:           p.Alive,
			LastAction:      string(p.LastAction),
			LastTarget:      p.LastTarget,
			KnownIdentities: datatypes.NewJSONType(known),
		}
	}
	return rows
}

func (r playerRow) toEngine() engine.Player {
	known := r.KnownIdentities.Data()
	if known == nil {
		known = map[string]engine.Role{}
	}
	return engine.Player{
		ID:              r.ID,
		Name:            r.Name,
		Role:            engine.Role(r.Role),
		Avatar:          r.Avatar,
		Background:      r.Background,
		Alive:           r.Alive,
		LastAction:      engine.IntentType(r.LastAction),
		LastTarget:      r.LastTarget,
		KnownIdentities: known,
	}
}

func voteRows(sessionID string, votes []engine.Vote) []voteRow {
	rows := make([]voteRow, len(votes))
	for i, v := range votes {
		rows[i] = voteRow{
			SessionID: sessionID,
			VoterID:   v.VoterID,
			TargetID:  v.TargetID,
			Guilty:    v.Guilty,
			Round:     v.Round,
		}
	}
	return rows
}

func (r voteRow) toEngine() engine.Vote {
	return engine.Vote{VoterID: r.VoterID, TargetID: r.TargetID, Guilty: r.Guilty, Round: r.Round}
}
