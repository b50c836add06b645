package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/gondi/internal/engine"
)

// Gorm keeps sessions in a relational database, one row per game state,
// player and vote.
type Gorm struct {
	db    *gorm.DB
	mu    sync.Mutex // serializes Update within this process
	notes *notifier
}

var _ engine.Store = (*Gorm)(nil)

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string) (*Gorm, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGorm(db)
}

func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&gameStateRow{}, &playerRow{}, &voteRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db, notes: newNotifier()}, nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *Gorm) State(ctx context.Context, sessionID string) (engine.GameState, error) {
	row, err := loadState(g.db.WithContext(ctx), sessionID)
	if err != nil {
		return engine.GameState{}, err
	}
	return row.toEngine(), nil
}

func (g *Gorm) Players(ctx context.Context, sessionID string) ([]engine.Player, error) {
	tx := g.db.WithContext(ctx)
	if _, err := loadState(tx, sessionID); err != nil {
		return nil, err
	}
	return loadPlayers(tx, sessionID)
}

func (g *Gorm) Votes(ctx context.Context, sessionID string) ([]engine.Vote, error) {
	tx := g.db.WithContext(ctx)
	if _, err := loadState(tx, sessionID); err != nil {
		return nil, err
	}
	return loadVotes(tx, sessionID)
}

func (g *Gorm) Create(ctx context.Context, t engine.Table) error {
	g.mu.Lock()
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSession(tx, t.State.ID); err != nil {
			return err
		}
		row := stateRow(t.State)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return writeRows(tx, t)
	})
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("create session %s: %w", t.State.ID, err)
	}

	g.notes.notify(t.State.ID)
	return nil
}

// Update rewrites the session's players and votes in one transaction. Tables
// are a handful of rows, so a full rewrite is simpler than diffing.
func (g *Gorm) Update(ctx context.Context, sessionID string, fn func(*engine.Table) error) error {
	g.mu.Lock()
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTable(tx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		t.State.ID = sessionID
		row := stateRow(t.State)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&playerRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&voteRow{}).Error; err != nil {
			return err
		}
		return writeRows(tx, t)
	})
	g.mu.Unlock()
	if err != nil {
		return err
	}

	g.notes.notify(sessionID)
	return nil
}

func (g *Gorm) Reset(ctx context.Context, sessionID string) error {
	var existed bool
	g.mu.Lock()
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", sessionID).Delete(&gameStateRow{})
		if res.Error != nil {
			return res.Error
		}
		existed = res.RowsAffected > 0
		return deleteSession(tx, sessionID)
	})
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}

	if existed {
		g.notes.notify(sessionID)
	}
	return nil
}

func (g *Gorm) Watch(ctx context.Context, sessionID string) <-chan struct{} {
	return g.notes.watch(ctx, sessionID)
}

func loadState(tx *gorm.DB, sessionID string) (gameStateRow, error) {
	var row gameStateRow
	err := tx.Where("id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s", engine.ErrNoSession, sessionID)
	}
	return row, err
}

func loadPlayers(tx *gorm.DB, sessionID string) ([]engine.Player, error) {
	var rows []playerRow
	if err := tx.Where("session_id = ?", sessionID).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	players := make([]engine.Player, len(rows))
	for i, r := range rows {
		players[i] = r.toEngine()
	}
	return players, nil
}

func loadVotes(tx *gorm.DB, sessionID string) ([]engine.Vote, error) {
	var rows []voteRow
	if err := tx.Where("session_id = ?", sessionID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	votes := make([]engine.Vote, len(rows))
	for i, r := range rows {
		votes[i] = r.toEngine()
	}
	return votes, nil
}

func loadTable(tx *gorm.DB, sessionID string) (engine.Table, error) {
	row, err := loadState(tx, sessionID)
	if err != nil {
		return engine.Table{}, err
	}
	players, err := loadPlayers(tx, sessionID)
	if err != nil {
		return engine.Table{}, err
	}
	votes, err := loadVotes(tx, sessionID)
	if err != nil {
		return engine.Table{}, err
	}
	return engine.Table{State: row.toEngine(), Players: players, Votes: votes}, nil
}

func writeRows(tx *gorm.DB, t engine.Table) error {
	if players := playerRows(t.State.ID, t.Players); len(players) > 0 {
		if err := tx.Create(&players).Error; err != nil {
			return err
		}
	}
	if votes := voteRows(t.State.ID, t.Votes); len(votes) > 0 {
		if err := tx.Create(&votes).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteSession(tx *gorm.DB, sessionID string) error {
	if err := tx.Where("id = ?", sessionID).Delete(&gameStateRow{}).Error; err != nil {
		return err
	}
	if err := tx.Where("session_id = ?", sessionID).Delete(&playerRow{}).Error; err != nil {
		return err
	}
	return tx.Where("session_id = ?", sessionID).Delete(&voteRow{}).Error
}
