package store

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/gondi/internal/engine"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// New opens the store named by driver. The returned close func releases the
// underlying database, if any.
func New(driver, dsn string) (engine.Store, func() error, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), func() error { return nil }, nil
	case DriverSQLite, DriverPostgres:
		g, err := Open(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
