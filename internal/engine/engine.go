package engine

import (
	"errors"
	"time"

	"github.com/sitemat/sitematgo/internal/database"
	"gorm.io/gorm"
)

// Engine is the inventory projection and alerting core. It holds the
// injected database handle and clock; every public entry point is a
// method on it, so parallel test instances with frozen time are cheap.
type Engine struct {
	db  *database.DB
	now func() time.Time
}

// New creates an Engine over the given database using wall-clock time.
func New(db *database.DB) *Engine {
	return &Engine{db: db, now: time.Now}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now returns the engine's current time. Callers that must stamp rows
// consistently with the engine's alert arithmetic go through this
// instead of the wall clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Today truncates the engine clock to a date, the resolution all
// day-count arithmetic works at.
func (e *Engine) Today() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// notFound maps gorm's sentinel to the engine taxonomy.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
