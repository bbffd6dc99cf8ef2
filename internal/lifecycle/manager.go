// Package lifecycle applies the billing engine to persisted leases. Every
// operation runs as one SQLite transaction, holding the affected room's lock
// where it reads and writes room state, and records a domain event after
// commit.
package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/event"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/policy"
	"github.com/matthewbaird/propmanage/internal/store"
	"github.com/matthewbaird/propmanage/internal/types"
)

// Options configures a Manager. Zero fields take defaults.
type Options struct {
	Rates    billing.Rates
	Schedule billing.ScheduleOptions
	Deposit  policy.DepositLimit
	Recorder event.Recorder
	// Now is the clock used for due dates and effective status.
	Now func() time.Time
}

// Manager owns lease creation, payment, metering and the cascades that
// remove leases, rooms and buildings.
type Manager struct {
	store    *store.Store
	rates    billing.Rates
	schedule billing.ScheduleOptions
	deposit  policy.DepositLimit
	recorder event.Recorder
	now      func() time.Time
	rooms    keyedMutex
	log      *logrus.Logger
}

// New creates a Manager over s.
func New(s *store.Store, opts Options) *Manager {
	if opts.Rates == (billing.Rates{}) {
		opts.Rates = billing.DefaultRates()
	}
	if opts.Recorder == nil {
		opts.Recorder = event.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:    s,
		rates:    opts.Rates,
		schedule: opts.Schedule,
		deposit:  opts.Deposit,
		recorder: opts.Recorder,
		now:      opts.Now,
		rooms:    newKeyedMutex(),
		log:      logging.Logger,
	}
}

// Today returns the manager's current date.
func (m *Manager) Today() types.Date {
	return types.DateOf(m.now())
}

// Rates returns the unit prices applied to meter readings.
func (m *Manager) Rates() billing.Rates { return m.rates }

// recordEvent stamps a domain event with the manager's clock and records
// it. Errors are logged but do not fail the operation, which has already
// committed.
func (m *Manager) recordEvent(ctx context.Context, evt event.DomainEvent) {
	evt.OccurredAt = m.now()
	if err := m.recorder.Record(ctx, evt); err != nil {
		m.log.WithFields(logrus.Fields{
			"event_type": evt.EventType,
			"event_id":   evt.ID,
		}).WithError(err).Error("event recording failed")
	}
}
