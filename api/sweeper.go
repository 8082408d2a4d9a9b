/*
sweeper.go - Periodic conflict scan over published plannings

PURPOSE:
  Published rosters drift: a collaborateur goes absent, an unavailability
  gets approved after publication, a replacement creates an overload. The
  sweeper periodically re-runs conflict detection over published plannings
  and logs what it finds, so operators see degradation without waiting
  for someone to open the roster.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Scans only published plannings; drafts are validated on demand
  - Detection only, never mutation: fixing a published roster is a
    human decision through the replacement operation

USAGE:
  sweeper := NewConflictSweeper(store, detector, log)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - astreinte/conflict.go: the detector this drives
  - handlers.go: GetConflicts endpoint (on-demand detection)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
)

// ConflictSweeper periodically re-validates published plannings.
type ConflictSweeper struct {
	Plannings     astreinte.PlanningStore
	Detector      *astreinte.Detector
	Log           *logrus.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewConflictSweeper creates a new sweeper.
func NewConflictSweeper(plannings astreinte.PlanningStore, detector *astreinte.Detector, log *logrus.Logger) *ConflictSweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConflictSweeper{
		Plannings:     plannings,
		Detector:      detector,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (cs *ConflictSweeper) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Log.Info("sweeper disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	cs.Log.WithField("interval", cs.CheckInterval.String()).Info("sweeper started")
}

// Stop stops the sweeper.
func (cs *ConflictSweeper) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.Log.Info("sweeper stopped")
	}
}

func (cs *ConflictSweeper) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.sweep()

	for {
		select {
		case <-cs.ticker.C:
			cs.sweep()
		case <-cs.stop:
			return
		}
	}
}

func (cs *ConflictSweeper) sweep() {
	ctx := context.Background()

	status := astreinte.PlanningPublie
	plannings, err := cs.Plannings.ListPlannings(ctx, astreinte.PlanningFilter{Status: &status})
	if err != nil {
		cs.Log.WithError(err).Error("sweeper failed to list published plannings")
		return
	}

	scanned, flagged := 0, 0
	for _, p := range plannings {
		conflicts, err := cs.Detector.DetectConflicts(ctx, p)
		if err != nil {
			cs.Log.WithError(err).WithField("planning", p.ID).Error("sweeper detection failed")
			continue
		}
		scanned++
		if len(conflicts) == 0 {
			continue
		}
		flagged++

		worst := conflicts[0].Severity
		for _, c := range conflicts[1:] {
			if astreinte.SeverityAbove(c.Severity, worst) {
				worst = c.Severity
			}
		}
		cs.Log.WithFields(logrus.Fields{
			"planning":  p.ID,
			"scope":     p.Scope.String(),
			"conflicts": len(conflicts),
			"worst":     string(worst),
		}).Warn("published planning has conflicts")
	}

	if scanned > 0 {
		cs.Log.WithFields(logrus.Fields{
			"scanned": scanned,
			"flagged": flagged,
		}).Info("sweep completed")
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (cs *ConflictSweeper) RunNow() {
	cs.sweep()
}
