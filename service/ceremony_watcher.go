package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/tally-z-sandbox/ceremony"
	"github.com/vocdoni/tally-z-sandbox/log"
	"github.com/vocdoni/tally-z-sandbox/storage"
)

// CeremonyWatcher enforces the ceremony deadline policy: it periodically
// scans the stored ceremonies and aborts the ones that have been running
// longer than the configured deadline. The coordinator itself is
// deadline-free; this service is the only place where time limits live.
type CeremonyWatcher struct {
	storage     *storage.Storage
	coordinator *ceremony.Coordinator
	interval    time.Duration
	deadline    time.Duration
	mu          sync.Mutex
	cancel      context.CancelFunc
}

// NewCeremonyWatcher creates a new CeremonyWatcher scanning every interval
// and aborting ceremonies older than deadline.
func NewCeremonyWatcher(stg *storage.Storage, coordinator *ceremony.Coordinator,
	interval, deadline time.Duration) *CeremonyWatcher {
	return &CeremonyWatcher{
		storage:     stg,
		coordinator: coordinator,
		interval:    interval,
		deadline:    deadline,
	}
}

// Start begins the periodic scan. It returns an error if the service is
// already running.
func (cw *CeremonyWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	cw.cancel = cancel

	go cw.watch(ctx)
	return nil
}

// Stop halts the watcher.
func (cw *CeremonyWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.cancel != nil {
		cw.cancel()
		cw.cancel = nil
	}
}

func (cw *CeremonyWatcher) watch(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cw.scan()
		}
	}
}

// scan aborts every non-terminal ceremony that outlived the deadline.
func (cw *CeremonyWatcher) scan() {
	elections, err := cw.storage.ListCeremonies()
	if err != nil {
		log.Warnw("failed to list ceremonies", "error", err.Error())
		return
	}
	for _, electionID := range elections {
		cer, err := cw.storage.Ceremony(electionID)
		if err != nil {
			log.Warnw("failed to load ceremony", "electionId", electionID.String(), "error", err.Error())
			continue
		}
		if cer.Status.Terminal() || time.Since(cer.StartedAt) < cw.deadline {
			continue
		}
		log.Warnw("ceremony exceeded deadline", "electionId", electionID.String(),
			"instance", cer.InstanceID.String(), "status", cer.Status.String(),
			"startedAt", cer.StartedAt.String())
		if err := cw.coordinator.Abort(electionID, "deadline exceeded"); err != nil {
			// the ceremony may have finished between the load and the abort
			if errors.Is(err, ceremony.ErrCeremonyTerminal) {
				continue
			}
			log.Warnw("failed to abort overdue ceremony", "electionId", electionID.String(), "error", err.Error())
		}
	}
}
