/*
scheduler.go - Background execution of pending scenario runs

PURPOSE:
  Periodically picks up pending scenario runs and executes them, so
  clients can POST a run and poll its status instead of holding a
  connection open through a long calculation.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Processes pending runs oldest-first, one at a time
  - Failures are recorded on the run row, never crash the loop

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 seconds)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRunScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - scenarios.go: runScenario, the shared execution path
  - handlers.go: ExecuteRun endpoint (synchronous execution)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/tax-engine/store/sqlite"
)

// RunScheduler executes pending scenario runs in the background.
type RunScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRunScheduler creates a new scheduler.
func NewRunScheduler(store *sqlite.Store, handler *Handler) *RunScheduler {
	return &RunScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 5 * time.Second,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RunScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RunScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RunScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.processPending()

	for {
		select {
		case <-rs.ticker.C:
			rs.processPending()
		case <-rs.stop:
			return
		}
	}
}

// processPending executes every pending run, oldest first.
func (rs *RunScheduler) processPending() {
	ctx := context.Background()

	pending, err := rs.Store.ListRuns(ctx, sqlite.RunPending)
	if err != nil {
		log.Printf("[Scheduler] Failed to list pending runs: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	// ListRuns is newest-first; execute in submission order
	for i := len(pending) - 1; i >= 0; i-- {
		run := pending[i]
		log.Printf("[Scheduler] Executing run %s (%d-%d)", run.ID, run.StartYear, run.EndYear)
		if err := rs.Handler.runScenario(ctx, run); err != nil {
			log.Printf("[Scheduler] Run %s could not be recorded: %v", run.ID, err)
		}
	}
}
