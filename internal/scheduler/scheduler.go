package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"auction-engine/internal/auctionerrors"
	model "auction-engine/internal/models"
	"auction-engine/utils"
)

// Driver is the transition surface the scheduler fires against. Both calls
// are guarded and idempotent, so redundant firing is harmless.
type Driver interface {
	Activate(auctionID string, now time.Time) error
	Close(auctionID string, now time.Time) error
}

// deadline is one pending time-driven transition.
type deadline struct {
	auctionID string
	kind      model.TransitionKind
	at        time.Time
}

// deadlineHeap orders deadlines by firing time, earliest first.
type deadlineHeap []deadline

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)        { *h = append(*h, x.(deadline)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	*h = old[:n-1]
	return d
}

// Scheduler fires auction start/end transitions from a min-heap of deadlines.
// One timer is armed for the nearest deadline; registering an earlier one
// wakes the loop to re-arm. Firing late only delays user-visible timing, the
// transitions themselves stay guarded by the state machine.
type Scheduler struct {
	mu    sync.Mutex
	heap  deadlineHeap
	wake  chan struct{}
	slack time.Duration
}

// New creates a scheduler. slack bounds how long the loop may idle past a due
// deadline before re-checking.
func New(slack time.Duration) *Scheduler {
	s := &Scheduler{
		wake:  make(chan struct{}, 1),
		slack: slack,
	}
	heap.Init(&s.heap)
	return s
}

// Schedule registers a transition to fire at the given time. Safe to call
// from any goroutine, before or after Run has started.
func (s *Scheduler) Schedule(auctionID string, kind model.TransitionKind, at time.Time) {
	s.mu.Lock()
	heap.Push(&s.heap, deadline{auctionID: auctionID, kind: kind, at: at})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default: // loop already has a pending wakeup
	}
}

// Run fires due deadlines against the driver until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, driver Driver) {
	utils.Info("scheduler started", map[string]any{"slack": s.slack.String()})

	timer := time.NewTimer(s.slack)
	defer timer.Stop()

	for {
		s.fireDue(driver)

		wait := s.nextWait()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			utils.Info("scheduler stopped", nil)
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// nextWait returns how long to sleep before the earliest deadline, capped at
// the configured slack so a misbehaving clock cannot park the loop forever.
func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.heap) == 0 {
		return s.slack
	}
	wait := time.Until(s.heap[0].at)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	if wait > s.slack {
		wait = s.slack
	}
	return wait
}

// fireDue pops and fires every deadline that has come due.
func (s *Scheduler) fireDue(driver Driver) {
	now := time.Now().UTC()
	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].at.After(now) {
			s.mu.Unlock()
			return
		}
		d := heap.Pop(&s.heap).(deadline)
		s.mu.Unlock()

		s.fire(driver, d, now)
	}
}

func (s *Scheduler) fire(driver Driver, d deadline, now time.Time) {
	var err error
	switch d.kind {
	case model.TransitionActivate:
		err = driver.Activate(d.auctionID, now)
	case model.TransitionClose:
		err = driver.Close(d.auctionID, now)
	}

	if err != nil {
		// Guarded transitions reject deadlines that no longer apply
		// (cancelled auction, duplicate firing); that is expected.
		if errors.Is(err, auctionerrors.ErrInvalidTransition) {
			return
		}
		utils.Error("scheduled transition failed", map[string]any{
			"auction_id": d.auctionID,
			"kind":       string(d.kind),
			"error":      err.Error(),
		})
		return
	}

	utils.Info("scheduled transition fired", map[string]any{
		"auction_id": d.auctionID,
		"kind":       string(d.kind),
		"due_at":     d.at,
	})
}
