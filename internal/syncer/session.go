// Package syncer implements the client-side synchronization loop: the
// polling/deduplication cycle that reconciles the server's alert log with
// the set of alerts this client has already seen, and drives notification
// presentation for the delta. Push delivery handles backgrounded clients;
// this loop handles the foreground.
package syncer

import (
	"context"
	"log"
	"time"

	"alert-center-backend/internal/model"
	"alert-center-backend/internal/presenter"
)

// DefaultInterval is the delta-load cadence while the client is foregrounded.
const DefaultInterval = 3 * time.Second

// AlertSource fetches the alerts currently visible to the session's
// recipient. The recipient identity is carried by the source itself
// (its session token).
type AlertSource interface {
	Fetch(ctx context.Context) ([]model.Alert, error)
}

// Options configures a session.
type Options struct {
	// Interval between delta loads; DefaultInterval when zero.
	Interval time.Duration
	// Presenter receives each newly observed alert exactly once per session.
	Presenter presenter.Presenter
	// OnUpdate, if set, receives the full fetched list after every load,
	// replacing whatever was rendered before.
	OnUpdate func([]model.Alert)
	// WakeLock, if set, is held while the keep-awake preference is on.
	WakeLock WakeLock
	// KeepAwake reports the keep-awake preference; consulted on every
	// foreground transition.
	KeepAwake func() bool
}

// Session is the authenticated state of the sync loop. A session owns its
// seen-id set; the set starts from the initial load and is discarded on
// Stop, so a fresh login treats everything currently visible as already
// seen rather than replaying history.
//
// All mutable state is confined to the run goroutine. External inputs
// arrive over channels, matching the single-threaded cooperative model the
// presentation side assumes.
type Session struct {
	source    AlertSource
	presenter presenter.Presenter
	interval  time.Duration
	onUpdate  func([]model.Alert)
	wakeLock  WakeLock
	keepAwake func() bool

	seen map[string]struct{}

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// Start performs the initial load and, on success, begins the polling
// loop. The initial load is a baseline: it seeds the seen set and renders
// the list without presenting anything. A failed initial load fails the
// whole transition into the authenticated state, leaving nothing behind.
func Start(ctx context.Context, source AlertSource, opts Options) (*Session, error) {
	alerts, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		source:    source,
		presenter: opts.Presenter,
		interval:  interval,
		onUpdate:  opts.OnUpdate,
		wakeLock:  opts.WakeLock,
		keepAwake: opts.KeepAwake,
		seen:      idSet(alerts),
		wake:      make(chan struct{}, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.render(alerts)
	s.acquireWakeLock()

	go s.run(runCtx)
	return s, nil
}

// Foreground signals that the application returned to the foreground: it
// triggers an immediate delta load and reacquires the wake lock if the
// platform dropped it while hidden. Safe to call from any goroutine; a
// signal arriving while a load is in flight is coalesced, not queued.
func (s *Session) Foreground() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop tears the session down: the ticker and any pending wake signal are
// abandoned, the wake lock is released and the seen set is discarded.
// Stop blocks until the loop has exited, so no callback fires afterwards.
func (s *Session) Stop() {
	s.cancel()
	<-s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.releaseWakeLock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deltaLoad(ctx)
			// A tick that fired while the load was in flight is dropped,
			// not queued; overlapping loads must never run.
			select {
			case <-ticker.C:
			default:
			}
		case <-s.wake:
			s.acquireWakeLock()
			s.deltaLoad(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// deltaLoad fetches the visible alert set, presents everything not yet
// seen and then replaces the seen set with the fetched identifiers.
// Replacement rather than union keeps the set honest when the server side
// shrinks (retention trimming): ids that disappeared are dropped so a
// genuinely new alert is still detected afterwards.
func (s *Session) deltaLoad(ctx context.Context) {
	fetched, err := s.source.Fetch(ctx)
	if err != nil {
		// Transient by taxonomy: log and wait for the next tick.
		log.Printf("Delta load error: %v", err)
		return
	}

	for _, a := range fetched {
		if _, ok := s.seen[a.ID]; !ok && s.presenter != nil {
			s.presenter.Present(a)
		}
	}

	s.seen = idSet(fetched)
	s.render(fetched)
}

func (s *Session) render(alerts []model.Alert) {
	if s.onUpdate != nil {
		s.onUpdate(alerts)
	}
}

func (s *Session) acquireWakeLock() {
	if s.wakeLock == nil || s.keepAwake == nil || !s.keepAwake() {
		return
	}
	if err := s.wakeLock.Acquire(); err != nil {
		// The platform is allowed to refuse; the loop keeps running.
		log.Printf("Wake lock error: %v", err)
	}
}

func (s *Session) releaseWakeLock() {
	if s.wakeLock == nil {
		return
	}
	if err := s.wakeLock.Release(); err != nil {
		log.Printf("Wake lock release error: %v", err)
	}
}

func idSet(alerts []model.Alert) map[string]struct{} {
	ids := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		ids[a.ID] = struct{}{}
	}
	return ids
}
