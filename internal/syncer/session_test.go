package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-center-backend/internal/model"
)

// fakeSource serves a mutable alert set and signals every fetch.
type fakeSource struct {
	mu      sync.Mutex
	alerts  []model.Alert
	err     error
	fetches int
}

func (f *fakeSource) Fetch(ctx context.Context) ([]model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Alert, len(f.alerts))
	copy(out, f.alerts)
	return out, nil
}

func (f *fakeSource) set(alerts ...model.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = alerts
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// recordingPresenter counts presentations per alert id.
type recordingPresenter struct {
	mu    sync.Mutex
	seen  map[string]int
	total int
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{seen: make(map[string]int)}
}

func (p *recordingPresenter) Present(a model.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[a.ID]++
	p.total++
}

func (p *recordingPresenter) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[id]
}

func (p *recordingPresenter) presented() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func alert(id string) model.Alert {
	return model.Alert{ID: id, Title: "Alert " + id, Body: "body"}
}

func startSession(t *testing.T, src *fakeSource, p *recordingPresenter, opts Options) *Session {
	t.Helper()
	opts.Presenter = p
	s, err := Start(context.Background(), src, opts)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestStart_InitialLoadIsBaselineNotDelta(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"), alert("a2"))
	p := newRecordingPresenter()

	var rendered []model.Alert
	var mu sync.Mutex
	startSession(t, src, p, Options{
		Interval: time.Hour, // no ticks during the test
		OnUpdate: func(alerts []model.Alert) {
			mu.Lock()
			defer mu.Unlock()
			rendered = alerts
		},
	})

	// Everything visible at login is already seen; nothing is presented.
	assert.Equal(t, 0, p.presented())
	mu.Lock()
	assert.Len(t, rendered, 2)
	mu.Unlock()
}

func TestStart_FailedInitialLoadFailsLogin(t *testing.T) {
	src := &fakeSource{}
	src.setErr(fmt.Errorf("server unreachable"))

	_, err := Start(context.Background(), src, Options{})
	require.Error(t, err)
}

func TestSession_PresentsNewAlertExactlyOnce(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()

	startSession(t, src, p, Options{Interval: 10 * time.Millisecond})

	src.set(alert("a1"), alert("a2"))

	assert.Eventually(t, func() bool {
		return p.count("a2") == 1
	}, time.Second, 5*time.Millisecond)

	// Several more polls returning the same set must not re-present.
	fetchesNow := src.fetchCount()
	assert.Eventually(t, func() bool {
		return src.fetchCount() >= fetchesNow+3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, p.count("a2"))
	assert.Equal(t, 0, p.count("a1"))
}

func TestSession_SeenSetShrinksWithServer(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()

	startSession(t, src, p, Options{Interval: 10 * time.Millisecond})

	// Retention trimming removes a1; the seen set must follow.
	src.set()
	fetchesNow := src.fetchCount()
	assert.Eventually(t, func() bool {
		return src.fetchCount() > fetchesNow
	}, time.Second, 5*time.Millisecond)

	// A genuinely new alert is still detected after the shrink.
	src.set(alert("a2"))
	assert.Eventually(t, func() bool {
		return p.count("a2") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, p.count("a1"))
}

func TestSession_RecoversFromTransientFetchErrors(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()

	startSession(t, src, p, Options{Interval: 10 * time.Millisecond})

	src.setErr(fmt.Errorf("network blip"))
	fetchesNow := src.fetchCount()
	assert.Eventually(t, func() bool {
		return src.fetchCount() >= fetchesNow+2
	}, time.Second, 5*time.Millisecond)

	src.setErr(nil)
	src.set(alert("a1"), alert("a2"))
	assert.Eventually(t, func() bool {
		return p.count("a2") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_ForegroundTriggersImmediateLoad(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()

	s := startSession(t, src, p, Options{Interval: time.Hour})

	src.set(alert("a1"), alert("a2"))
	s.Foreground()

	assert.Eventually(t, func() bool {
		return p.count("a2") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_StopTearsDownLoop(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()

	s, err := Start(context.Background(), src, Options{
		Interval:  10 * time.Millisecond,
		Presenter: p,
	})
	require.NoError(t, err)

	s.Stop()
	fetchesAtStop := src.fetchCount()

	src.set(alert("a1"), alert("a2"))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, fetchesAtStop, src.fetchCount(), "no loads after Stop")
	assert.Equal(t, 0, p.count("a2"))

	// Signals after teardown must be harmless.
	s.Foreground()
}

type fakeWakeLock struct {
	mu       sync.Mutex
	acquires int
	releases int
	fail     bool
}

func (w *fakeWakeLock) Acquire() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return fmt.Errorf("wake lock denied")
	}
	w.acquires++
	return nil
}

func (w *fakeWakeLock) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releases++
	return nil
}

func (w *fakeWakeLock) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.acquires, w.releases
}

func TestSession_WakeLockLifecycle(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	lock := &fakeWakeLock{}

	s, err := Start(context.Background(), src, Options{
		Interval:  time.Hour,
		WakeLock:  lock,
		KeepAwake: func() bool { return true },
	})
	require.NoError(t, err)

	acquires, _ := lock.counts()
	assert.Equal(t, 1, acquires, "acquired on session start")

	// Returning to the foreground reacquires: the platform may have
	// dropped the lock while hidden.
	s.Foreground()
	assert.Eventually(t, func() bool {
		a, _ := lock.counts()
		return a == 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	_, releases := lock.counts()
	assert.Equal(t, 1, releases, "released on teardown")
}

func TestSession_WakeLockDenialIsNonFatal(t *testing.T) {
	src := &fakeSource{}
	src.set(alert("a1"))
	p := newRecordingPresenter()
	lock := &fakeWakeLock{fail: true}

	s := startSession(t, src, p, Options{
		Interval:  10 * time.Millisecond,
		WakeLock:  lock,
		KeepAwake: func() bool { return true },
	})
	_ = s

	// The loop keeps polling despite the denied lock.
	src.set(alert("a1"), alert("a2"))
	assert.Eventually(t, func() bool {
		return p.count("a2") == 1
	}, time.Second, 5*time.Millisecond)
}
