package syncer

// WakeLock keeps the device screen on while held. Implementations wrap the
// host platform's mechanism; the platform may refuse an Acquire at any
// time and may silently drop the lock while the app is hidden, which is
// why the session reacquires on every foreground transition.
type WakeLock interface {
	Acquire() error
	Release() error
}

// NoopWakeLock is the WakeLock for hosts without one. Acquire and Release
// always succeed.
type NoopWakeLock struct{}

func (NoopWakeLock) Acquire() error { return nil }
func (NoopWakeLock) Release() error { return nil }
