// Package presenter raises user-visible signals for newly observed alerts:
// an audible chime and a system-level notification. Presentation is
// best-effort by contract; nothing in this package returns an error to the
// sync loop.
package presenter

import (
	"log"

	"alert-center-backend/internal/model"
)

// defaultVibration is the attention pattern attached to every alert
// notification, alternating buzz and pause in milliseconds.
var defaultVibration = []int{500, 200, 500, 200, 500, 200, 500, 200, 500}

// Notification is what gets raised on the host system for one alert.
// The tag lets the platform's notification center coalesce repeats of the
// same alert, which is how a push-delivered and a poll-delivered copy of
// one alert collapse into a single entry.
type Notification struct {
	Tag                string
	Title              string
	Body               string
	Link               string
	RequireInteraction bool
	Vibration          []int
}

// Chime plays the audible cue. Implementations wrap whatever audio output
// the host platform offers.
type Chime interface {
	Play() error
}

// Notifier raises a system-level notification.
type Notifier interface {
	Notify(n Notification) error
}

// Presenter is what the sync loop drives for each newly observed alert.
type Presenter interface {
	Present(alert model.Alert)
}

// AlertPresenter plays a chime and raises a system notification for each
// alert. The chime backend is created lazily on first use and shared for
// the life of the presenter; all access happens on the sync loop's
// goroutine, so no locking is involved.
type AlertPresenter struct {
	notifier     Notifier
	newChime     func() (Chime, error)
	chime        Chime
	soundEnabled func() bool
}

// New creates a presenter. newChime is invoked at most once, on the first
// presentation with sound enabled; soundEnabled is consulted on every
// presentation so the preference toggle takes effect immediately.
func New(notifier Notifier, newChime func() (Chime, error), soundEnabled func() bool) *AlertPresenter {
	return &AlertPresenter{
		notifier:     notifier,
		newChime:     newChime,
		soundEnabled: soundEnabled,
	}
}

// Present performs the audible cue and the system notification
// independently. Failures are logged and swallowed: a missing audio device
// must not cost the user the notification, and vice versa.
func (p *AlertPresenter) Present(alert model.Alert) {
	if p.soundEnabled == nil || p.soundEnabled() {
		p.playChime()
	}

	n := Notification{
		Tag:                alert.ID,
		Title:              alert.Title,
		Body:               alert.Body,
		Link:               alert.Link,
		RequireInteraction: true,
		Vibration:          defaultVibration,
	}
	if err := p.notifier.Notify(n); err != nil {
		log.Printf("Notification error for alert %s: %v", alert.ID, err)
	}
}

func (p *AlertPresenter) playChime() {
	if p.chime == nil {
		if p.newChime == nil {
			return
		}
		c, err := p.newChime()
		if err != nil {
			log.Printf("Audio init error: %v", err)
			return
		}
		p.chime = c
	}
	if err := p.chime.Play(); err != nil {
		log.Printf("Audio error: %v", err)
	}
}

// LogNotifier is the fallback Notifier for hosts without a system
// notification surface; it keeps the client observable in poll-only mode.
type LogNotifier struct{}

// Notify writes the notification to the process log.
func (LogNotifier) Notify(n Notification) error {
	log.Printf("ALERT [%s] %s: %s", n.Tag, n.Title, n.Body)
	return nil
}
