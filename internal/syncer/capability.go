package syncer

import "strings"

// Permission is the host's notification-permission state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// CapabilityReport is the typed result of probing the host platform for
// push readiness. A short report is guidance, not an error: the client
// keeps operating in poll-only mode regardless.
type CapabilityReport struct {
	NotificationsSupported bool       `json:"notifications_supported"`
	NotificationPermission Permission `json:"notification_permission"`
	PushSupported          bool       `json:"push_supported"`
	Standalone             bool       `json:"standalone"`
	ServiceWorkerReady     bool       `json:"service_worker_ready"`
	HasPushSubscription    bool       `json:"has_push_subscription"`
	UserAgent              string     `json:"user_agent"`
}

// PushReady reports whether background push delivery can work at all.
func (r CapabilityReport) PushReady() bool {
	return r.NotificationsSupported &&
		r.NotificationPermission == PermissionGranted &&
		r.PushSupported &&
		r.Standalone &&
		r.ServiceWorkerReady
}

// Guidance returns user-facing instructions for whatever is blocking
// background push, one line per missing capability. Empty when push-ready.
func (r CapabilityReport) Guidance() string {
	var lines []string
	if !r.NotificationsSupported {
		lines = append(lines, "Notifications are not supported on this device; alerts arrive only while the app is open.")
	} else if r.NotificationPermission != PermissionGranted {
		lines = append(lines, "Notification permission is not granted. Enable notifications in your device settings.")
	}
	if !r.Standalone {
		lines = append(lines, "Install the app to your home screen to receive background notifications.")
	}
	if !r.PushSupported {
		lines = append(lines, "Push delivery is not supported on this device; alerts arrive only while the app is open.")
	} else if !r.ServiceWorkerReady {
		lines = append(lines, "The background handler is not ready yet; try reopening the app.")
	}
	return strings.Join(lines, "\n")
}
