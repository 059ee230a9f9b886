package syncer

import (
	"encoding/json"
	"log"

	"alert-center-backend/internal/dispatch"
	"alert-center-backend/internal/model"
	"alert-center-backend/internal/presenter"
)

// PushHandler is the background delivery path: it receives raw push
// payloads while the sync loop is not running (app backgrounded) and
// raises a system notification for each, immediately and unconditionally.
// Deduplication against the poll path happens at the notification-center
// level via the shared tag.
type PushHandler struct {
	presenter presenter.Presenter
}

// NewPushHandler creates a handler that presents through p.
func NewPushHandler(p presenter.Presenter) *PushHandler {
	return &PushHandler{presenter: p}
}

// Handle decodes one push payload and presents it. Malformed payloads are
// presented with placeholder fields rather than dropped; losing an alert
// is worse than showing a generic one.
func (h *PushHandler) Handle(data []byte) {
	var p dispatch.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("Push payload decode error: %v", err)
		p = dispatch.Payload{}
	}

	if p.Title == "" {
		p.Title = "Alert"
	}
	if p.Body == "" {
		p.Body = "New alert"
	}
	if p.URL == "" {
		p.URL = "/"
	}

	h.presenter.Present(model.Alert{
		ID:    p.Tag,
		Title: p.Title,
		Body:  p.Body,
		Link:  p.URL,
	})
}
