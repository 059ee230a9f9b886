package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"alert-center-backend/internal/dispatch"
	"alert-center-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, d *dispatch.Dispatcher, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:      s,
		dispatcher: d,
		webpush:    webpushOptions,
	}
}
