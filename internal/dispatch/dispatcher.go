package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"alert-center-backend/internal/model"
	"alert-center-backend/internal/store"
)

// PushSender defines the interface for sending a single web push message.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation of PushSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to each endpoint. The background push
// handler on the client decodes exactly these fields.
type Payload struct {
	Tag   string `json:"tag"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// SendFailure records one endpoint that could not be delivered to.
type SendFailure struct {
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason"`
}

// Report aggregates the outcome of fanning one alert out. Partial failure
// is the normal case: callers surface the counts and move on.
type Report struct {
	RecipientsTargeted     int           `json:"recipients_targeted"`
	SubscriptionsAttempted int           `json:"subscriptions_attempted"`
	Succeeded              int           `json:"succeeded"`
	Failed                 int           `json:"failed"`
	Failures               []SendFailure `json:"failures,omitempty"`
}

type sendResult struct {
	endpoint string
	reason   string // empty on success
}

type job struct {
	sub     model.PushSubscription
	payload []byte
	results chan<- sendResult
}

// Dispatcher fans alerts out to registered push endpoints through a fixed
// pool of send workers. Each send is an independent unit of work; one
// failed endpoint never blocks the others.
type Dispatcher struct {
	size    int
	jobs    chan job
	store   store.Store
	webpush *webpush.Options
	sender  PushSender
}

// NewDispatcher creates a new dispatcher with the given worker pool size.
func NewDispatcher(size int, s store.Store, webpushOptions *webpush.Options) *Dispatcher {
	return &Dispatcher{
		size:    size,
		jobs:    make(chan job, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender replaces the push sender. Used by tests.
func (d *Dispatcher) SetSender(sender PushSender) {
	d.sender = sender
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	for {
		select {
		case j := <-d.jobs:
			j.results <- d.send(ctx, j.sub, j.payload)
		case <-ctx.Done():
			log.Printf("dispatch worker %d shutting down", id)
			return
		}
	}
}

// Dispatch resolves the alert's recipient set, fans the payload out to every
// registered subscription and returns the aggregate report. The alert itself
// is already persisted; dispatch has no side effect on the alert log and may
// be retried (clients deduplicate by alert id).
func (d *Dispatcher) Dispatch(ctx context.Context, alert *model.Alert) (*Report, error) {
	phones, err := d.resolveRecipients(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients for alert %s: %w", alert.ID, err)
	}

	report := &Report{RecipientsTargeted: len(phones)}

	var subs []model.PushSubscription
	for _, phone := range phones {
		list, err := d.store.SubscriptionsFor(ctx, phone)
		if err != nil {
			// Transient lookup failure: skip this recipient, keep going.
			log.Printf("Error fetching subscriptions for %s: %v", phone, err)
			continue
		}
		subs = append(subs, list...)
	}
	report.SubscriptionsAttempted = len(subs)
	if len(subs) == 0 {
		return report, nil
	}

	payload, err := json.Marshal(Payload{
		Tag:   alert.ID,
		Title: alert.Title,
		Body:  alert.Body,
		URL:   alert.Link,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}

	results := make(chan sendResult, len(subs))
	for _, sub := range subs {
		d.jobs <- job{sub: sub, payload: payload, results: results}
	}
	for range subs {
		r := <-results
		if r.reason == "" {
			report.Succeeded++
		} else {
			report.Failed++
			report.Failures = append(report.Failures, SendFailure{Endpoint: r.endpoint, Reason: r.reason})
		}
	}
	return report, nil
}

// resolveRecipients computes the target set: an empty target list is a
// broadcast to every active recipient; an explicit list is honored as-is,
// regardless of the listed recipients' active flags.
func (d *Dispatcher) resolveRecipients(ctx context.Context, alert *model.Alert) ([]string, error) {
	if !alert.Broadcast() {
		return alert.Targets, nil
	}
	recipients, err := d.store.ListRecipients(ctx, true)
	if err != nil {
		return nil, err
	}
	phones := make([]string, len(recipients))
	for i, r := range recipients {
		phones[i] = r.Phone
	}
	return phones, nil
}

// send pushes one payload to one endpoint. Endpoints the push service
// reports as gone are pruned from the registry so they stop accumulating.
func (d *Dispatcher) send(ctx context.Context, sub model.PushSubscription, payload []byte) sendResult {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(payload, wpSub, d.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return sendResult{endpoint: sub.Endpoint, reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := d.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return sendResult{endpoint: sub.Endpoint, reason: "endpoint gone"}
	}
	if resp.StatusCode >= 400 {
		return sendResult{endpoint: sub.Endpoint, reason: fmt.Sprintf("push service returned %d", resp.StatusCode)}
	}
	return sendResult{endpoint: sub.Endpoint}
}
