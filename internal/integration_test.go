package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"alert-center-backend/config"
	"alert-center-backend/internal/api"
	"alert-center-backend/internal/dispatch"
	"alert-center-backend/internal/model"
	"alert-center-backend/internal/mw"
	"alert-center-backend/internal/store"
	"alert-center-backend/internal/syncer"
)

// recordingSender captures push sends so the test can observe fan-out
// without a real push service.
type recordingSender struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

func (r *recordingSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.payloads == nil {
		r.payloads = make(map[string][][]byte)
	}
	r.payloads[sub.Endpoint] = append(r.payloads[sub.Endpoint], payload)
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}, nil
}

func (r *recordingSender) sendsTo(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads[endpoint])
}

// countingPresenter counts presentations per alert id.
type countingPresenter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (p *countingPresenter) Present(a model.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string]int)
	}
	p.seen[a.ID]++
}

func (p *countingPresenter) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen[id]
}

// TestEndToEndAlertFlow runs the whole pipeline against a live HTTP
// server: admin creates an alert, the push path fans it out to the
// registered endpoint and the polling client detects and presents it
// exactly once.
func TestEndToEndAlertFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Recipient{}, &model.Alert{}, &model.PushSubscription{}))
	s := store.NewGormStore(db)

	seed := func(phone, password string, admin bool) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, s.CreateRecipient(ctx, &model.Recipient{
			Phone: phone, Name: "Recipient " + phone,
			PasswordHash: string(hash), IsActive: true, IsAdmin: admin,
		}))
	}
	seed("+15550009000", "admin pass", true)
	seed("+15550001000", "user pass", false)

	webpushOptions := &webpush.Options{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}
	sender := &recordingSender{}
	dispatcher := dispatch.NewDispatcher(2, s, webpushOptions)
	dispatcher.SetSender(sender)
	dctx, dcancel := context.WithCancel(ctx)
	t.Cleanup(dcancel)
	dispatcher.Start(dctx)

	cfg := &config.Config{}
	// The sync loop polls far faster than production here; keep the rate
	// limiter out of the way.
	cfg.Server.RateLimitPerSec = 10000
	cfg.Server.RateLimitBurst = 10000
	cfg.Server.CacheTTLSeconds = 1

	issuer := mw.NewTokenIssuer("integration-secret", time.Hour)
	server := httptest.NewServer(api.NewRouter(cfg, s, dispatcher, webpushOptions, issuer))
	t.Cleanup(server.Close)

	// Recipient logs in and registers a push channel.
	client := syncer.NewClient(server.URL)
	recipient, err := client.Login(ctx, "+15550001000", "user pass")
	require.NoError(t, err)
	assert.Equal(t, "+15550001000", recipient.Phone)

	key, err := client.VAPIDPublicKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pub", key)

	require.NoError(t, client.RegisterSubscription(ctx, "https://push.example.com/dev1", "p256dh", "auth", "test-ua"))

	// The sync loop starts against the live API.
	p := &countingPresenter{}
	session, err := syncer.Start(ctx, client, syncer.Options{
		Interval:  25 * time.Millisecond,
		Presenter: p,
	})
	require.NoError(t, err)
	t.Cleanup(session.Stop)

	// Admin broadcasts an alert through the HTTP surface.
	adminToken, err := issuer.Issue("+15550009000")
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{"title": "Power outage", "body": "Until 18:00"})
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/api/admin/alerts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Alert  model.Alert      `json:"alert"`
		Report *dispatch.Report `json:"report"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.Alert.ID)

	// Push path: the registered endpoint received exactly one send
	// carrying the alert id as its coalescing tag.
	require.NotNil(t, created.Report)
	assert.Equal(t, 1, created.Report.Succeeded)
	require.Equal(t, 1, sender.sendsTo("https://push.example.com/dev1"))
	var payload dispatch.Payload
	sender.mu.Lock()
	raw := sender.payloads["https://push.example.com/dev1"][0]
	sender.mu.Unlock()
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, created.Alert.ID, payload.Tag)

	// Poll path: the loop detects the alert and presents it once.
	assert.Eventually(t, func() bool {
		return p.count(created.Alert.ID) == 1
	}, 3*time.Second, 10*time.Millisecond)

	// Give the loop a few more polls; no re-presentation.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, p.count(created.Alert.ID))

	// Read receipt round-trips through the client.
	require.NoError(t, client.MarkRead(ctx, created.Alert.ID))
	alerts, err := client.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].IsReadBy("+15550001000"))
}
