package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alert-center-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations. The alert log
// is append-mostly: alerts are never mutated after creation except for
// their read-receipt set.
type Store interface {
	DB() *gorm.DB

	FindRecipient(ctx context.Context, phone string) (*model.Recipient, error)
	CreateRecipient(ctx context.Context, r *model.Recipient) error
	SaveRecipient(ctx context.Context, r *model.Recipient) error
	DeleteRecipient(ctx context.Context, phone string) error
	ListRecipients(ctx context.Context, activeOnly bool) ([]model.Recipient, error)

	CreateAlert(ctx context.Context, a *model.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	ListAlertsVisibleTo(ctx context.Context, phone string, limit int) ([]model.Alert, error)
	MarkAlertRead(ctx context.Context, alertID, phone string) error

	RegisterSubscription(ctx context.Context, sub *model.PushSubscription) (*model.PushSubscription, error)
	SubscriptionsFor(ctx context.Context, phone string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for migration and test setup.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) FindRecipient(ctx context.Context, phone string) (*model.Recipient, error) {
	var r model.Recipient
	if err := s.db.WithContext(ctx).First(&r, "phone = ?", phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) CreateRecipient(ctx context.Context, r *model.Recipient) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) SaveRecipient(ctx context.Context, r *model.Recipient) error {
	return s.db.WithContext(ctx).Save(r).Error
}

func (s *gormStore) DeleteRecipient(ctx context.Context, phone string) error {
	return s.db.WithContext(ctx).Delete(&model.Recipient{Phone: phone}).Error
}

func (s *gormStore) ListRecipients(ctx context.Context, activeOnly bool) ([]model.Recipient, error) {
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var recipients []model.Recipient
	if err := q.Find(&recipients).Error; err != nil {
		return nil, err
	}
	return recipients, nil
}

func (s *gormStore) CreateAlert(ctx context.Context, a *model.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Targets == nil {
		a.Targets = []string{}
	}
	if a.ReadBy == nil {
		a.ReadBy = []string{}
	}
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *gormStore) ListAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var alerts []model.Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListAlertsVisibleTo applies the visibility rule in one place for both the
// initial load and every delta load: broadcast alerts plus alerts that list
// the recipient explicitly. The target list is a serialized JSON column, so
// filtering happens here rather than in SQL.
func (s *gormStore) ListAlertsVisibleTo(ctx context.Context, phone string, limit int) ([]model.Alert, error) {
	alerts, err := s.ListAlerts(ctx, 0)
	if err != nil {
		return nil, err
	}

	visible := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.VisibleTo(phone) {
			visible = append(visible, a)
		}
		if limit > 0 && len(visible) == limit {
			break
		}
	}
	return visible, nil
}

// MarkAlertRead appends the recipient to the alert's read-receipt set.
// The set only ever grows; marking twice is a no-op.
func (s *gormStore) MarkAlertRead(ctx context.Context, alertID, phone string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a model.Alert
		if err := tx.First(&a, "id = ?", alertID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if a.IsReadBy(phone) {
			return nil
		}
		a.ReadBy = append(a.ReadBy, phone)
		if err := tx.Model(&model.Alert{ID: a.ID}).Update("read_by", a.ReadBy).Error; err != nil {
			return fmt.Errorf("failed to update read receipts for alert %s: %w", alertID, err)
		}
		return nil
	})
}

// RegisterSubscription is idempotent: registering an endpoint that already
// exists for the same recipient returns the stored record untouched. An
// endpoint re-registered under a different recipient (same device, new
// login) is reassigned with fresh keys.
func (s *gormStore) RegisterSubscription(ctx context.Context, sub *model.PushSubscription) (*model.PushSubscription, error) {
	var result *model.PushSubscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.PushSubscription
		err := tx.First(&existing, "endpoint = ?", sub.Endpoint).Error
		switch {
		case err == nil:
			if existing.RecipientPhone == sub.RecipientPhone {
				result = &existing
				return nil
			}
			existing.RecipientPhone = sub.RecipientPhone
			existing.P256DH = sub.P256DH
			existing.Auth = sub.Auth
			existing.UserAgent = sub.UserAgent
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			result = &existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(sub).Error; err != nil {
				return err
			}
			result = sub
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *gormStore) SubscriptionsFor(ctx context.Context, phone string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("recipient_phone = ?", phone).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
