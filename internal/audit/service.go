package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pabloeorellana/orpos-backend/pkg/config"
	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/logger"
)

// Publisher is the slice of the Pub/Sub publisher the sink needs.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Service is the fire-and-forget audit sink. LogAction never returns an
// error; a failed append is logged and swallowed so it can never roll
// back the business transaction that triggered it.
type Service interface {
	LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any)
}

type service struct {
	db        *gorm.DB
	logg      *logger.Logger
	publisher Publisher
	timeout   time.Duration
}

// NewService builds the audit sink. The publisher is optional; with a
// nil publisher only the audit_logs table is written.
func NewService(db *gorm.DB, cfg config.AuditConfig, logg *logger.Logger, publisher Publisher) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &service{db: db, logg: logg, publisher: publisher, timeout: timeout}, nil
}

func (s *service) LogAction(ctx context.Context, tenantID, userID uuid.UUID, action string, details any) {
	// The caller's request may be cancelled right after its transaction
	// commits; the trail entry should still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	ctx = s.logg.WithField(ctx, "action", action)

	payload, err := json.Marshal(details)
	if err != nil {
		s.logg.Error(ctx, "audit append skipped", fmt.Errorf("marshal audit details: %w", err))
		return
	}

	entry := models.AuditLog{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Action:   action,
		Details:  payload,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logg.Error(ctx, "audit append failed", fmt.Errorf("insert audit log: %w", err))
	}

	if s.publisher == nil {
		return
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"tenant_id": tenantID.String(),
			"user_id":   userID.String(),
			"action":    action,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		s.logg.Error(ctx, "audit publish failed", fmt.Errorf("publish audit event: %w", err))
	}
}
