package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/events"
	"github.com/spec-kit/login-service/internal/observability"
)

// Login outcome labels used in metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeLocked   = "locked"
)

// AuditService records login events in logs and metrics and raises lockout alerts.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventLoginRejected, a.handleLoginRejected)
	a.dispatcher.Subscribe(events.EventAccountLocked, a.handleAccountLocked)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.metrics.RecordLogin(OutcomeSuccess)
	a.logger.Info("LoginSucceeded", zap.String("account_id", event.AccountID), zap.String("username", event.Username))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.metrics.RecordLogin(OutcomeFailure)
	a.logger.Info("LoginFailed", zap.String("account_id", event.AccountID), zap.String("username", event.Username), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleLoginRejected(_ context.Context, event events.Event) error {
	a.metrics.RecordLogin(OutcomeRejected)
	a.logger.Info("LoginRejected", zap.String("account_id", event.AccountID), zap.String("username", event.Username), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleAccountLocked(ctx context.Context, event events.Event) error {
	a.metrics.RecordLogin(OutcomeLocked)
	a.metrics.RecordLockout()
	a.logger.Warn("AccountLocked", zap.String("account_id", event.AccountID), zap.String("username", event.Username), zap.Any("payload", event.Payload))
	a.sendEmailNotificationStub(ctx, event)
	a.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (a *AuditService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.EmailFrom) == "" {
		return
	}
	a.logger.Debug("sendEmailNotificationStub",
		zap.String("from", a.cfg.EmailFrom),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}

func (a *AuditService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}
	a.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", a.cfg.WebhookURL),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}
