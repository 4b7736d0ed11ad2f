package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/authgate/jwt-auth/internal/events"
	"github.com/authgate/jwt-auth/internal/observability"
)

// AuditService records authentication events to the log and metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleTokenRejected)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.metrics.RecordAuth(observability.MetricTokensIssued)
	a.logger.Info("login succeeded", zap.String("event_id", event.ID), zap.String("username", event.Username))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.metrics.RecordAuth(observability.MetricLoginsFailed)
	a.logger.Warn("login failed",
		zap.String("event_id", event.ID),
		zap.String("username", event.Username),
		zap.String("reason", event.Reason))
	return nil
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.metrics.RecordAuth(observability.MetricUsersCreated)
	a.metrics.RecordAuth(observability.MetricTokensIssued)
	a.logger.Info("user registered", zap.String("event_id", event.ID), zap.String("username", event.Username))
	return nil
}

func (a *AuditService) handleTokenRejected(_ context.Context, event events.Event) error {
	a.metrics.RecordAuth(observability.MetricTokensRejected)
	a.logger.Debug("token rejected", zap.String("event_id", event.ID), zap.String("reason", event.Reason))
	return nil
}
