package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/model-gateway/internal/events"
	"github.com/spec-kit/model-gateway/internal/observability"
)

// AuditService records auth events in the log and in metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleInfo)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleInfo)
	a.dispatcher.Subscribe(events.EventAccessTokenRotated, a.handleInfo)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventTokenRevoked, a.handleTokenRevoked)
}

func (a *AuditService) handleInfo(_ context.Context, event events.Event) error {
	a.logger.Info("auth event", a.fields(event)...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields, zap.String("email", payload.Email), zap.String("reason", payload.Reason))
	}
	a.logger.Warn("auth event", fields...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleTokenRevoked(_ context.Context, event events.Event) error {
	fields := a.fields(event)
	if payload, ok := event.Payload.(events.TokenRevokedPayload); ok {
		fields = append(fields, zap.String("fingerprint", payload.Fingerprint))
	}
	a.logger.Info("auth event", fields...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("subject_id", event.SubjectID),
		zap.Time("timestamp", event.Timestamp),
	}
}
