package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/model-gateway/internal/events"
	"github.com/spec-kit/model-gateway/internal/observability"
)

func TestAuditService_LogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core), observability.NewMetrics()).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventLoginSucceeded, 5, nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventLoginFailed, 0,
		events.LoginFailedPayload{Email: "ada@example.com", Reason: "password_mismatch"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTokenRevoked, 5,
		events.TokenRevokedPayload{Fingerprint: "fp"})))

	entries := logs.All()
	require.Len(t, entries, 3)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, int64(5), entries[0].ContextMap()["subject_id"])

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "password_mismatch", entries[1].ContextMap()["reason"])

	require.Equal(t, "fp", entries[2].ContextMap()["fingerprint"])
	require.Equal(t, string(events.EventTokenRevoked), entries[2].ContextMap()["event_type"])
}
