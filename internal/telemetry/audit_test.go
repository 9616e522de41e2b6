package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"roomloop/internal/mocks"
	"roomloop/internal/telemetry"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := &mocks.PublisherMock{}
	userID := int64(7)
	roomID := 3

	publisher.On("Publish", mock.Anything, telemetry.AuditRoutingKey, mock.MatchedBy(func(event any) bool {
		env, ok := event.(telemetry.AuditEnvelope)
		return ok &&
			env.EventType == "audit_log" &&
			env.Service == "roomloop" &&
			env.RequestID == "req-1" &&
			env.UserID != nil && *env.UserID == 7 &&
			env.Payload.Level == "INFO" &&
			env.Payload.Action == "room_closed" &&
			env.Payload.RoomID != nil && *env.Payload.RoomID == 3
	})).Return(nil).Once()

	emitter := telemetry.NewAuditEmitter(publisher, telemetry.AuditRoutingKey, "roomloop", "test")
	emitter.Emit(context.Background(), telemetry.AuditEntry{
		Action:    "room_closed",
		Text:      "room closed by host",
		RequestID: "req-1",
		UserID:    &userID,
		RoomID:    &roomID,
	})

	publisher.AssertExpectations(t)
}

func TestAuditEmitterSwallowsPublishError(t *testing.T) {
	publisher := &mocks.PublisherMock{}
	publisher.On("Publish", mock.Anything, telemetry.AuditRoutingKey, mock.Anything).Return(errors.New("broker down")).Once()

	emitter := telemetry.NewAuditEmitter(publisher, telemetry.AuditRoutingKey, "roomloop", "test")
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), telemetry.AuditEntry{Action: "room_deleted"})
	})
	publisher.AssertExpectations(t)
}

func TestNilAuditEmitterIsNoop(t *testing.T) {
	var emitter *telemetry.AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), telemetry.AuditEntry{Action: "noop"})
	})
}
