// Package notify emits registration facts for out-of-band delivery.
// Delivery, templating, and channel preference belong to an external
// notification service; this package only hands it facts. Emission happens
// strictly after the allocator's atomic unit commits, so a slow or failing
// transport can never hold an event lock, and a failed emission is logged
// and dropped rather than rolling back a committed registration.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Kind identifies the fact being emitted.
type Kind string

const (
	KindRegistrationConfirmed Kind = "RegistrationConfirmed"
	KindWaitlisted            Kind = "Waitlisted"
	KindPromotedFromWaitlist  Kind = "PromotedFromWaitlist"
	KindRegistrationCancelled Kind = "RegistrationCancelled"
)

// TypeNotifyParticipant is the asynq task type consumed by the delivery worker.
const TypeNotifyParticipant = "notify:participant"

// Payload is the JSON body of an emitted fact.
type Payload struct {
	Kind          Kind           `json:"kind"`
	ParticipantID string         `json:"participant_id"`
	EventID       string         `json:"event_id"`
	Data          map[string]any `json:"data,omitempty"`
}

// Emitter is the fire-and-forget emission contract.
type Emitter interface {
	Emit(ctx context.Context, kind Kind, participantID, eventID string, data map[string]any)
}

// AsynqEmitter enqueues facts as asynq tasks for the delivery worker.
type AsynqEmitter struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqEmitter constructs an emitter backed by the given Redis address.
func NewAsynqEmitter(redisAddr string, logger *slog.Logger) *AsynqEmitter {
	return &AsynqEmitter{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		logger: logger,
	}
}

// Emit enqueues one task. Failures are logged and swallowed.
func (e *AsynqEmitter) Emit(ctx context.Context, kind Kind, participantID, eventID string, data map[string]any) {
	payload, err := json.Marshal(Payload{
		Kind:          kind,
		ParticipantID: participantID,
		EventID:       eventID,
		Data:          data,
	})
	if err != nil {
		e.logger.Error("marshal notification", "kind", kind, "error", err)
		return
	}
	task := asynq.NewTask(TypeNotifyParticipant, payload)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		e.logger.Error("enqueue notification",
			"kind", kind, "participant_id", participantID, "event_id", eventID, "error", err)
	}
}

// Close releases the underlying asynq client.
func (e *AsynqEmitter) Close() error {
	return e.client.Close()
}

// LogEmitter writes facts to the log. Used when no Redis is configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter constructs a LogEmitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the fact.
func (e *LogEmitter) Emit(ctx context.Context, kind Kind, participantID, eventID string, data map[string]any) {
	e.logger.Info("notification",
		"kind", kind, "participant_id", participantID, "event_id", eventID)
}

// ParseTask decodes a TypeNotifyParticipant task back into its payload.
// Delivery workers use it as the counterpart of Emit.
func ParseTask(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return Payload{}, fmt.Errorf("unmarshal notification payload: %w", err)
	}
	return p, nil
}
