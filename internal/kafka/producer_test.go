package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-festbuzz/internal/config"
	"ms-festbuzz/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
	fail map[string]bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if w.fail[m.Topic] {
			return errors.New("broker unavailable")
		}
		w.msgs = append(w.msgs, m)
	}
	return nil
}

func (w *recordingWriter) Close() error { return nil }

var testTopics = config.TopicConfig{
	FestRegistration:  "fest-reg",
	EventRegistration: "event-reg",
	Team:              "team",
	Certificate:       "certificate",
}

func TestEventPublisher_RoutesByType(t *testing.T) {
	w := &recordingWriter{}
	pub := NewEventPublisher(&Producer{Writer: w}, testTopics, nil)

	pub.Publish(context.Background(),
		models.DomainEvent{Type: models.FestRegistrationCreated, UserID: "u1", FestID: "f1"},
		models.DomainEvent{Type: models.EventRegistrationCanceled, UserID: "u1", EventID: "e1"},
		models.DomainEvent{Type: models.TeamMemberJoined, UserID: "u2", TeamID: "t1"},
		models.DomainEvent{Type: models.CertificatesIssued, UserID: "u3", EventID: "e1"},
	)

	require.Len(t, w.msgs, 4)
	assert.Equal(t, "fest-reg", w.msgs[0].Topic)
	assert.Equal(t, "event-reg", w.msgs[1].Topic)
	assert.Equal(t, "team", w.msgs[2].Topic)
	assert.Equal(t, "certificate", w.msgs[3].Topic)

	// team events are keyed by team, the rest by user
	assert.Equal(t, "u1", string(w.msgs[0].Key))
	assert.Equal(t, "t1", string(w.msgs[2].Key))

	var decoded models.DomainEvent
	require.NoError(t, json.Unmarshal(w.msgs[2].Value, &decoded))
	assert.Equal(t, models.TeamMemberJoined, decoded.Type)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestEventPublisher_FailureDoesNotStopLaterEvents(t *testing.T) {
	w := &recordingWriter{fail: map[string]bool{"team": true}}
	pub := NewEventPublisher(&Producer{Writer: w}, testTopics, nil)

	pub.Publish(context.Background(),
		models.DomainEvent{Type: models.TeamDisbandedEvent, TeamID: "t1", OccurredAt: time.Now()},
		models.DomainEvent{Type: models.FestRegistrationDeleted, UserID: "u1"},
	)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "fest-reg", w.msgs[0].Topic)
}

func TestEventPublisher_UnknownTypeAndNil(t *testing.T) {
	pub := NewEventPublisher(&Producer{Writer: &recordingWriter{}}, testTopics, nil)
	_, err := pub.TopicFor("payment.created")
	assert.Error(t, err)

	var disabled *EventPublisher
	assert.NotPanics(t, func() {
		disabled.Publish(context.Background(), models.DomainEvent{Type: models.TeamCreated})
	})
}
