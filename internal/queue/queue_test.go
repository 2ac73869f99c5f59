package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

func TestEncodeRoutesByType(t *testing.T) {
	occurred := time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)
	key, msg, err := encode(model.Event{Type: model.EventWaitlistOffered, ResourceID: 3, UserID: 2, OccurredAt: occurred})
	require.NoError(t, err)
	assert.Equal(t, "waitlist.offered", key)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.True(t, msg.Timestamp.Equal(occurred))
}

func TestHandleMessageAppendsAuditLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.log")
	start := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	ev := model.Event{
		Type: model.EventBookingConfirmed, ResourceID: 3, UserID: 2, BookingID: 11,
		StartUTC: &start, EndUTC: &end, OccurredAt: start.Add(-time.Hour),
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handleMessage(path, body))
	require.NoError(t, handleMessage(path, body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := "[2030-03-04T08:00:00Z] booking.confirmed | resource_id=3 | user_id=2 | booking_id=11 | window=2030-03-04T09:00:00Z/2030-03-04T10:00:00Z\n"
	assert.Equal(t, line+line, string(data))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	assert.Error(t, handleMessage(path, []byte("not json")))
	assert.Error(t, handleMessage(path, []byte(`{"resourceId":1}`)))
}
