package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type testSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c testSchedulerConfig) GetRedisURL() string      { return c.redisURL }
func (c testSchedulerConfig) GetAsynqQueueName() string { return c.queue }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var c *Client
	err := c.ScheduleBookingReminder(context.Background(), BookingReminderPayload{
		BookingID: uuid.NewString(),
		LeadID:    uuid.NewString(),
	}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil client close must be a no-op, got %v", err)
	}
}

func TestScheduleBookingReminderEnqueuesFutureTask(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{
		redisURL: "redis://" + mr.Addr(),
		queue:    "reminders",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	err = client.ScheduleBookingReminder(context.Background(), BookingReminderPayload{
		BookingID: uuid.NewString(),
		LeadID:    uuid.NewString(),
	}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to schedule reminder: %v", err)
	}

	// asynq parks future-dated tasks in the queue's scheduled set.
	if !mr.Exists("asynq:{reminders}:scheduled") {
		t.Fatal("expected the task in the scheduled set")
	}
}

func TestBookingReminderTaskRoundTrip(t *testing.T) {
	payload := BookingReminderPayload{BookingID: uuid.NewString(), LeadID: uuid.NewString()}

	task, err := NewBookingReminderTask(payload)
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	if task.Type() != TaskBookingReminder {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	decoded, err := ParseBookingReminderPayload(task)
	if err != nil {
		t.Fatalf("failed to parse payload: %v", err)
	}
	if decoded != payload {
		t.Fatalf("payload mismatch: %#v != %#v", decoded, payload)
	}
}
