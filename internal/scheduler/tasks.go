package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskBookingReminder is the asynq task type for booking reminders.
const TaskBookingReminder = "bookings.reminder"

// BookingReminderPayload identifies the booking a reminder fires for.
type BookingReminderPayload struct {
	BookingID string `json:"bookingId"`
	LeadID    string `json:"leadId"`
}

// NewBookingReminderTask builds the asynq task for a booking reminder.
func NewBookingReminderTask(payload BookingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingReminder, data), nil
}

// ParseBookingReminderPayload decodes a booking reminder task payload.
func ParseBookingReminderPayload(task *asynq.Task) (BookingReminderPayload, error) {
	var payload BookingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BookingReminderPayload{}, err
	}
	return payload, nil
}
