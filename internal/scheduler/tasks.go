package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskAutoTag = "tags.autotag"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

type AutoTagPayload struct {
	Target string `json:"target"`
	ID     string `json:"id"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data, asynq.MaxRetry(notificationMaxRetry)), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewAutoTagTask(payload AutoTagPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoTag, data, asynq.MaxRetry(autoTagMaxRetry)), nil
}

func ParseAutoTagPayload(task *asynq.Task) (AutoTagPayload, error) {
	var payload AutoTagPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutoTagPayload{}, err
	}
	return payload, nil
}
