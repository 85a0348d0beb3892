// Package scheduler runs the asynchronous side of the system on asynq:
// signal normalization and reconciliation, due outreach sends, and
// notification outbox delivery.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSignalNormalize = "signals.normalize"

const TaskSignalReconcile = "signals.reconcile"

const TaskOutreachSendDue = "outreach.send.due"

const TaskNotificationOutboxDue = "notification.outbox.due"

type SignalNormalizePayload struct {
	RawSignalID string `json:"rawSignalId"`
	TenantID    string `json:"tenantId"`
}

type SignalReconcilePayload struct {
	NormalizedSignalID string `json:"normalizedSignalId"`
	TenantID           string `json:"tenantId"`
}

type OutreachSendDuePayload struct {
	SendID   string `json:"sendId"`
	TenantID string `json:"tenantId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
	TenantID string `json:"tenantId"`
}

func NewSignalNormalizeTask(payload SignalNormalizePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSignalNormalize, data), nil
}

func ParseSignalNormalizePayload(task *asynq.Task) (SignalNormalizePayload, error) {
	var payload SignalNormalizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SignalNormalizePayload{}, err
	}
	return payload, nil
}

func NewSignalReconcileTask(payload SignalReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSignalReconcile, data), nil
}

func ParseSignalReconcilePayload(task *asynq.Task) (SignalReconcilePayload, error) {
	var payload SignalReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SignalReconcilePayload{}, err
	}
	return payload, nil
}

func NewOutreachSendDueTask(payload OutreachSendDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutreachSendDue, data), nil
}

func ParseOutreachSendDuePayload(task *asynq.Task) (OutreachSendDuePayload, error) {
	var payload OutreachSendDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutreachSendDuePayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
