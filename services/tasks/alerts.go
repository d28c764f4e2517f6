package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"skywatch/models"

	"github.com/hibiken/asynq"
)

const TypeAlertDispatch = "alert:dispatch"

// NewAlertDispatchTask builds the queue task for one stored alert.
func NewAlertDispatchTask(alertID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.AlertDispatchPayload{AlertID: alertID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeAlertDispatch, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}

	return task, opts, nil
}

// Client enqueues alert dispatch tasks. It satisfies the AlertQueue contract
// of both the scheduler and the frequency controller.
type Client struct {
	Asynq *asynq.Client
}

func (c *Client) EnqueueAlertDispatch(alertID string) error {
	task, opts, err := NewAlertDispatchTask(alertID)
	if err != nil {
		return fmt.Errorf("error building alert dispatch task: %w", err)
	}
	if _, err := c.Asynq.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("error enqueueing alert dispatch for %s: %w", alertID, err)
	}
	return nil
}
