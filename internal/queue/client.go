package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/schoolhub/membership/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
	}
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRosterReconcile schedules a roster rebuild. Repeated requests for
// the same class within a minute collapse into one task.
func (c *Client) EnqueueRosterReconcile(ctx context.Context, schoolID, classID string) error {
	return c.enqueue(ctx, TypeRosterReconcile, RosterReconcilePayload{SchoolID: schoolID, ClassID: classID},
		asynq.MaxRetry(5), asynq.Timeout(2*time.Minute), asynq.Unique(time.Minute))
}

func (c *Client) EnqueueOwnerRepair(ctx context.Context, schoolID string) error {
	return c.enqueue(ctx, TypeOwnerRepair, OwnerRepairPayload{SchoolID: schoolID},
		asynq.Queue("critical"), asynq.MaxRetry(10), asynq.Timeout(time.Minute), asynq.Unique(time.Minute))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
