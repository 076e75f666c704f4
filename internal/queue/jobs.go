// Package queue defines the background tasks and their enqueueing side.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// PollSubmissionTask checks one submission's remote status. Scheduled
	// with a short delay after acceptance and re-tried by the queue while
	// the authority is still processing.
	PollSubmissionTask = "submission:poll"

	// PromoteStaleTask applies the 72-hour Valid to Completed promotion.
	// Enqueued periodically by the worker's scheduler.
	PromoteStaleTask = "submission:promote"
)

// pollMaxRetry bounds how long the queue chases one submission. With asynq's
// default backoff, 25 attempts span several days, well past any verdict.
const pollMaxRetry = 25

// PollPayload tells the worker which submission to poll.
type PollPayload struct {
	SubmissionUID string `json:"submission_uid"`
}

// Scheduler enqueues deferred status polls. Implements the filing package's
// PollScheduler port.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler wraps an asynq client.
func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

// SchedulePoll enqueues a status poll to run after delay.
func (s *Scheduler) SchedulePoll(ctx context.Context, submissionUID string, delay time.Duration) error {
	data, err := json.Marshal(PollPayload{SubmissionUID: submissionUID})
	if err != nil {
		return fmt.Errorf("marshal poll payload: %w", err)
	}
	task := asynq.NewTask(PollSubmissionTask, data)
	if _, err := s.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(pollMaxRetry)); err != nil {
		return fmt.Errorf("enqueue poll task: %w", err)
	}
	return nil
}
