// Package worker plugs the filing poller and the periodic promotion into the
// asynq worker loop.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
	"github.com/harithzainudin/invois-gateway/internal/queue"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

// promoteAfter is how long a Valid record may sit untouched before it is
// considered settled and promoted to Completed.
const promoteAfter = 72 * time.Hour

// Processor handles the background tasks.
type Processor struct {
	poller *filing.Poller
	repo   repository.SubmissionRepository
	log    *logger.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(poller *filing.Poller, repo repository.SubmissionRepository, log *logger.Logger) *Processor {
	return &Processor{poller: poller, repo: repo, log: log.Component("worker")}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.PollSubmissionTask, p.handlePoll)
	mux.HandleFunc(queue.PromoteStaleTask, p.handlePromote)
	return mux
}

// handlePoll runs one status check. A missing record is permanent, the task
// is dropped; a still-processing verdict re-queues through asynq's retry.
func (p *Processor) handlePoll(ctx context.Context, task *asynq.Task) error {
	var payload queue.PollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode poll payload: %v: %w", err, asynq.SkipRetry)
	}

	err := p.poller.Poll(ctx, payload.SubmissionUID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, filing.ErrNotFound):
		p.log.Warn().Str("submissionUid", payload.SubmissionUID).Msg("poll task for unknown record, dropping")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case errors.Is(err, filing.ErrInProgress):
		// Not a failure; returning the error makes the queue re-schedule.
		return err
	default:
		p.log.Error().Err(err).Str("submissionUid", payload.SubmissionUID).Msg("status poll failed")
		return err
	}
}

// handlePromote applies the 72-hour consistency rule across the table.
func (p *Processor) handlePromote(ctx context.Context, _ *asynq.Task) error {
	n, err := p.repo.PromoteStale(ctx, time.Now().Add(-promoteAfter))
	if err != nil {
		return fmt.Errorf("promote stale submissions: %w", err)
	}
	if n > 0 {
		p.log.Info().Int64("promoted", n).Msg("stale Valid submissions promoted to Completed")
	}
	return nil
}
