// Package repository declares the persistence ports.
package repository

import (
	"context"
	"time"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
)

// SubmissionRepository is the port for the submission record table. The table
// is the single source of truth for status; both the orchestrator and the
// poller write through it and rely on the terminal-status guard in
// UpdateStatus to avoid flapping.
type SubmissionRepository interface {
	// Upsert creates the record for a file path or refreshes the existing one.
	Upsert(ctx context.Context, sub *entity.Submission) error

	// GetByFilePath returns nil, nil when no record exists.
	GetByFilePath(ctx context.Context, filePath string) (*entity.Submission, error)

	// GetBySubmissionUID returns nil, nil when no record exists.
	GetBySubmissionUID(ctx context.Context, submissionUID string) (*entity.Submission, error)

	// GetByDocumentUUID returns nil, nil when no record exists.
	GetByDocumentUUID(ctx context.Context, documentUUID string) (*entity.Submission, error)

	// List returns records ordered by updated_at descending.
	List(ctx context.Context, limit, offset int) ([]*entity.Submission, error)

	// UpdateStatus advances the lifecycle. Implementations must treat a
	// record already in a terminal status as a no-op and report it via the
	// updated return value.
	UpdateStatus(ctx context.Context, id string, status einvoice.SubmissionStatus, longID string) (updated bool, err error)

	// MarkCancelled records the cancellation timestamp alongside the status.
	MarkCancelled(ctx context.Context, id string, at time.Time) error

	// PromoteStale flips Valid records older than cutoff to Completed and
	// returns how many rows changed. Backs the 72-hour consistency rule.
	PromoteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
