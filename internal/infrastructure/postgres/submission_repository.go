package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// terminalStatuses guards status writes in SQL so a concurrent poller can
// never downgrade a settled record, whatever order updates land in.
var terminalStatuses = []string{
	string(einvoice.StatusValid),
	string(einvoice.StatusInvalid),
	string(einvoice.StatusPartiallyValid),
	string(einvoice.StatusCancelled),
	string(einvoice.StatusCompleted),
}

// SubmissionRepo implements SubmissionRepository (usable with pool or tx).
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository builds the adapter. Pass a pool or a tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// Upsert inserts the record or refreshes the row already keyed by file_path.
func (r *SubmissionRepo) Upsert(ctx context.Context, sub *entity.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	query := `
		INSERT INTO submissions (id, file_path, file_name, invoice_number, document_uuid,
		                         submission_uid, long_id, status, date_submitted, date_cancelled,
		                         error_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (file_path) DO UPDATE SET
			file_name      = EXCLUDED.file_name,
			invoice_number = EXCLUDED.invoice_number,
			document_uuid  = COALESCE(EXCLUDED.document_uuid, submissions.document_uuid),
			submission_uid = COALESCE(EXCLUDED.submission_uid, submissions.submission_uid),
			long_id        = COALESCE(EXCLUDED.long_id, submissions.long_id),
			status         = EXCLUDED.status,
			date_submitted = COALESCE(EXCLUDED.date_submitted, submissions.date_submitted),
			date_cancelled = COALESCE(EXCLUDED.date_cancelled, submissions.date_cancelled),
			error_detail   = EXCLUDED.error_detail,
			updated_at     = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		sub.ID, sub.FilePath, sub.FileName, nullIfEmpty(sub.InvoiceNumber),
		nullIfEmpty(sub.DocumentUUID), nullIfEmpty(sub.SubmissionUID), nullIfEmpty(sub.LongID),
		string(sub.Status), sub.DateSubmitted, sub.DateCancelled,
		nullIfEmpty(sub.ErrorDetail), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("submission id already exists: %w", err)
		}
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

const submissionColumns = `id, file_path, file_name, invoice_number, document_uuid,
	submission_uid, long_id, status, date_submitted, date_cancelled,
	error_detail, created_at, updated_at`

// GetByFilePath returns nil, nil when no record exists.
func (r *SubmissionRepo) GetByFilePath(ctx context.Context, filePath string) (*entity.Submission, error) {
	return r.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE file_path = $1`, filePath)
}

// GetBySubmissionUID returns nil, nil when no record exists.
func (r *SubmissionRepo) GetBySubmissionUID(ctx context.Context, submissionUID string) (*entity.Submission, error) {
	return r.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE submission_uid = $1`, submissionUID)
}

// GetByDocumentUUID returns nil, nil when no record exists.
func (r *SubmissionRepo) GetByDocumentUUID(ctx context.Context, documentUUID string) (*entity.Submission, error) {
	return r.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE document_uuid = $1`, documentUUID)
}

// List returns records ordered by updated_at descending.
func (r *SubmissionRepo) List(ctx context.Context, limit, offset int) ([]*entity.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*entity.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// UpdateStatus advances the lifecycle. Rows already in a terminal status are
// excluded by the WHERE clause, so the no-downgrade rule holds even under
// concurrent writers.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id string, status einvoice.SubmissionStatus, longID string) (bool, error) {
	query := `
		UPDATE submissions
		SET status     = $2,
		    long_id    = COALESCE($3, long_id),
		    updated_at = $4
		WHERE id = $1 AND status <> ALL($5)`
	tag, err := r.q.Exec(ctx, query, id, string(status), nullIfEmpty(longID), time.Now(), terminalStatuses)
	if err != nil {
		return false, fmt.Errorf("update submission status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCancelled records the cancellation. Unlike UpdateStatus this may move a
// record out of Valid: cancellation is the one allowed terminal transition.
func (r *SubmissionRepo) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE submissions
		SET status         = $2,
		    date_cancelled = $3,
		    updated_at     = $3
		WHERE id = $1 AND status <> $2`
	if _, err := r.q.Exec(ctx, query, id, string(einvoice.StatusCancelled), at); err != nil {
		return fmt.Errorf("mark submission cancelled: %w", err)
	}
	return nil
}

// PromoteStale flips Valid records untouched since cutoff to Completed.
func (r *SubmissionRepo) PromoteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE submissions
		SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < $3`
	tag, err := r.q.Exec(ctx, query, string(einvoice.StatusCompleted), string(einvoice.StatusValid), cutoff)
	if err != nil {
		return 0, fmt.Errorf("promote stale submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SubmissionRepo) getOne(ctx context.Context, query string, arg any) (*entity.Submission, error) {
	sub, err := scanSubmission(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (*entity.Submission, error) {
	var sub entity.Submission
	var invoiceNumber, documentUUID, submissionUID, longID, errorDetail *string
	var status string
	err := row.Scan(
		&sub.ID, &sub.FilePath, &sub.FileName, &invoiceNumber, &documentUUID,
		&submissionUID, &longID, &status, &sub.DateSubmitted, &sub.DateCancelled,
		&errorDetail, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	sub.InvoiceNumber = deref(invoiceNumber)
	sub.DocumentUUID = deref(documentUUID)
	sub.SubmissionUID = deref(submissionUID)
	sub.LongID = deref(longID)
	sub.ErrorDetail = deref(errorDetail)
	sub.Status = einvoice.SubmissionStatus(status)
	return &sub, nil
}
