// Package filing orchestrates the submission lifecycle: prevalidation,
// mapping, signing, submission, asynchronous status polling and cancellation.
package filing

import (
	"context"
	"time"

	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
)

// AuthorityClient is what the orchestrator and poller need from the MyInvois
// REST client. Narrowed to an interface so tests can count and fake calls.
type AuthorityClient interface {
	SubmitDocuments(ctx context.Context, envelopes []myinvois.DocumentEnvelope) (*myinvois.SubmissionResponse, error)
	GetSubmission(ctx context.Context, submissionUID string, pageNo, pageSize int) (*myinvois.SubmissionStatusResponse, error)
	GetDocumentDetails(ctx context.Context, documentUUID string) (*myinvois.DocumentDetails, error)
	CancelDocument(ctx context.Context, documentUUID, reason string) error
	ValidateTaxpayerTIN(ctx context.Context, tin, idType, idValue string) error
}

// PollScheduler enqueues a deferred status poll for a submission. Backed by
// the task queue in production; a recording fake in tests.
type PollScheduler interface {
	SchedulePoll(ctx context.Context, submissionUID string, delay time.Duration) error
}
