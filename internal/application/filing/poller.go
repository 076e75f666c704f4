package filing

import (
	"context"
	"errors"
	"fmt"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

// ErrNotFound means no submission record matches the polled uid. The worker
// treats it as permanent and drops the task.
var ErrNotFound = errors.New("submission record not found")

// ErrInProgress means the authority has not reached a verdict yet. The worker
// maps it to a retry so the queue re-schedules the poll; the poller itself
// never loops or sleeps.
var ErrInProgress = errors.New("submission still processing")

// Poller checks one submission's remote status and advances the local record.
// Re-scheduling on transient failure is the queue's job, not the poller's.
type Poller struct {
	repo   repository.SubmissionRepository
	client AuthorityClient
	log    *logger.Logger
}

// NewPoller wires the poller.
func NewPoller(repo repository.SubmissionRepository, client AuthorityClient, log *logger.Logger) *Poller {
	return &Poller{repo: repo, client: client, log: log.Component("poller")}
}

// Poll fetches the submission's remote status once. Records already in a
// terminal status short-circuit without any network call.
func (p *Poller) Poll(ctx context.Context, submissionUID string) error {
	sub, err := p.repo.GetBySubmissionUID(ctx, submissionUID)
	if err != nil {
		return fmt.Errorf("loading record for %s: %w", submissionUID, err)
	}
	if sub == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, submissionUID)
	}
	if sub.Status.IsTerminal() {
		p.log.Debug().Str("submissionUid", submissionUID).Str("status", string(sub.Status)).
			Msg("record already terminal, skipping poll")
		return nil
	}

	resp, err := p.client.GetSubmission(ctx, submissionUID, 1, 100)
	if err != nil {
		// 429 is absorbed by the throttle; anything reaching here is a real
		// failure and the queue decides whether to retry.
		return fmt.Errorf("polling %s: %w", submissionUID, err)
	}

	status, longID := p.interpret(sub.DocumentUUID, resp)

	if status == einvoice.StatusValid && longID == "" && sub.DocumentUUID != "" {
		// Some revisions omit longId on the submission view; the document
		// details endpoint always carries it.
		if details, derr := p.client.GetDocumentDetails(ctx, sub.DocumentUUID); derr == nil && details != nil {
			longID = details.LongID
		} else if derr != nil {
			p.log.Warn().Err(derr).Str("documentUuid", sub.DocumentUUID).
				Msg("could not fetch document details for longId")
		}
	}

	updated, err := p.repo.UpdateStatus(ctx, sub.ID, status, longID)
	if err != nil {
		return fmt.Errorf("recording status for %s: %w", submissionUID, err)
	}
	if !updated {
		p.log.Debug().Str("submissionUid", submissionUID).
			Msg("record reached a terminal status concurrently, poll result discarded")
		return nil
	}

	p.log.Info().Str("submissionUid", submissionUID).Str("status", string(status)).
		Msg("submission status updated")

	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrInProgress, submissionUID, status)
	}
	return nil
}

// interpret maps the remote response onto the local enum and extracts the
// public longId for this record's document.
//
// A decodable 200 with neither an overall status nor a document list is read
// as Valid. That is a heuristic: the sandbox environment is known to answer
// processed submissions with bodies the documented schema does not cover, and
// treating them as still-processing would poll forever.
func (p *Poller) interpret(documentUUID string, resp *myinvois.SubmissionStatusResponse) (einvoice.SubmissionStatus, string) {
	remote := resp.OverallStatus
	if remote == "" {
		remote = resp.Status
	}
	docs := resp.DocumentSummary
	if len(docs) == 0 {
		docs = resp.Documents
	}

	if remote == "" && len(docs) == 0 {
		p.log.Warn().Msg("empty status payload on 200 response, assuming Valid")
		return einvoice.StatusValid, ""
	}

	status := einvoice.NormalizeRemoteStatus(remote)

	var longID string
	for _, d := range docs {
		if documentUUID != "" && d.UUID != documentUUID {
			continue
		}
		if remote == "" {
			status = einvoice.NormalizeRemoteStatus(d.Status)
		}
		longID = d.LongID
		break
	}
	return status, longID
}
