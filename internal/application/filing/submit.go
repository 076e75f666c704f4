package filing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
	"github.com/harithzainudin/invois-gateway/internal/domain/repository"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

// Options tune the orchestrator per deployment.
type Options struct {
	// SchemaVersion selects the canonical shape: "1.0" unsigned, "1.1" signed.
	SchemaVersion string
	// ValidateTINs enables the remote taxpayer check during prevalidation.
	// The validate endpoint's budget is the tightest of the API, so this is
	// off by default and the local format gate always runs.
	ValidateTINs bool
	// PollDelay is how long after acceptance the first status poll runs.
	PollDelay time.Duration
}

// Orchestrator drives one spreadsheet's documents through the full filing
// cycle:
//
//	prevalidate → map to canonical JSON → sign → hash+encode → submit →
//	persist Submitted → schedule poll
//
// Prevalidation is all-or-nothing: if any document in the batch fails, no
// submission call is made for any of them.
type Orchestrator struct {
	mapper    *myinvois.Mapper
	preparer  *myinvois.Preparer
	client    AuthorityClient
	repo      repository.SubmissionRepository
	scheduler PollScheduler
	parser    *myinvois.ErrorParser
	log       *logger.Logger
	opts      Options
}

// NewOrchestrator wires the orchestrator with all its dependencies.
func NewOrchestrator(
	mapper *myinvois.Mapper,
	preparer *myinvois.Preparer,
	client AuthorityClient,
	repo repository.SubmissionRepository,
	scheduler PollScheduler,
	log *logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.SchemaVersion == "" {
		opts.SchemaVersion = myinvois.SchemaVersionSigned
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = 5 * time.Second
	}
	return &Orchestrator{
		mapper:    mapper,
		preparer:  preparer,
		client:    client,
		repo:      repo,
		scheduler: scheduler,
		parser:    myinvois.NewErrorParser(),
		log:       log.Component("filing"),
		opts:      opts,
	}
}

// SubmitInput is one consumed spreadsheet ready for filing.
type SubmitInput struct {
	FilePath  string
	FileName  string
	Documents []einvoice.Document
}

// Result reports the authority's intake decision for a submission.
type Result struct {
	SubmissionUID string
	InvoiceNumber string
	DocumentUUID  string
	Status        einvoice.SubmissionStatus
	Errors        []myinvois.ValidationError
}

// PrevalidationError aborts a batch before any submission call. Violations
// cover every failing document, not just the first.
type PrevalidationError struct {
	Violations []string
}

func (e *PrevalidationError) Error() string {
	return fmt.Sprintf("prevalidation failed: %s", strings.Join(e.Violations, "; "))
}

// tinPattern is the local TIN format gate: an uppercase category prefix
// followed by the numeric body, e.g. C1234567890 or EI00000000010.
var tinPattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{9,12}$`)

// Submit runs the full filing cycle for one file. The returned Result is nil
// when the batch never reached the authority (prevalidation, mapping or
// preparation failure).
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	if len(in.Documents) == 0 {
		return nil, &PrevalidationError{Violations: []string{"file contains no documents"}}
	}

	// ═══════════════════════════════════════════════════════════════════
	// 1. Prevalidation, all-or-nothing across the whole batch
	// ═══════════════════════════════════════════════════════════════════
	if err := o.prevalidate(ctx, in.Documents); err != nil {
		o.log.Warn().Str("file", in.FileName).Err(err).Msg("batch rejected before submission")
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════
	// 2. Map to canonical JSON and prepare the signed envelope
	// ═══════════════════════════════════════════════════════════════════
	canonical, err := o.mapper.Map(in.Documents, o.opts.SchemaVersion)
	if err != nil {
		return nil, err
	}
	envelope, invoiceNo, err := o.preparer.Prepare(canonical, o.opts.SchemaVersion)
	if err != nil {
		return nil, err
	}
	envelopes := []myinvois.DocumentEnvelope{*envelope}
	if err := myinvois.ValidateBatch(envelopes); err != nil {
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════════
	// 3. Persist the record before the network call so a crash mid-submit
	//    leaves a traceable row
	// ═══════════════════════════════════════════════════════════════════
	sub, err := o.repo.GetByFilePath(ctx, in.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading submission record: %w", err)
	}
	if sub == nil {
		sub = newSubmission(in)
	}
	if sub.Status.IsTerminal() {
		// A terminal record is never downgraded; re-filing a completed file
		// is a caller mistake, not a retry.
		o.log.Info().Str("file", in.FileName).Str("status", string(sub.Status)).
			Msg("record already terminal, skipping re-submission")
		return &Result{
			SubmissionUID: sub.SubmissionUID,
			InvoiceNumber: sub.InvoiceNumber,
			DocumentUUID:  sub.DocumentUUID,
			Status:        sub.Status,
		}, nil
	}

	// A record the authority already accepted keeps its Submitted status
	// until the poller settles the verdict. Re-filing still goes out, but
	// neither the Processing overwrite nor a later intake rejection or
	// transport failure may regress what was recorded.
	alreadyAccepted := sub.Status == einvoice.StatusSubmitted
	sub.InvoiceNumber = invoiceNo
	if !alreadyAccepted {
		sub.Status = einvoice.StatusProcessing
	}
	sub.UpdatedAt = time.Now()
	if err := o.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("persisting submission record: %w", err)
	}

	// ═══════════════════════════════════════════════════════════════════
	// 4. Submit and interpret the intake decision
	// ═══════════════════════════════════════════════════════════════════
	resp, err := o.client.SubmitDocuments(ctx, envelopes)
	if err != nil {
		o.markFailed(ctx, sub, alreadyAccepted, err)
		return nil, err
	}
	if resp == nil || (len(resp.AcceptedDocuments) == 0 && len(resp.RejectedDocuments) == 0) {
		shapeErr := &myinvois.InvalidResponseShapeError{
			Endpoint: "documentsubmissions",
			Reason:   "success response named neither accepted nor rejected documents",
		}
		o.markFailed(ctx, sub, alreadyAccepted, shapeErr)
		return nil, shapeErr
	}

	if len(resp.RejectedDocuments) > 0 {
		return o.handleRejection(ctx, sub, resp, alreadyAccepted)
	}
	return o.handleAcceptance(ctx, sub, resp)
}

// prevalidate applies the local gates to every document and, when enabled,
// the remote taxpayer check. Violations accumulate so the caller sees the
// whole batch's problems at once.
func (o *Orchestrator) prevalidate(ctx context.Context, docs []einvoice.Document) error {
	var violations []string
	for i, d := range docs {
		label := d.Header.InvoiceNo
		if label == "" {
			label = fmt.Sprintf("document %d", i+1)
			violations = append(violations, label+": missing invoice number")
		}
		if !tinPattern.MatchString(d.Supplier.TIN) {
			violations = append(violations, fmt.Sprintf("%s: supplier TIN %q is not a valid TIN", label, d.Supplier.TIN))
		}
		if !tinPattern.MatchString(d.Buyer.TIN) {
			violations = append(violations, fmt.Sprintf("%s: buyer TIN %q is not a valid TIN", label, d.Buyer.TIN))
		}
		if len(d.Items) == 0 {
			violations = append(violations, label+": no line items")
		}
	}
	if len(violations) > 0 {
		return &PrevalidationError{Violations: violations}
	}

	if !o.opts.ValidateTINs {
		return nil
	}
	for _, d := range docs {
		if err := o.client.ValidateTaxpayerTIN(ctx, d.Buyer.TIN, d.Buyer.IDType, d.Buyer.IDValue); err != nil {
			violations = append(violations,
				fmt.Sprintf("%s: buyer TIN %s failed taxpayer validation: %v", d.Header.InvoiceNo, d.Buyer.TIN, err))
		}
	}
	if len(violations) > 0 {
		return &PrevalidationError{Violations: violations}
	}
	return nil
}

func (o *Orchestrator) handleAcceptance(ctx context.Context, sub *entity.Submission, resp *myinvois.SubmissionResponse) (*Result, error) {
	accepted := resp.AcceptedDocuments[0]

	now := time.Now()
	sub.SubmissionUID = resp.SubmissionUID
	sub.DocumentUUID = accepted.UUID
	sub.Status = einvoice.StatusSubmitted
	sub.DateSubmitted = &now
	sub.ErrorDetail = ""
	sub.UpdatedAt = now
	if err := o.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("recording acceptance: %w", err)
	}

	o.log.Info().
		Str("invoice", sub.InvoiceNumber).
		Str("submissionUid", resp.SubmissionUID).
		Str("documentUuid", accepted.UUID).
		Msg("submission accepted for validation")

	if err := o.scheduler.SchedulePoll(ctx, resp.SubmissionUID, o.opts.PollDelay); err != nil {
		// Losing the first poll only delays the status; the hourly
		// reconciler still promotes the record eventually.
		o.log.Error().Err(err).Str("submissionUid", resp.SubmissionUID).Msg("scheduling status poll failed")
	}

	return &Result{
		SubmissionUID: resp.SubmissionUID,
		InvoiceNumber: sub.InvoiceNumber,
		DocumentUUID:  accepted.UUID,
		Status:        einvoice.StatusSubmitted,
	}, nil
}

func (o *Orchestrator) handleRejection(ctx context.Context, sub *entity.Submission, resp *myinvois.SubmissionResponse, alreadyAccepted bool) (*Result, error) {
	var all []myinvois.ValidationError
	for _, rej := range resp.RejectedDocuments {
		all = append(all, o.parser.Parse(rej)...)
	}

	if alreadyAccepted {
		// The violations still reach the caller, but the recorded status is
		// the earlier acceptance and stays untouched.
		o.log.Warn().
			Str("invoice", sub.InvoiceNumber).
			Int("violations", len(all)).
			Msg("re-filed submission rejected at intake, keeping accepted record")
		return &Result{
			SubmissionUID: sub.SubmissionUID,
			InvoiceNumber: sub.InvoiceNumber,
			DocumentUUID:  sub.DocumentUUID,
			Status:        sub.Status,
			Errors:        all,
		}, nil
	}

	sub.Status = einvoice.StatusRejected
	sub.ErrorDetail = myinvois.SummarizeErrors(all)
	sub.UpdatedAt = time.Now()
	if err := o.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("recording rejection: %w", err)
	}

	o.log.Warn().
		Str("invoice", sub.InvoiceNumber).
		Int("violations", len(all)).
		Msg("submission rejected at intake")

	return &Result{
		InvoiceNumber: sub.InvoiceNumber,
		Status:        einvoice.StatusRejected,
		Errors:        all,
	}, nil
}

func (o *Orchestrator) markFailed(ctx context.Context, sub *entity.Submission, alreadyAccepted bool, cause error) {
	if alreadyAccepted {
		o.log.Error().Err(cause).Str("id", sub.ID).Msg("re-filing an accepted record failed, keeping its status")
		return
	}
	if _, err := o.repo.UpdateStatus(ctx, sub.ID, einvoice.StatusFailed, ""); err != nil {
		o.log.Error().Err(err).Str("id", sub.ID).Msg("persisting failure status")
	}
	o.log.Error().Err(cause).Str("id", sub.ID).Msg("submission failed")
}

func newSubmission(in SubmitInput) *entity.Submission {
	now := time.Now()
	return &entity.Submission{
		ID:        uuid.NewString(),
		FilePath:  in.FilePath,
		FileName:  in.FileName,
		Status:    einvoice.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
