package filing_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
	"github.com/harithzainudin/invois-gateway/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes shared by the orchestrator and poller tests. The client counts every
// call so the tests can assert which endpoints were (and were not) reached.
// ──────────────────────────────────────────────────────────────────────────────

type fakeClient struct {
	submitResp  *myinvois.SubmissionResponse
	submitErr   error
	submitCalls int

	statusResp  *myinvois.SubmissionStatusResponse
	statusErr   error
	statusCalls int

	detailsResp  *myinvois.DocumentDetails
	detailsErr   error
	detailsCalls int

	cancelErr   error
	cancelCalls int

	tinErr   error
	tinCalls int
}

var _ filing.AuthorityClient = (*fakeClient)(nil)

func (f *fakeClient) SubmitDocuments(ctx context.Context, envelopes []myinvois.DocumentEnvelope) (*myinvois.SubmissionResponse, error) {
	f.submitCalls++
	return f.submitResp, f.submitErr
}

func (f *fakeClient) GetSubmission(ctx context.Context, submissionUID string, pageNo, pageSize int) (*myinvois.SubmissionStatusResponse, error) {
	f.statusCalls++
	return f.statusResp, f.statusErr
}

func (f *fakeClient) GetDocumentDetails(ctx context.Context, documentUUID string) (*myinvois.DocumentDetails, error) {
	f.detailsCalls++
	return f.detailsResp, f.detailsErr
}

func (f *fakeClient) CancelDocument(ctx context.Context, documentUUID, reason string) error {
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakeClient) ValidateTaxpayerTIN(ctx context.Context, tin, idType, idValue string) error {
	f.tinCalls++
	return f.tinErr
}

type scheduledPoll struct {
	submissionUID string
	delay         time.Duration
}

type fakeScheduler struct {
	polls []scheduledPoll
	err   error
}

var _ filing.PollScheduler = (*fakeScheduler)(nil)

func (f *fakeScheduler) SchedulePoll(ctx context.Context, submissionUID string, delay time.Duration) error {
	f.polls = append(f.polls, scheduledPoll{submissionUID: submissionUID, delay: delay})
	return f.err
}

// memRepo is an in-memory SubmissionRepository mirroring the SQL semantics
// the orchestrator relies on, in particular the terminal-status guard in
// UpdateStatus.
type memRepo struct {
	mu   sync.Mutex
	subs map[string]*entity.Submission // by ID
}

func newMemRepo() *memRepo {
	return &memRepo{subs: make(map[string]*entity.Submission)}
}

func (r *memRepo) Upsert(ctx context.Context, sub *entity.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *memRepo) GetByFilePath(ctx context.Context, filePath string) (*entity.Submission, error) {
	return r.find(func(s *entity.Submission) bool { return s.FilePath == filePath })
}

func (r *memRepo) GetBySubmissionUID(ctx context.Context, submissionUID string) (*entity.Submission, error) {
	return r.find(func(s *entity.Submission) bool { return s.SubmissionUID == submissionUID })
}

func (r *memRepo) GetByDocumentUUID(ctx context.Context, documentUUID string) (*entity.Submission, error) {
	return r.find(func(s *entity.Submission) bool { return s.DocumentUUID == documentUUID })
}

func (r *memRepo) find(match func(*entity.Submission) bool) (*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*entity.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Submission, 0, len(r.subs))
	for _, s := range r.subs {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id string, status einvoice.SubmissionStatus, longID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status.IsTerminal() {
		return false, nil
	}
	s.Status = status
	if longID != "" {
		s.LongID = longID
	}
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *memRepo) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		s.Status = einvoice.StatusCancelled
		s.DateCancelled = &at
		s.UpdatedAt = at
	}
	return nil
}

func (r *memRepo) PromoteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.subs {
		if s.Status == einvoice.StatusValid && s.UpdatedAt.Before(cutoff) {
			s.Status = einvoice.StatusCompleted
			n++
		}
	}
	return n, nil
}

// mustGet panics on a lookup miss; test-only convenience.
func (r *memRepo) mustGet(id string) entity.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		panic("no submission with id " + id)
	}
	return *s
}

func (r *memRepo) only() entity.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) != 1 {
		panic("expected exactly one submission record")
	}
	for _, s := range r.subs {
		return *s
	}
	return entity.Submission{}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// validDocument builds a filing-ready document that passes every local gate.
func validDocument(invoiceNo string) einvoice.Document {
	return einvoice.Document{
		Header: einvoice.Header{
			InvoiceNo:    invoiceNo,
			TypeCode:     einvoice.TypeInvoice,
			CurrencyCode: "MYR",
			IssueDate:    time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		},
		Supplier: einvoice.Party{
			Name:   "Alpha Trading Sdn Bhd",
			TIN:    "C1234567890",
			IDType: "BRN", IDValue: "202001012345",
			Address: einvoice.Address{Line: "12 Jalan Ampang", City: "Kuala Lumpur", PostalCode: "50450", State: "Kuala Lumpur"},
		},
		Buyer: einvoice.Party{
			Name:   "Beta Retail Sdn Bhd",
			TIN:    "C9876543210",
			IDType: "BRN", IDValue: "201901054321",
			Address: einvoice.Address{Line: "8 Lorong Haji Taib", City: "Ipoh", PostalCode: "30000", State: "Perak"},
		},
		Items: []einvoice.Item{{
			Description: "Consulting services",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			Subtotal:    decimal.RequireFromString("100.00"),
			TaxType:     "06",
		}},
		Summary: einvoice.Summary{
			TaxableAmount: decimal.RequireFromString("100.00"),
			TotalExclTax:  decimal.RequireFromString("100.00"),
			TotalInclTax:  decimal.RequireFromString("100.00"),
			PayableAmount: decimal.RequireFromString("100.00"),
		},
	}
}
