package filing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harithzainudin/invois-gateway/internal/application/filing"
	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
)

func seedValid(t *testing.T, repo *memRepo) *entity.Submission {
	t.Helper()
	sub := &entity.Submission{
		ID:            "rec-1",
		FilePath:      "/in/inv001.xlsx",
		InvoiceNumber: "INV001",
		DocumentUUID:  "DOC-AAA",
		SubmissionUID: "SUB-001",
		Status:        einvoice.StatusValid,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, repo.Upsert(context.Background(), sub))
	return sub
}

// TestCancel_Success: cancellation is the one transition allowed out of a
// terminal status, and it must be recorded with its timestamp.
func TestCancel_Success(t *testing.T) {
	repo := newMemRepo()
	seedValid(t, repo)
	client := &fakeClient{}
	o := newOrchestrator(client, repo, &fakeScheduler{}, filing.Options{})

	require.NoError(t, o.Cancel(context.Background(), "DOC-AAA", "wrong buyer details"))

	rec := repo.mustGet("rec-1")
	assert.Equal(t, einvoice.StatusCancelled, rec.Status)
	require.NotNil(t, rec.DateCancelled)
	assert.Equal(t, 1, client.cancelCalls)
}

func TestCancel_UnknownDocument(t *testing.T) {
	o := newOrchestrator(&fakeClient{}, newMemRepo(), &fakeScheduler{}, filing.Options{})

	err := o.Cancel(context.Background(), "DOC-MISSING", "reason")
	assert.ErrorIs(t, err, filing.ErrNotFound)
}

// TestCancel_Idempotent: cancelling an already-cancelled document is a no-op
// without a second authority call.
func TestCancel_Idempotent(t *testing.T) {
	repo := newMemRepo()
	sub := seedValid(t, repo)
	sub.Status = einvoice.StatusCancelled
	require.NoError(t, repo.Upsert(context.Background(), sub))

	client := &fakeClient{}
	o := newOrchestrator(client, repo, &fakeScheduler{}, filing.Options{})

	require.NoError(t, o.Cancel(context.Background(), "DOC-AAA", "again"))
	assert.Zero(t, client.cancelCalls)
}

// TestCancel_AuthorityRefusal: outside the authority's cancellation window
// the API call fails and the local record must stay untouched.
func TestCancel_AuthorityRefusal(t *testing.T) {
	repo := newMemRepo()
	seedValid(t, repo)
	client := &fakeClient{cancelErr: assert.AnError}
	o := newOrchestrator(client, repo, &fakeScheduler{}, filing.Options{})

	err := o.Cancel(context.Background(), "DOC-AAA", "too late")
	require.Error(t, err)

	rec := repo.mustGet("rec-1")
	assert.Equal(t, einvoice.StatusValid, rec.Status)
	assert.Nil(t, rec.DateCancelled)
}
