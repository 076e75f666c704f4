package filing

import (
	"context"
	"fmt"
	"time"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
)

// Cancel withdraws a document with the authority and records the
// cancellation locally. The uuid is the authority's document uuid; the
// authority only accepts cancellations within its own window (72h after
// validation), outside it the API call fails and the record is untouched.
func (o *Orchestrator) Cancel(ctx context.Context, documentUUID, reason string) error {
	sub, err := o.repo.GetByDocumentUUID(ctx, documentUUID)
	if err != nil {
		return fmt.Errorf("loading record for document %s: %w", documentUUID, err)
	}
	if sub == nil {
		return fmt.Errorf("%w: document %s", ErrNotFound, documentUUID)
	}
	if sub.Status == einvoice.StatusCancelled {
		return nil
	}

	if err := o.client.CancelDocument(ctx, documentUUID, reason); err != nil {
		return fmt.Errorf("cancelling document %s: %w", documentUUID, err)
	}

	if err := o.repo.MarkCancelled(ctx, sub.ID, time.Now()); err != nil {
		return fmt.Errorf("recording cancellation for %s: %w", documentUUID, err)
	}

	o.log.Info().Str("documentUuid", documentUUID).Str("reason", reason).Msg("document cancelled")
	return nil
}

// Details fetches the authority's detailed view of one document, including
// per-step validation verdicts and the public longId.
func (o *Orchestrator) Details(ctx context.Context, documentUUID string) (*myinvois.DocumentDetails, error) {
	return o.client.GetDocumentDetails(ctx, documentUUID)
}
