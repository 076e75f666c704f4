package dto

import (
	"time"

	"github.com/harithzainudin/invois-gateway/internal/domain/entity"
	"github.com/harithzainudin/invois-gateway/internal/infrastructure/myinvois"
)

// SubmitFileRequest files one already-consumed spreadsheet.
type SubmitFileRequest struct {
	FilePath string `json:"filePath" validate:"required"`
}

// CancelDocumentRequest withdraws a filed document.
type CancelDocumentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// SubmissionResponse is the API view of one submission record.
type SubmissionResponse struct {
	ID            string     `json:"id"`
	FilePath      string     `json:"filePath"`
	FileName      string     `json:"fileName"`
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
	DocumentUUID  string     `json:"documentUuid,omitempty"`
	SubmissionUID string     `json:"submissionUid,omitempty"`
	LongID        string     `json:"longId,omitempty"`
	Status        string     `json:"status"`
	DateSubmitted *time.Time `json:"dateSubmitted,omitempty"`
	DateCancelled *time.Time `json:"dateCancelled,omitempty"`
	ErrorDetail   string     `json:"errorDetail,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewSubmissionResponse maps the record to its API shape.
func NewSubmissionResponse(sub *entity.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:            sub.ID,
		FilePath:      sub.FilePath,
		FileName:      sub.FileName,
		InvoiceNumber: sub.InvoiceNumber,
		DocumentUUID:  sub.DocumentUUID,
		SubmissionUID: sub.SubmissionUID,
		LongID:        sub.LongID,
		Status:        string(sub.Status),
		DateSubmitted: sub.DateSubmitted,
		DateCancelled: sub.DateCancelled,
		ErrorDetail:   sub.ErrorDetail,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
}

// SubmissionListResponse is the paged listing body.
type SubmissionListResponse struct {
	Items []SubmissionResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// SubmitResultResponse reports the authority's intake decision.
type SubmitResultResponse struct {
	SubmissionUID string                     `json:"submissionUid,omitempty"`
	InvoiceNumber string                     `json:"invoiceNumber,omitempty"`
	DocumentUUID  string                     `json:"documentUuid,omitempty"`
	Status        string                     `json:"status"`
	Errors        []myinvois.ValidationError `json:"errors,omitempty"`
}
