package myinvois

// Wire types for the MyInvois REST endpoints.

// SubmissionRequest is the POST /documentsubmissions body.
type SubmissionRequest struct {
	Documents []DocumentEnvelope `json:"documents"`
}

// SubmissionResponse partitions the batch into accepted and rejected
// documents. A response carrying neither list is a contract violation.
type SubmissionResponse struct {
	SubmissionUID     string             `json:"submissionUid"`
	AcceptedDocuments []AcceptedDocument `json:"acceptedDocuments"`
	RejectedDocuments []RejectedDocument `json:"rejectedDocuments"`
}

// AcceptedDocument is one document the authority took for validation.
type AcceptedDocument struct {
	UUID              string `json:"uuid"`
	InvoiceCodeNumber string `json:"invoiceCodeNumber"`
}

// RejectedDocument is one document refused at intake.
type RejectedDocument struct {
	UUID              string      `json:"uuid,omitempty"`
	InvoiceCodeNumber string      `json:"invoiceCodeNumber,omitempty"`
	Error             RemoteError `json:"error"`
}

// RemoteError is the authority's nested error payload. The message frequently
// packs several violations behind sentinel tokens; Details may nest further.
type RemoteError struct {
	Code         string        `json:"code,omitempty"`
	Message      string        `json:"message,omitempty"`
	Target       string        `json:"target,omitempty"`
	PropertyPath string        `json:"propertyPath,omitempty"`
	Details      []RemoteError `json:"details,omitempty"`
}

// SubmissionStatusResponse is GET /documentsubmissions/{uid}. Field naming
// varies between API revisions, hence the overlapping pairs.
type SubmissionStatusResponse struct {
	OverallStatus   string                  `json:"overallStatus,omitempty"`
	Status          string                  `json:"status,omitempty"`
	DocumentSummary []DocumentStatusSummary `json:"documentSummary,omitempty"`
	Documents       []DocumentStatusSummary `json:"documents,omitempty"`
}

// DocumentStatusSummary is one document's status within a submission.
type DocumentStatusSummary struct {
	UUID              string `json:"uuid"`
	LongID            string `json:"longId"`
	InvoiceCodeNumber string `json:"internalId,omitempty"`
	Status            string `json:"status,omitempty"`
}

// DocumentDetails is GET /documents/{uuid}/details.
type DocumentDetails struct {
	UUID              string      `json:"uuid"`
	SubmissionUID     string      `json:"submissionUid"`
	LongID            string      `json:"longId"`
	InvoiceCodeNumber string      `json:"internalId"`
	Status            string      `json:"status"`
	ValidationResults *Validation `json:"validationResults,omitempty"`
}

// Validation carries the per-step validation outcome on document details.
type Validation struct {
	Status          string           `json:"status"`
	ValidationSteps []ValidationStep `json:"validationSteps,omitempty"`
}

// ValidationStep is one named validator's verdict.
type ValidationStep struct {
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Error  *RemoteError `json:"error,omitempty"`
}

// CancelRequest is the PUT /documents/state/{uuid}/state body.
type CancelRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// TokenResponse is the identity service's client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}
