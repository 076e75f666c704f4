// Package entity contains the persisted domain records.
package entity

import (
	"time"

	"github.com/harithzainudin/invois-gateway/internal/domain/einvoice"
)

// Submission is the persisted record tracking one physical file through the
// MyInvois lifecycle. Keyed uniquely by FilePath: at most one record exists
// per file, re-submissions update it in place.
type Submission struct {
	ID            string // local UUID
	FilePath      string // unique key
	FileName      string
	InvoiceNumber string
	DocumentUUID  string // authority document uuid, set on acceptance
	SubmissionUID string // authority submission uid
	LongID        string // public validation-link id, set when Valid
	Status        einvoice.SubmissionStatus
	DateSubmitted *time.Time
	DateCancelled *time.Time
	ErrorDetail   string // last parsed rejection summary, if any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
