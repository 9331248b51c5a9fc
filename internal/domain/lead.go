package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is what the lead flow collects after a quote. Company is optional:
// an empty value means the user skipped it, never that the step was left
// pending.
type Contact struct {
	Name    string
	Point   ContactPoint
	Company string
}

// Lead is a completed conversation forwarded to a human operator. Records are
// immutable once appended.
type Lead struct {
	ID        string
	Timestamp time.Time
	UserID    string
	Contact   Contact
	Cargo     CargoSpec
	Quote     *Quote
}

// CalculationRecord marks one quote computation, completed or abandoned.
// Step is StepCompleted for shown quotes, or the last-reached step for
// sessions that never got there.
type CalculationRecord struct {
	ID        string
	Timestamp time.Time
	UserID    string
	Step      Step
	Cargo     CargoSpec
	Quote     *Quote
}

type UploadStatus string

const (
	UploadSucceeded UploadStatus = "succeeded"
	UploadRejected  UploadStatus = "rejected"
	UploadFailed    UploadStatus = "failed"
)

// UploadRecord is an audit entry for one rate-table upload attempt.
type UploadRecord struct {
	Timestamp  time.Time
	UserID     string
	Filename   string
	Kind       TariffKind
	Status     UploadStatus
	Detail     string
	Locations  int
	ValidUntil *time.Time
}

func NewLeadID() string        { return "REQ-" + uuid.NewString() }
func NewCalculationID() string { return "CALC-" + uuid.NewString() }
