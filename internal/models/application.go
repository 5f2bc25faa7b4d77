package models

import (
	"time"
)

// Status is an application's position in the processing pipeline.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusFieldPending    Status = "field_pending"
	StatusFieldVerified   Status = "field_verified"
	StatusCentralReview   Status = "central_review"
	StatusApproved        Status = "approved"
	StatusDocumentPrinted Status = "document_printed"
	StatusDispatched      Status = "dispatched"
	StatusDelivered       Status = "delivered"
	StatusRejected        Status = "rejected"
)

// successors encodes the forward-only pipeline. Each status is reachable only
// from its immediate predecessor; "rejected" is additionally reachable from
// every pre-approval status.
var successors = map[Status][]Status{
	StatusSubmitted:       {StatusFieldPending, StatusRejected},
	StatusFieldPending:    {StatusFieldVerified, StatusRejected},
	StatusFieldVerified:   {StatusCentralReview, StatusRejected},
	StatusCentralReview:   {StatusApproved, StatusRejected},
	StatusApproved:        {StatusDocumentPrinted},
	StatusDocumentPrinted: {StatusDispatched},
	StatusDispatched:      {StatusDelivered},
	StatusDelivered:       {},
	StatusRejected:        {},
}

// IsValid reports whether s is a known pipeline status.
func (s Status) IsValid() bool {
	_, ok := successors[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusRejected
}

// CanTransitionTo reports whether next is an immediate legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range successors[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Kind is the enumerated service type an application belongs to.
type Kind string

const (
	KindNewID      Kind = "new_id"
	KindCorrection Kind = "correction"
	KindReprint    Kind = "reprint"
)

var kindCodes = map[Kind]string{
	KindNewID:      "NEW",
	KindCorrection: "COR",
	KindReprint:    "RPT",
}

// IsValid reports whether k is a known service kind.
func (k Kind) IsValid() bool {
	_, ok := kindCodes[k]
	return ok
}

// Code returns the short service code used in reference numbers.
func (k Kind) Code() string {
	return kindCodes[k]
}

// Actor identifies who caused a status change.
type Actor string

const (
	ActorCitizen Actor = "citizen"
	ActorSystem  Actor = "system"
	ActorOfficer Actor = "officer"
)

// TimelineEntry is one immutable step in an application's audit trail.
type TimelineEntry struct {
	Status    Status    `json:"status" dynamodbav:"status"`
	Label     string    `json:"label" dynamodbav:"label"`
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
	Actor     Actor     `json:"actor" dynamodbav:"actor"`
}

// Application is a citizen's request for an identity-document service.
// Status always equals the status of the last timeline entry, and the
// timeline is append-only starting with the submitted entry.
type Application struct {
	Reference           string            `json:"reference" dynamodbav:"reference"`
	Kind                Kind              `json:"kind" dynamodbav:"kind"`
	IdentityFingerprint string            `json:"-" dynamodbav:"identity_fingerprint"`
	Status              Status            `json:"status" dynamodbav:"application_status"`
	Name                string            `json:"name" dynamodbav:"name"`
	Phone               string            `json:"phone" dynamodbav:"phone"`
	Payload             map[string]string `json:"payload,omitempty" dynamodbav:"payload,omitempty"`
	Note                string            `json:"note,omitempty" dynamodbav:"note,omitempty"`
	SubmittedAt         time.Time         `json:"submitted_at" dynamodbav:"submitted_at"`
	UpdatedAt           time.Time         `json:"updated_at" dynamodbav:"updated_at"`
	Timeline            []TimelineEntry   `json:"timeline" dynamodbav:"timeline"`
}

func (a *Application) GetPK() string {
	return "APP#" + a.Reference
}

func (a *Application) GetSK() string {
	return "METADATA"
}
