package model

import "time"

// Entry statuses.  ADMITTED entries have passed the gate; PENDING
// entries await resident action; DENIED entries were refused.  Checkout
// is recorded on the same row and never touches the originating pass.
const (
	EntryStatusAdmitted = "ADMITTED"
	EntryStatusPending  = "PENDING"
	EntryStatusDenied   = "DENIED"
)

// Approval reasons recorded on auto-approved entries.
const (
	ReasonExpectedDelivery = "Expected delivery"
	ReasonAutoApproveRule  = "Auto-approve rule"
)

// Entry is the admission record created when a visitor crosses the
// gate, as stored in the `entries` table.  Entries created by the
// redemption engine reference the originating pass and are immutable
// apart from the checkout timestamp.
//
// Fields:
//  ID             – primary key identifier.
//  SocietyID      – society at whose gate the entry was made.
//  FlatID         – destination flat.
//  PassID         – originating pass (nullable; manual entries carry none).
//  VisitorName    – visitor name copied from the pass or typed by the guard.
//  VisitorPhone   – visitor contact number.
//  Purpose        – visit purpose.
//  Status         – ADMITTED, PENDING or DENIED.
//  GuardID        – guard who recorded the entry.
//  AutoApproved   – true when the matcher admitted the visitor without a pass.
//  ApprovalReason – human-readable reason ("Expected delivery", ...).
//  CheckInAt      – admission timestamp (UTC).
//  CheckOutAt     – checkout timestamp (nullable).
type Entry struct {
	ID             uint64     `json:"id"`
	SocietyID      uint64     `json:"society_id"`
	FlatID         uint64     `json:"flat_id"`
	PassID         *uint64    `json:"pass_id,omitempty"`
	VisitorName    string     `json:"visitor_name"`
	VisitorPhone   string     `json:"visitor_phone"`
	Purpose        string     `json:"purpose"`
	Status         string     `json:"status"`
	GuardID        uint64     `json:"guard_id"`
	AutoApproved   bool       `json:"auto_approved"`
	ApprovalReason string     `json:"approval_reason,omitempty"`
	CheckInAt      time.Time  `json:"check_in_at"`
	CheckOutAt     *time.Time `json:"check_out_at,omitempty"`
}
