package model

import "time"

// Pass kinds.  A pre-approval is created directly by a resident and is
// scannable immediately; a gate pass must first pass through the admin
// approval workflow before it becomes scannable.
const (
	PassKindPreApproval = "PREAPPROVAL"
	PassKindGatePass    = "GATEPASS"
)

// Pass statuses.  ACTIVE and APPROVED are the only scannable states;
// USED, EXPIRED, CANCELLED and REJECTED are terminal.  PENDING applies
// to gate passes awaiting admin review.
const (
	PassStatusPending   = "PENDING"
	PassStatusApproved  = "APPROVED"
	PassStatusActive    = "ACTIVE"
	PassStatusUsed      = "USED"
	PassStatusExpired   = "EXPIRED"
	PassStatusCancelled = "CANCELLED"
	PassStatusRejected  = "REJECTED"
)

// Pass represents a redeemable gate authorization as stored in the
// `passes` table.  One row covers both pre-approval QR codes and gate
// passes; the Kind column selects the lifecycle.  Only the redemption
// engine and explicit owner cancellation may mutate Status/UsedCount.
//
// Fields:
//  ID           – primary key identifier.
//  Kind         – PREAPPROVAL or GATEPASS.
//  Secret       – unique, unguessable string embedded in the QR code.
//  Status       – lifecycle state (see constants above).
//  FlatID       – flat the visitor is headed to.
//  SocietyID    – owning society; redemptions must match the guard's society.
//  VisitorName  – visitor display name, copied into the entry on admission.
//  VisitorPhone – visitor contact number.
//  Purpose      – free-text visit purpose (e.g. "guest", "delivery").
//  MaxUses      – admission quota, always >= 1.  Gate passes are created with 1.
//  UsedCount    – admissions consumed so far; invariant 0 <= UsedCount <= MaxUses.
//  ValidFrom    – start of the admission window (UTC).
//  ValidUntil   – end of the admission window (UTC).
//  CreatedBy    – user who created the pass.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last modification timestamp.
type Pass struct {
	ID           uint64     `json:"id"`
	Kind         string     `json:"kind"`
	Secret       string     `json:"secret,omitempty"`
	Status       string     `json:"status"`
	FlatID       uint64     `json:"flat_id"`
	SocietyID    uint64     `json:"society_id"`
	VisitorName  string     `json:"visitor_name"`
	VisitorPhone string     `json:"visitor_phone"`
	Purpose      string     `json:"purpose"`
	MaxUses      uint32     `json:"max_uses"`
	UsedCount    uint32     `json:"used_count"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidUntil   time.Time  `json:"valid_until"`
	CreatedBy    uint64     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ScannableStatus returns the status from which this pass may be
// redeemed: APPROVED for gate passes, ACTIVE for pre-approvals.
func (p *Pass) ScannableStatus() string {
	if p.Kind == PassKindGatePass {
		return PassStatusApproved
	}
	return PassStatusActive
}

// SingleUse reports whether the pass consumes its entire quota on the
// first redemption.  Gate passes are single use; pre-approvals are
// single use only when their quota is 1.
func (p *Pass) SingleUse() bool {
	return p.Kind == PassKindGatePass || p.MaxUses <= 1
}

// Terminal reports whether the status permits no further mutation.
func (p *Pass) Terminal() bool {
	switch p.Status {
	case PassStatusUsed, PassStatusExpired, PassStatusCancelled, PassStatusRejected:
		return true
	}
	return false
}
