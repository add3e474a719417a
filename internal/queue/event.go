// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// EntryAdmittedEvent is published when a visitor is admitted at the
// gate, by pass redemption or by auto-approval.  It carries enough for
// downstream consumers to log or notify the resident without querying
// the primary database.
type EntryAdmittedEvent struct {
	EventID        string  `json:"event_id"`
	EntryID        uint64  `json:"entry_id"`
	SocietyID      uint64  `json:"society_id"`
	FlatID         uint64  `json:"flat_id"`
	PassID         *uint64 `json:"pass_id,omitempty"`
	VisitorName    string  `json:"visitor_name"`
	Purpose        string  `json:"purpose"`
	GuardID        uint64  `json:"guard_id"`
	AutoApproved   bool    `json:"auto_approved"`
	ApprovalReason string  `json:"approval_reason,omitempty"`
	RemainingUses  uint32  `json:"remaining_uses"`
	AdmittedAt     string  `json:"admitted_at"`
}

// NewEntryAdmittedEvent builds the event for an admitted entry.
func NewEntryAdmittedEvent(e *model.Entry, remaining uint32) EntryAdmittedEvent {
	return EntryAdmittedEvent{
		EventID:        uuid.NewString(),
		EntryID:        e.ID,
		SocietyID:      e.SocietyID,
		FlatID:         e.FlatID,
		PassID:         e.PassID,
		VisitorName:    e.VisitorName,
		Purpose:        e.Purpose,
		GuardID:        e.GuardID,
		AutoApproved:   e.AutoApproved,
		ApprovalReason: e.ApprovalReason,
		RemainingUses:  remaining,
		AdmittedAt:     e.CheckInAt.UTC().Format(time.RFC3339),
	}
}
