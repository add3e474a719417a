package model

import "time"

// AutoApproveRule is a standing instruction from a resident to admit
// couriers from the listed companies without asking, as stored in the
// `auto_approve_rules` table.  Rules are read-only from the gate's
// perspective; only the owning resident edits them.
//
// Fields:
//  ID        – primary key identifier.
//  FlatID    – flat the rule belongs to.
//  Companies – allowed company names (stored comma-separated).
//  Days      – optional day-of-week allowlist (MON..SUN); empty = all days.
//  TimeFrom  – optional window start as "HH:MM"; empty = no restriction.
//  TimeUntil – optional window end as "HH:MM".
//  Active    – inactive rules never match.
//  CreatedAt – creation timestamp.
type AutoApproveRule struct {
	ID        uint64    `json:"id"`
	FlatID    uint64    `json:"flat_id"`
	Companies []string  `json:"companies"`
	Days      []string  `json:"days,omitempty"`
	TimeFrom  string    `json:"time_from,omitempty"`
	TimeUntil string    `json:"time_until,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpectedDelivery is a one-shot expectation declared by a resident:
// "a parcel from this company arrives today, let it in".  Stored in
// the `expected_deliveries` table and consumed at most once by the
// matcher.
//
// Fields:
//  ID          – primary key identifier.
//  FlatID      – flat expecting the delivery.
//  Company     – courier/company tag matched against the guard's input.
//  ExpectedOn  – date the delivery is valid for.
//  AutoApprove – when false the record is informational only.
//  Used        – set atomically when the matcher claims the record.
//  CreatedAt   – creation timestamp.
type ExpectedDelivery struct {
	ID          uint64    `json:"id"`
	FlatID      uint64    `json:"flat_id"`
	Company     string    `json:"company"`
	ExpectedOn  time.Time `json:"expected_on"`
	AutoApprove bool      `json:"auto_approve"`
	Used        bool      `json:"used"`
	CreatedAt   time.Time `json:"created_at"`
}
