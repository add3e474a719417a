// Package gate implements the redemption engine and auto-approval
// matcher for gate passes.  Every failure a caller can recover from is
// one of the sentinel errors below so that handlers and tests can
// assert on the exact cause with errors.Is.
package gate

import "errors"

// ErrPassNotFound is returned when the scanned secret does not resolve
// to any pass.  Handlers should translate this into an HTTP 404.
var ErrPassNotFound = errors.New("pass not found")

// ErrTenantMismatch is returned when a guard scans a pass owned by a
// different society.  This signals a cross-tenant leakage attempt and
// is reported as HTTP 403, never silently ignored.
var ErrTenantMismatch = errors.New("pass belongs to another society")

// ErrInvalidState is returned when the pass is not in a scannable
// status.  The wrapped message names the offending state (cancelled,
// rejected, not yet approved, already used).
var ErrInvalidState = errors.New("pass not scannable")

// ErrNotYetValid is returned when the scan happens before the pass's
// validity window opens.
var ErrNotYetValid = errors.New("pass not yet valid")

// ErrExpired is returned when the scan happens after the validity
// window closed.  As a side effect the engine flips the pass to
// EXPIRED inside the same transaction, so the owner sees the final
// state and subsequent scans fail cheaply on status.
var ErrExpired = errors.New("pass expired")

// ErrQuotaExhausted is returned when used_count has already reached
// max_uses.  The engine flips the status to USED if a concurrent
// winner had not done so yet; the quota check is authoritative, not
// status alone.
var ErrQuotaExhausted = errors.New("pass quota exhausted")

// ErrTransient is returned for storage contention (lock wait timeout,
// deadlock victim).  It is safe for the caller to retry: a retry
// either finds the pass still scannable or correctly reports the
// terminal outcome.
var ErrTransient = errors.New("storage contention, retry")
