package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// RedemptionResult is returned for a successful scan: the admission
// that was recorded and how many uses the pass has left.
type RedemptionResult struct {
	Entry         *model.Entry `json:"entry"`
	RemainingUses uint32       `json:"remaining_uses"`
}

// Engine validates a scan attempt against a pass row and atomically
// transitions it.  All checks and writes for one redemption happen in
// a single store transaction with the pass row locked, so among N
// concurrent scans of a pass with k remaining uses exactly min(N, k)
// succeed.  The engine never retries on contention; the loser's
// outcome (quota exhausted, invalid state, transient) is the answer.
type Engine struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewEngine constructs an Engine.  The logger may not be nil; pass a
// discard logger in tests.
func NewEngine(store Store, log *slog.Logger) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{store: store, log: log.With(slog.String("mod", "gate")), now: time.Now}
}

// Redeem consumes one unit of the pass identified by secret on behalf
// of the scanning guard and records the admission.  Validation order:
// existence, tenant scope, scannable status, validity window, quota.
// The window and quota checks may flip the pass to EXPIRED/USED as a
// side effect; those flips commit even though the scan itself fails,
// so the state stays observable and later scans fail on status alone.
func (e *Engine) Redeem(ctx context.Context, secret string, guard Identity) (*RedemptionResult, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin redemption: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := tx.PassBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}

	if p.SocietyID != guard.SocietyID {
		e.log.Warn("cross-tenant scan rejected",
			slog.Uint64("pass_id", p.ID),
			slog.Uint64("pass_society", p.SocietyID),
			slog.Uint64("guard_society", guard.SocietyID))
		return nil, ErrTenantMismatch
	}

	if p.Status != p.ScannableStatus() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, describeStatus(p.Status))
	}

	now := e.now().UTC()
	if now.Before(p.ValidFrom) {
		return nil, ErrNotYetValid
	}
	if now.After(p.ValidUntil) {
		// Lazy expiry: flip the status inside this transaction so the
		// owner sees EXPIRED and the next scan fails at the status check.
		if err := tx.SetPassStatus(ctx, p.ID, model.PassStatusExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, ErrExpired
	}

	if p.UsedCount >= p.MaxUses {
		// A concurrent winner consumed the last use but its status flip
		// was not observed; the counter is authoritative.
		if p.Status != model.PassStatusUsed {
			if err := tx.SetPassStatus(ctx, p.ID, model.PassStatusUsed); err != nil {
				return nil, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, ErrQuotaExhausted
	}

	newUsed := p.UsedCount + 1
	newStatus := p.Status
	if newUsed >= p.MaxUses {
		newStatus = model.PassStatusUsed
	}
	ok, err := tx.UpdatePassUsage(ctx, p.ID, p.Status, p.UsedCount, newStatus, newUsed)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The guarded state moved despite the row lock; surface as
		// retryable rather than guessing the business outcome.
		return nil, ErrTransient
	}

	entry := &model.Entry{
		SocietyID:      p.SocietyID,
		FlatID:         p.FlatID,
		PassID:         &p.ID,
		VisitorName:    p.VisitorName,
		VisitorPhone:   p.VisitorPhone,
		Purpose:        p.Purpose,
		Status:         model.EntryStatusAdmitted,
		GuardID:        guard.UserID,
		AutoApproved:   false,
		ApprovalReason: passReason(p.Kind),
		CheckInAt:      now,
	}
	if err := tx.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	e.log.Info("pass redeemed",
		slog.Uint64("pass_id", p.ID),
		slog.Uint64("entry_id", entry.ID),
		slog.Uint64("guard_id", guard.UserID),
		slog.Int("remaining", int(p.MaxUses-newUsed)))
	return &RedemptionResult{Entry: entry, RemainingUses: p.MaxUses - newUsed}, nil
}

// describeStatus names the state that blocked a scan for the
// InvalidState message.
func describeStatus(status string) string {
	switch status {
	case model.PassStatusCancelled:
		return "pass was cancelled"
	case model.PassStatusRejected:
		return "pass was rejected"
	case model.PassStatusPending:
		return "pass awaiting approval"
	case model.PassStatusUsed:
		return "pass already fully used"
	case model.PassStatusExpired:
		return "pass already expired"
	}
	return "pass in state " + status
}

// passReason labels token-based admissions so reporting can tell them
// apart from matcher and manual ones.
func passReason(kind string) string {
	if kind == model.PassKindGatePass {
		return "Gate pass"
	}
	return "Pre-approval pass"
}
