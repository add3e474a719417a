package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(store Store) *Engine {
	e := NewEngine(store, discardLogger())
	e.now = func() time.Time { return testNow }
	return e
}

func activePass(id uint64, maxUses uint32) *model.Pass {
	return &model.Pass{
		ID:          id,
		Kind:        model.PassKindPreApproval,
		Secret:      "secret-1",
		Status:      model.PassStatusActive,
		FlatID:      7,
		SocietyID:   1,
		VisitorName: "Ravi Kumar",
		Purpose:     "guest",
		MaxUses:     maxUses,
		ValidFrom:   testNow.Add(-time.Hour),
		ValidUntil:  testNow.Add(time.Hour),
		CreatedBy:   42,
	}
}

var guard = Identity{UserID: 9, Role: model.RoleGuard, SocietyID: 1}

func TestRedeemRecordsEntry(t *testing.T) {
	store := newMemStore()
	store.addPass(activePass(1, 3))
	eng := newTestEngine(store)

	res, err := eng.Redeem(context.Background(), "secret-1", guard)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	assert.Equal(t, uint32(2), res.RemainingUses)
	assert.Equal(t, model.EntryStatusAdmitted, res.Entry.Status)
	assert.Equal(t, "Pre-approval pass", res.Entry.ApprovalReason)
	assert.False(t, res.Entry.AutoApproved)
	assert.Equal(t, guard.UserID, res.Entry.GuardID)
	require.NotNil(t, res.Entry.PassID)
	assert.Equal(t, uint64(1), *res.Entry.PassID)
	assert.Equal(t, testNow, res.Entry.CheckInAt)

	p := store.passes["secret-1"]
	assert.Equal(t, uint32(1), p.UsedCount)
	assert.Equal(t, model.PassStatusActive, p.Status)
}

func TestRedeemConcurrentQuota(t *testing.T) {
	store := newMemStore()
	store.addPass(activePass(1, 3))
	eng := newTestEngine(store)

	const scans = 10
	var wg sync.WaitGroup
	results := make([]error, scans)
	remaining := make(chan uint32, scans)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := eng.Redeem(context.Background(), "secret-1", guard)
			results[i] = err
			if err == nil {
				remaining <- res.RemainingUses
			}
		}(i)
	}
	wg.Wait()
	close(remaining)

	wins, exhausted := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrInvalidState):
			// Losers observing the committed USED flip fail on status.
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, wins)
	assert.Equal(t, scans-3, exhausted)

	var seen []int
	for r := range remaining {
		seen = append(seen, int(r))
	}
	sort.Ints(seen)
	assert.Equal(t, []int{0, 1, 2}, seen)

	p := store.passes["secret-1"]
	assert.Equal(t, uint32(3), p.UsedCount)
	assert.Equal(t, model.PassStatusUsed, p.Status)
	assert.Len(t, store.entries, 3)
}

func TestRedeemSingleUse(t *testing.T) {
	store := newMemStore()
	p := activePass(1, 1)
	p.Kind = model.PassKindGatePass
	p.Status = model.PassStatusApproved
	store.addPass(p)
	eng := newTestEngine(store)

	const scans = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Redeem(context.Background(), "secret-1", guard)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				assert.Equal(t, uint32(0), res.RemainingUses)
				assert.Equal(t, "Gate pass", res.Entry.ApprovalReason)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, model.PassStatusUsed, store.passes["secret-1"].Status)
	assert.Len(t, store.entries, 1)
}

func TestRedeemNotFound(t *testing.T) {
	eng := newTestEngine(newMemStore())
	_, err := eng.Redeem(context.Background(), "unknown", guard)
	assert.ErrorIs(t, err, ErrPassNotFound)
}

func TestRedeemTenantMismatch(t *testing.T) {
	store := newMemStore()
	store.addPass(activePass(1, 1))
	eng := newTestEngine(store)

	other := Identity{UserID: 9, Role: model.RoleGuard, SocietyID: 2}
	_, err := eng.Redeem(context.Background(), "secret-1", other)
	assert.ErrorIs(t, err, ErrTenantMismatch)

	p := store.passes["secret-1"]
	assert.Equal(t, uint32(0), p.UsedCount)
	assert.Empty(t, store.entries)
}

func TestRedeemInvalidState(t *testing.T) {
	cases := []struct {
		name   string
		kind   string
		status string
	}{
		{"cancelled", model.PassKindPreApproval, model.PassStatusCancelled},
		{"rejected", model.PassKindGatePass, model.PassStatusRejected},
		{"pending approval", model.PassKindGatePass, model.PassStatusPending},
		{"already used", model.PassKindPreApproval, model.PassStatusUsed},
		{"already expired", model.PassKindPreApproval, model.PassStatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			p := activePass(1, 1)
			p.Kind = tc.kind
			p.Status = tc.status
			store.addPass(p)
			eng := newTestEngine(store)

			_, err := eng.Redeem(context.Background(), "secret-1", guard)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, tc.status, store.passes["secret-1"].Status)
			assert.Empty(t, store.entries)
		})
	}
}

func TestRedeemNotYetValid(t *testing.T) {
	store := newMemStore()
	p := activePass(1, 1)
	p.ValidFrom = testNow.Add(time.Hour)
	p.ValidUntil = testNow.Add(2 * time.Hour)
	store.addPass(p)
	eng := newTestEngine(store)

	_, err := eng.Redeem(context.Background(), "secret-1", guard)
	assert.ErrorIs(t, err, ErrNotYetValid)
	assert.Equal(t, model.PassStatusActive, store.passes["secret-1"].Status)
}

func TestRedeemExpiredFlipsStatus(t *testing.T) {
	store := newMemStore()
	p := activePass(1, 1)
	p.ValidFrom = testNow.Add(-2 * time.Hour)
	p.ValidUntil = testNow.Add(-time.Hour)
	store.addPass(p)
	eng := newTestEngine(store)

	_, err := eng.Redeem(context.Background(), "secret-1", guard)
	assert.ErrorIs(t, err, ErrExpired)
	// The flip commits even though the scan failed.
	assert.Equal(t, model.PassStatusExpired, store.passes["secret-1"].Status)

	// The next scan fails on status alone.
	_, err = eng.Redeem(context.Background(), "secret-1", guard)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRedeemQuotaExhaustedFlipsStatus(t *testing.T) {
	store := newMemStore()
	p := activePass(1, 2)
	p.UsedCount = 2 // counter spent but status never flipped
	store.addPass(p)
	eng := newTestEngine(store)

	_, err := eng.Redeem(context.Background(), "secret-1", guard)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, model.PassStatusUsed, store.passes["secret-1"].Status)
	assert.Empty(t, store.entries)
}

func TestRedeemWindowBoundsInclusive(t *testing.T) {
	store := newMemStore()
	p := activePass(1, 2)
	p.ValidFrom = testNow
	p.ValidUntil = testNow
	store.addPass(p)
	eng := newTestEngine(store)

	// now == ValidFrom == ValidUntil is inside the window.
	_, err := eng.Redeem(context.Background(), "secret-1", guard)
	assert.NoError(t, err)
}
