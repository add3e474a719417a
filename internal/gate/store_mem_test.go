package gate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// memStore is an in-memory Store for engine and matcher tests.  A
// single mutex held from Begin to Commit/Rollback serializes
// transactions, which satisfies the row-lock contract the production
// MySQL store provides per pass row.
type memStore struct {
	mu          sync.Mutex
	passes      map[string]*model.Pass // keyed by secret
	entries     []*model.Entry
	rules       map[uint64][]model.AutoApproveRule
	deliveries  []*model.ExpectedDelivery
	nextEntryID uint64
}

func newMemStore() *memStore {
	return &memStore{
		passes: make(map[string]*model.Pass),
		rules:  make(map[uint64][]model.AutoApproveRule),
	}
}

func (s *memStore) addPass(p *model.Pass) {
	s.passes[p.Secret] = p
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	return &memTx{store: s}, nil
}

// memTx mutates the store in place and records undo closures so
// Rollback restores the pre-transaction state.
type memTx struct {
	store *memStore
	undo  []func()
	done  bool
}

func (t *memTx) PassBySecret(ctx context.Context, secret string) (*model.Pass, error) {
	p, ok := t.store.passes[secret]
	if !ok {
		return nil, ErrPassNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) UpdatePassUsage(ctx context.Context, passID uint64, expStatus string, expUsed uint32, newStatus string, newUsed uint32) (bool, error) {
	for _, p := range t.store.passes {
		if p.ID != passID {
			continue
		}
		if p.Status != expStatus || p.UsedCount != expUsed {
			return false, nil
		}
		prevStatus, prevUsed := p.Status, p.UsedCount
		p.Status, p.UsedCount = newStatus, newUsed
		t.undo = append(t.undo, func() { p.Status, p.UsedCount = prevStatus, prevUsed })
		return true, nil
	}
	return false, nil
}

func (t *memTx) SetPassStatus(ctx context.Context, passID uint64, status string) error {
	for _, p := range t.store.passes {
		if p.ID != passID {
			continue
		}
		prev := p.Status
		p.Status = status
		t.undo = append(t.undo, func() { p.Status = prev })
		return nil
	}
	return ErrPassNotFound
}

func (t *memTx) InsertEntry(ctx context.Context, e *model.Entry) error {
	t.store.nextEntryID++
	e.ID = t.store.nextEntryID
	t.store.entries = append(t.store.entries, e)
	t.undo = append(t.undo, func() {
		t.store.entries = t.store.entries[:len(t.store.entries)-1]
		t.store.nextEntryID--
	})
	return nil
}

func (t *memTx) ClaimExpectedDelivery(ctx context.Context, flatID uint64, company string, day time.Time) (bool, error) {
	y, m, d := day.UTC().Date()
	for _, del := range t.store.deliveries {
		dy, dm, dd := del.ExpectedOn.UTC().Date()
		if del.FlatID != flatID || del.Used || !del.AutoApprove {
			continue
		}
		if !strings.EqualFold(del.Company, company) || dy != y || dm != m || dd != d {
			continue
		}
		del.Used = true
		claimed := del
		t.undo = append(t.undo, func() { claimed.Used = false })
		return true, nil
	}
	return false, nil
}

func (t *memTx) ActiveRulesByFlat(ctx context.Context, flatID uint64) ([]model.AutoApproveRule, error) {
	var out []model.AutoApproveRule
	for _, r := range t.store.rules[flatID] {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}
