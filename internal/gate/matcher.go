package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// Matcher decides whether a visitor without a pass can be admitted
// automatically.  Two checks run in order, first match wins: a one-shot
// expected delivery for today (claimed atomically so two gates cannot
// both consume it), then the flat's standing auto-approve rules.  No
// match means the caller falls through to a PENDING entry.
type Matcher struct {
	store Store
	log   *slog.Logger
}

// NewMatcher constructs a Matcher over the shared gate store.
func NewMatcher(store Store, log *slog.Logger) *Matcher {
	if store == nil {
		panic("nil store passed to NewMatcher")
	}
	return &Matcher{store: store, log: log.With(slog.String("mod", "matcher"))}
}

var weekdayTags = map[time.Weekday]string{
	time.Monday:    "MON",
	time.Tuesday:   "TUE",
	time.Wednesday: "WED",
	time.Thursday:  "THU",
	time.Friday:    "FRI",
	time.Saturday:  "SAT",
	time.Sunday:    "SUN",
}

// Match evaluates the auto-approval checks for a company tag arriving
// at a flat.  It returns the approval reason and true when the visitor
// may be admitted without asking the resident.
func (m *Matcher) Match(ctx context.Context, flatID uint64, companyTag string, now time.Time) (string, bool, error) {
	tag := strings.TrimSpace(companyTag)
	if tag == "" {
		return "", false, nil
	}

	tx, err := m.store.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("begin match: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	claimed, err := tx.ClaimExpectedDelivery(ctx, flatID, tag, now)
	if err != nil {
		return "", false, err
	}
	if claimed {
		if err := tx.Commit(); err != nil {
			return "", false, err
		}
		committed = true
		m.log.Info("expected delivery claimed", slog.Uint64("flat_id", flatID), slog.String("company", tag))
		return model.ReasonExpectedDelivery, true, nil
	}

	rules, err := tx.ActiveRulesByFlat(ctx, flatID)
	if err != nil {
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	committed = true

	for _, r := range rules {
		if ruleMatches(&r, tag, now) {
			return model.ReasonAutoApproveRule, true, nil
		}
	}
	return "", false, nil
}

// ruleMatches checks one rule against the tag and timestamp: the
// company must be listed, today must be in the day allowlist when one
// is set, and the wall-clock time must fall inside the HH:MM window
// when one is set (lexical comparison, both bounds inclusive).
func ruleMatches(r *model.AutoApproveRule, tag string, now time.Time) bool {
	listed := false
	for _, c := range r.Companies {
		if strings.EqualFold(strings.TrimSpace(c), tag) {
			listed = true
			break
		}
	}
	if !listed {
		return false
	}
	if len(r.Days) > 0 {
		today := weekdayTags[now.Weekday()]
		found := false
		for _, d := range r.Days {
			if strings.EqualFold(strings.TrimSpace(d), today) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.TimeFrom != "" && r.TimeUntil != "" {
		hm := now.Format("15:04")
		if hm < r.TimeFrom || hm > r.TimeUntil {
			return false
		}
	}
	return true
}
