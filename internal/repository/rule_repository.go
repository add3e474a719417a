package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Agastya221/society-gate-backend/internal/model"
)

// RuleRepo provides persistence for auto-approve rules.  Companies and
// days are stored as comma-separated lists; the matcher never writes
// rules, so there are no concurrency concerns here.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo returns a new RuleRepo bound to the given database.
func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func joinList(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Create inserts a rule and populates the generated ID.
func (r *RuleRepo) Create(ctx context.Context, rule *model.AutoApproveRule) error {
	const q = `INSERT INTO auto_approve_rules
		(flat_id, companies, days, time_from, time_until, active)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rule.FlatID, joinList(rule.Companies),
		joinList(rule.Days), rule.TimeFrom, rule.TimeUntil, rule.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// ActiveByFlatTx returns the active rules for a flat within the
// provided transaction; the matcher reads rules in the same unit of
// work that claims expected deliveries.
func (r *RuleRepo) ActiveByFlatTx(ctx context.Context, tx *sql.Tx, flatID uint64) ([]model.AutoApproveRule, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, flat_id, companies, days, time_from, time_until, active, created_at
		 FROM auto_approve_rules WHERE flat_id = ? AND active = 1`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListByFlat returns all rules for a flat, newest first.
func (r *RuleRepo) ListByFlat(ctx context.Context, flatID uint64) ([]model.AutoApproveRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, flat_id, companies, days, time_from, time_until, active, created_at
		 FROM auto_approve_rules WHERE flat_id = ? ORDER BY created_at DESC`, flatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]model.AutoApproveRule, error) {
	rules := make([]model.AutoApproveRule, 0)
	for rows.Next() {
		var rule model.AutoApproveRule
		var companies, days string
		if err := rows.Scan(&rule.ID, &rule.FlatID, &companies, &days,
			&rule.TimeFrom, &rule.TimeUntil, &rule.Active, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.Companies = splitList(companies)
		rule.Days = splitList(days)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// SetActive toggles a rule on the owning flat.  Returns sql.ErrNoRows
// when the rule does not belong to the flat.
func (r *RuleRepo) SetActive(ctx context.Context, id, flatID uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auto_approve_rules SET active = ? WHERE id = ? AND flat_id = ?`,
		active, id, flatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
