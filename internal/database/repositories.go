package database

import (
	"database/sql"

	"github.com/Agastya221/society-gate-backend/internal/repository"
)

// Repositories bundles every repository over one shared pool so main
// wires them in a single call.
type Repositories struct {
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Flats      *repository.FlatRepo
	Passes     *repository.PassRepo
	Entries    *repository.EntryRepo
	Rules      *repository.RuleRepo
	Deliveries *repository.DeliveryRepo
	GateStore  *repository.GateStore
}

// NewRepositories constructs all repositories and the transactional
// gate store on top of db.
func NewRepositories(db *sql.DB) *Repositories {
	passes := repository.NewPassRepo(db)
	entries := repository.NewEntryRepo(db)
	rules := repository.NewRuleRepo(db)
	deliveries := repository.NewDeliveryRepo(db)
	return &Repositories{
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Flats:      repository.NewFlatRepo(db),
		Passes:     passes,
		Entries:    entries,
		Rules:      rules,
		Deliveries: deliveries,
		GateStore:  repository.NewGateStore(db, passes, entries, rules, deliveries),
	}
}
